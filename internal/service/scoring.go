package service

import (
	"math"

	"github.com/lshigami/quizhub/internal/model"
)

// ScoreResult is the outcome of scoring one session.
type ScoreResult struct {
	Score      int
	Total      int
	Percentage int
	Correct    int
	Incorrect  int
	Unanswered int
	// Verdicts holds correctness per question index; unanswered is false.
	Verdicts []bool
}

// Score counts the answers matching the correct option of the question at
// their index. Unanswered questions count as incorrect. Answers pointing
// outside the session's question list are ignored.
func Score(session *model.QuizSession, questions map[uint]*model.Question, answers []model.Answer) ScoreResult {
	total := len(session.QuestionIDs)
	res := ScoreResult{Total: total, Verdicts: make([]bool, total)}

	selected := make([]*string, total)
	for i := range answers {
		a := &answers[i]
		if a.QuestionIndex < 0 || a.QuestionIndex >= total || !a.Answered() {
			continue
		}
		selected[a.QuestionIndex] = a.SelectedOption
	}

	for idx := 0; idx < total; idx++ {
		if selected[idx] == nil {
			res.Unanswered++
			continue
		}
		q, ok := questions[uint(session.QuestionIDs[idx])]
		if ok && *selected[idx] == q.CorrectAnswer {
			res.Verdicts[idx] = true
			res.Correct++
		} else {
			res.Incorrect++
		}
	}

	res.Score = res.Correct
	res.Percentage = Percentage(res.Score, total)
	return res
}

// Percentage is round(100*score/total), 0 for an empty session.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}
