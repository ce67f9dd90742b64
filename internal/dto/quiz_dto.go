package dto

import "time"

// QuizQuestion is a question as shown while taking a quiz; it never carries
// the answer key.
type QuizQuestion struct {
	Index        int     `json:"index"`
	QuestionID   uint    `json:"question_id"`
	QuestionText string  `json:"question_text"`
	OptionA      string  `json:"option_a"`
	OptionB      string  `json:"option_b"`
	OptionC      string  `json:"option_c"`
	OptionD      string  `json:"option_d"`
	Category     *string `json:"category,omitempty"`
	Difficulty   *string `json:"difficulty,omitempty"`
}

type AnswerState struct {
	QuestionIndex  int     `json:"question_index"`
	QuestionID     uint    `json:"question_id"`
	SelectedOption *string `json:"selected_option"`
	Bookmarked     bool    `json:"bookmarked"`
}

// SessionResponse is the resume view of a session.
type SessionResponse struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	CurrentIndex   int            `json:"current_index"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	TotalQuestions int            `json:"total_questions"`
	AnsweredCount  int            `json:"answered_count"`
	StateSeq       int64          `json:"state_seq"`
	StartedAt      time.Time      `json:"started_at"`
	PausedAt       *time.Time     `json:"paused_at,omitempty"`
	SubmittedAt    *time.Time     `json:"submitted_at,omitempty"`
	Score          *int           `json:"score,omitempty"`
	Percentage     *int           `json:"percentage,omitempty"`
	Questions      []QuizQuestion `json:"questions"`
	Answers        []AnswerState  `json:"answers"`
	Bookmarks      []int          `json:"bookmarks"`
}

type SessionSummary struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	TotalQuestions int        `json:"total_questions"`
	Score          *int       `json:"score,omitempty"`
	Percentage     *int       `json:"percentage,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
}

type SessionListResponse struct {
	Items  []SessionSummary `json:"items"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type SaveAnswerResponse struct {
	SessionID      string  `json:"session_id"`
	QuestionIndex  int     `json:"question_index"`
	SelectedOption *string `json:"selected_option"`
	Applied        bool    `json:"applied"`
}

// SaveStateResponse reports the persisted state; Applied is false when the
// write was older than (or equal to) what is stored.
type SaveStateResponse struct {
	SessionID      string `json:"session_id"`
	Status         string `json:"status"`
	Applied        bool   `json:"applied"`
	StateSeq       int64  `json:"state_seq"`
	CurrentIndex   int    `json:"current_index"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

type ResultItem struct {
	Index          int     `json:"index"`
	QuestionID     uint    `json:"question_id"`
	QuestionText   string  `json:"question_text"`
	OptionA        string  `json:"option_a"`
	OptionB        string  `json:"option_b"`
	OptionC        string  `json:"option_c"`
	OptionD        string  `json:"option_d"`
	Category       *string `json:"category,omitempty"`
	SelectedOption *string `json:"selected_option"`
	CorrectAnswer  string  `json:"correct_answer"`
	IsCorrect      bool    `json:"is_correct"`
	Bookmarked     bool    `json:"bookmarked"`
}

type ResultResponse struct {
	SessionID      string       `json:"session_id"`
	Score          int          `json:"score"`
	Percentage     int          `json:"percentage"`
	TotalQuestions int          `json:"total_questions"`
	Correct        int          `json:"correct"`
	Incorrect      int          `json:"incorrect"`
	Unanswered     int          `json:"unanswered"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
	StartedAt      time.Time    `json:"started_at"`
	SubmittedAt    *time.Time   `json:"submitted_at"`
	Questions      []ResultItem `json:"questions"`
}
