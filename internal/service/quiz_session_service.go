package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"github.com/rs/zerolog/log"
)

// Session error codes.
const (
	CodeSessionSubmitted    = "SESSION_SUBMITTED"
	CodeSessionPaused       = "SESSION_PAUSED"
	CodeSessionNotPaused    = "SESSION_NOT_PAUSED"
	CodeSessionNotSubmitted = "SESSION_NOT_SUBMITTED"
	CodeIndexOutOfRange     = "INDEX_OUT_OF_RANGE"
	CodeInvalidOption       = "INVALID_OPTION"
	CodeInvalidSessionID    = "INVALID_SESSION_ID"
	CodeInvalidCount        = "INVALID_COUNT"
	CodeInvalidDifficulty   = "INVALID_DIFFICULTY"
	CodeNoQuestions         = "NO_QUESTIONS"
	CodeInvalidSeq          = "INVALID_SEQ"
)

type QuizSessionService interface {
	Start(ctx context.Context, caller auth.Identity, req dto.StartQuizRequest) (*dto.SessionResponse, error)
	SaveAnswer(ctx context.Context, caller auth.Identity, req dto.SaveAnswerRequest) (*dto.SaveAnswerResponse, error)
	SaveState(ctx context.Context, caller auth.Identity, req dto.SaveStateRequest) (*dto.SaveStateResponse, error)
	Pause(ctx context.Context, caller auth.Identity, req dto.PauseRequest) (*dto.SessionResponse, error)
	Resume(ctx context.Context, caller auth.Identity, sessionID string) (*dto.SessionResponse, error)
	Submit(ctx context.Context, caller auth.Identity, sessionID string) (*dto.ResultResponse, error)
	Bookmark(ctx context.Context, caller auth.Identity, req dto.BookmarkRequest) (*dto.AnswerState, error)
	GetSession(ctx context.Context, caller auth.Identity, sessionID string) (*dto.SessionResponse, error)
	GetResults(ctx context.Context, caller auth.Identity, sessionID string) (*dto.ResultResponse, error)
	ListSessions(ctx context.Context, caller auth.Identity, page dto.PageQuery) (*dto.SessionListResponse, error)
}

type quizSessionService struct {
	sessionRepo  repository.QuizSessionRepository
	answerRepo   repository.AnswerRepository
	questionRepo repository.QuestionRepository
	defaultSize  int
	maxSize      int
	now          func() time.Time
}

func NewQuizSessionService(
	cfg *config.Config,
	sessionRepo repository.QuizSessionRepository,
	answerRepo repository.AnswerRepository,
	questionRepo repository.QuestionRepository,
) QuizSessionService {
	return &quizSessionService{
		sessionRepo:  sessionRepo,
		answerRepo:   answerRepo,
		questionRepo: questionRepo,
		defaultSize:  cfg.Quiz.DefaultSize,
		maxSize:      cfg.Quiz.MaxSize,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func parseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation(CodeInvalidSessionID, "session_id is not a valid id")
	}
	return id, nil
}

// stateError explains why a session in this status refuses a write.
func stateError(status model.SessionStatus) error {
	switch status {
	case model.SessionSubmitted:
		return apperror.State(CodeSessionSubmitted, "session has already been submitted")
	case model.SessionPaused:
		return apperror.State(CodeSessionPaused, "session is paused; resume it first")
	}
	return apperror.State(CodeSessionNotPaused, "session is not paused")
}

// load fetches the session and checks the caller may see it. Admins may read
// other users' sessions only when allowAdmin is set.
func (s *quizSessionService) load(ctx context.Context, caller auth.Identity, rawID string, allowAdmin bool) (*model.QuizSession, error) {
	id, err := parseSessionID(rawID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore("session", err)
	}
	if !caller.Owns(session.UserID) && !(allowAdmin && caller.IsAdmin()) {
		log.Warn().Str("userID", caller.UserID.String()).Str("sessionID", id.String()).Msg("Session access denied")
		return nil, apperror.Forbidden("you do not have access to this session")
	}
	return session, nil
}

// reloadStateError re-reads a session after a conditional write matched no
// row and turns its current status into the error to return.
func (s *quizSessionService) reloadStateError(ctx context.Context, id uuid.UUID) error {
	current, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return apperror.FromStore("session", err)
	}
	return stateError(current.Status)
}

func (s *quizSessionService) questionsFor(ctx context.Context, session *model.QuizSession) (map[uint]*model.Question, error) {
	ids := make([]uint, len(session.QuestionIDs))
	for i, id := range session.QuestionIDs {
		ids[i] = uint(id)
	}
	questions, err := s.questionRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.FromStore("questions", err)
	}
	byID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	return byID, nil
}

func (s *quizSessionService) Start(ctx context.Context, caller auth.Identity, req dto.StartQuizRequest) (*dto.SessionResponse, error) {
	size := s.defaultSize
	if req.Count != nil {
		if *req.Count < 1 || *req.Count > s.maxSize {
			return nil, apperror.Validation(CodeInvalidCount, "count must be between 1 and the maximum quiz size")
		}
		size = *req.Count
	}

	var filter repository.QuestionFilter
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		category := strings.TrimSpace(*req.Category)
		filter.Category = &category
	}
	if req.Difficulty != nil && strings.TrimSpace(*req.Difficulty) != "" {
		difficulty := strings.ToLower(strings.TrimSpace(*req.Difficulty))
		if !contains(model.Difficulties, difficulty) {
			return nil, apperror.Validation(CodeInvalidDifficulty, "difficulty must be one of easy, medium, hard")
		}
		filter.Difficulty = &difficulty
	}

	questions, err := s.questionRepo.PickRandom(ctx, filter, size)
	if err != nil {
		return nil, apperror.FromStore("questions", err)
	}
	if len(questions) == 0 {
		return nil, apperror.Validation(CodeNoQuestions, "no questions match the requested filters")
	}

	now := s.now()
	ids := make(pq.Int64Array, len(questions))
	byID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		ids[i] = int64(questions[i].ID)
		byID[questions[i].ID] = &questions[i]
	}
	session := &model.QuizSession{
		ID:             uuid.New(),
		UserID:         caller.UserID,
		QuestionIDs:    ids,
		Status:         model.SessionInProgress,
		ActiveSince:    &now,
		TotalQuestions: len(questions),
		StartedAt:      now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		log.Error().Err(err).Str("userID", caller.UserID.String()).Msg("Failed to create quiz session")
		return nil, apperror.FromStore("session", err)
	}
	log.Info().Str("sessionID", session.ID.String()).Str("userID", caller.UserID.String()).
		Int("questions", len(questions)).Msg("Quiz session started")
	return sessionView(session, byID, now), nil
}

func (s *quizSessionService) SaveAnswer(ctx context.Context, caller auth.Identity, req dto.SaveAnswerRequest) (*dto.SaveAnswerResponse, error) {
	session, err := s.load(ctx, caller, req.SessionID, false)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionInProgress {
		return nil, stateError(session.Status)
	}
	index := *req.QuestionIndex
	questionID, ok := session.QuestionAt(index)
	if !ok {
		return nil, apperror.Validation(CodeIndexOutOfRange, "question_index is outside the session")
	}

	var selected *string
	option := strings.ToUpper(strings.TrimSpace(req.SelectedOption))
	if option != "" {
		if !contains(model.AnswerKeys, option) {
			return nil, apperror.Validation(CodeInvalidOption, "selected_option must be one of A, B, C, D or empty")
		}
		selected = &option
	}

	seq := req.Seq
	if seq < 1 {
		return nil, apperror.Validation(CodeInvalidSeq, "seq must be a positive number")
	}

	answer := &model.Answer{
		SessionID:      session.ID,
		QuestionIndex:  index,
		QuestionID:     questionID,
		SelectedOption: selected,
		ClientSeq:      seq,
	}
	applied, err := s.answerRepo.Upsert(ctx, answer)
	if errors.Is(err, repository.ErrSessionNotWritable) {
		return nil, s.reloadStateError(ctx, session.ID)
	}
	if err != nil {
		log.Error().Err(err).Str("sessionID", session.ID.String()).Int("index", index).Msg("Failed to save answer")
		return nil, apperror.FromStore("answer", err)
	}

	resp := &dto.SaveAnswerResponse{
		SessionID:      session.ID.String(),
		QuestionIndex:  index,
		SelectedOption: selected,
		Applied:        applied,
	}
	if !applied {
		// A newer write already won; report what is stored.
		stored, err := s.answerRepo.FindBySession(ctx, session.ID)
		if err != nil {
			return nil, apperror.FromStore("answer", err)
		}
		resp.SelectedOption = nil
		for i := range stored {
			if stored[i].QuestionIndex == index {
				resp.SelectedOption = stored[i].SelectedOption
				break
			}
		}
		log.Debug().Str("sessionID", session.ID.String()).Int("index", index).Int64("seq", seq).Msg("Stale answer write dropped")
	}
	return resp, nil
}

func (s *quizSessionService) SaveState(ctx context.Context, caller auth.Identity, req dto.SaveStateRequest) (*dto.SaveStateResponse, error) {
	session, err := s.load(ctx, caller, req.SessionID, false)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionInProgress {
		return nil, stateError(session.Status)
	}
	if _, ok := session.QuestionAt(*req.CurrentIndex); !ok {
		return nil, apperror.Validation(CodeIndexOutOfRange, "current_index is outside the session")
	}

	now := s.now()
	applied, err := s.sessionRepo.ApplyState(ctx, session.ID, repository.StateUpdate{
		Seq:            req.Seq,
		CurrentIndex:   *req.CurrentIndex,
		ElapsedSeconds: *req.ElapsedSeconds,
		Now:            now,
	})
	if err != nil {
		log.Error().Err(err).Str("sessionID", session.ID.String()).Msg("Failed to save session state")
		return nil, apperror.FromStore("session", err)
	}

	current, err := s.sessionRepo.FindByID(ctx, session.ID)
	if err != nil {
		return nil, apperror.FromStore("session", err)
	}
	if !applied && current.Status != model.SessionInProgress {
		return nil, stateError(current.Status)
	}
	if !applied {
		log.Debug().Str("sessionID", session.ID.String()).Int64("seq", req.Seq).Int64("stored", current.StateSeq).
			Msg("Stale autosave ignored")
	}
	return &dto.SaveStateResponse{
		SessionID:      current.ID.String(),
		Status:         string(current.Status),
		Applied:        applied,
		StateSeq:       current.StateSeq,
		CurrentIndex:   current.CurrentIndex,
		ElapsedSeconds: current.ElapsedAt(now),
	}, nil
}

func (s *quizSessionService) Pause(ctx context.Context, caller auth.Identity, req dto.PauseRequest) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, caller, req.SessionID, false)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionPaused && !session.Status.CanTransition(model.SessionPaused) {
		return nil, stateError(session.Status)
	}

	now := s.now()
	if session.Status == model.SessionInProgress {
		elapsed := session.ElapsedAt(now)
		if req.ElapsedSeconds != nil {
			elapsed = *req.ElapsedSeconds
		}
		applied, err := s.sessionRepo.Transition(ctx, session.ID,
			[]model.SessionStatus{model.SessionInProgress}, model.SessionPaused,
			map[string]interface{}{
				"elapsed_seconds": elapsed,
				"active_since":    nil,
				"paused_at":       now,
				"updated_at":      now,
			})
		if err != nil {
			return nil, apperror.FromStore("session", err)
		}
		if applied {
			log.Info().Str("sessionID", session.ID.String()).Int("elapsed", elapsed).Msg("Quiz session paused")
		}
	}
	// Pausing a paused session is a no-op that returns its current view.
	return s.view(ctx, session.ID, model.SessionPaused)
}

func (s *quizSessionService) Resume(ctx context.Context, caller auth.Identity, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, caller, sessionID, false)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionInProgress && !session.Status.CanTransition(model.SessionInProgress) {
		return nil, stateError(session.Status)
	}

	now := s.now()
	if session.Status == model.SessionPaused {
		applied, err := s.sessionRepo.Transition(ctx, session.ID,
			[]model.SessionStatus{model.SessionPaused}, model.SessionInProgress,
			map[string]interface{}{
				"active_since": now,
				"paused_at":    nil,
				"updated_at":   now,
			})
		if err != nil {
			return nil, apperror.FromStore("session", err)
		}
		if applied {
			log.Info().Str("sessionID", session.ID.String()).Msg("Quiz session resumed")
		}
	}
	return s.view(ctx, session.ID, model.SessionInProgress)
}

// view reloads the session and renders it, failing when it did not end up
// in the wanted status.
func (s *quizSessionService) view(ctx context.Context, id uuid.UUID, want model.SessionStatus) (*dto.SessionResponse, error) {
	current, err := s.sessionRepo.FindByIDWithAnswers(ctx, id)
	if err != nil {
		return nil, apperror.FromStore("session", err)
	}
	if current.Status != want {
		return nil, stateError(current.Status)
	}
	questions, err := s.questionsFor(ctx, current)
	if err != nil {
		return nil, err
	}
	return sessionView(current, questions, s.now()), nil
}

func (s *quizSessionService) Submit(ctx context.Context, caller auth.Identity, sessionID string) (*dto.ResultResponse, error) {
	session, err := s.load(ctx, caller, sessionID, false)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, stateError(session.Status)
	}
	questions, err := s.questionsFor(ctx, session)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var result ScoreResult
	final, applied, err := s.sessionRepo.Finalize(ctx, session.ID, now,
		func(locked *model.QuizSession, answers []model.Answer) (repository.Finalization, error) {
			result = Score(locked, questions, answers)
			fin := repository.Finalization{
				Score:          result.Score,
				Percentage:     result.Percentage,
				ElapsedSeconds: locked.ElapsedAt(now),
				Correct:        make(map[uint]bool, len(answers)),
			}
			for _, a := range answers {
				if a.QuestionIndex >= 0 && a.QuestionIndex < len(result.Verdicts) {
					fin.Correct[a.ID] = result.Verdicts[a.QuestionIndex]
				}
			}
			return fin, nil
		})
	if err != nil {
		log.Error().Err(err).Str("sessionID", session.ID.String()).Msg("Failed to submit session")
		return nil, apperror.FromStore("session", err)
	}
	if !applied {
		return nil, s.reloadStateError(ctx, session.ID)
	}

	log.Info().Str("sessionID", final.ID.String()).Str("userID", caller.UserID.String()).
		Int("score", result.Score).Int("total", result.Total).Int("percentage", result.Percentage).Msg("Quiz session submitted")
	return resultView(final, questions), nil
}

func (s *quizSessionService) Bookmark(ctx context.Context, caller auth.Identity, req dto.BookmarkRequest) (*dto.AnswerState, error) {
	session, err := s.load(ctx, caller, req.SessionID, false)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, stateError(session.Status)
	}
	index := *req.QuestionIndex
	questionID, ok := session.QuestionAt(index)
	if !ok {
		return nil, apperror.Validation(CodeIndexOutOfRange, "question_index is outside the session")
	}

	err = s.answerRepo.SetBookmark(ctx, &model.Answer{
		SessionID:     session.ID,
		QuestionIndex: index,
		QuestionID:    questionID,
		Bookmarked:    req.Bookmarked,
	})
	if errors.Is(err, repository.ErrSessionNotWritable) {
		return nil, s.reloadStateError(ctx, session.ID)
	}
	if err != nil {
		return nil, apperror.FromStore("answer", err)
	}

	answers, err := s.answerRepo.FindBySession(ctx, session.ID)
	if err != nil {
		return nil, apperror.FromStore("answer", err)
	}
	state := &dto.AnswerState{QuestionIndex: index, QuestionID: questionID, Bookmarked: req.Bookmarked}
	for i := range answers {
		if answers[i].QuestionIndex == index {
			state.SelectedOption = answers[i].SelectedOption
			state.Bookmarked = answers[i].Bookmarked
			break
		}
	}
	return state, nil
}

func (s *quizSessionService) GetSession(ctx context.Context, caller auth.Identity, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, caller, sessionID, false)
	if err != nil {
		return nil, err
	}
	full, err := s.sessionRepo.FindByIDWithAnswers(ctx, session.ID)
	if err != nil {
		return nil, apperror.FromStore("session", err)
	}
	questions, err := s.questionsFor(ctx, full)
	if err != nil {
		return nil, err
	}
	return sessionView(full, questions, s.now()), nil
}

func (s *quizSessionService) GetResults(ctx context.Context, caller auth.Identity, sessionID string) (*dto.ResultResponse, error) {
	session, err := s.load(ctx, caller, sessionID, true)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionSubmitted {
		return nil, apperror.State(CodeSessionNotSubmitted, "results are available after the session is submitted")
	}
	full, err := s.sessionRepo.FindByIDWithAnswers(ctx, session.ID)
	if err != nil {
		return nil, apperror.FromStore("session", err)
	}
	questions, err := s.questionsFor(ctx, full)
	if err != nil {
		return nil, err
	}
	return resultView(full, questions), nil
}

func (s *quizSessionService) ListSessions(ctx context.Context, caller auth.Identity, page dto.PageQuery) (*dto.SessionListResponse, error) {
	p := pageOf(page)
	sessions, err := s.sessionRepo.FindAllByUser(ctx, caller.UserID, p)
	if err != nil {
		return nil, apperror.FromStore("sessions", err)
	}
	resp := &dto.SessionListResponse{Items: make([]dto.SessionSummary, 0, len(sessions)), Limit: p.Limit, Offset: p.Offset}
	for i := range sessions {
		resp.Items = append(resp.Items, dto.SessionSummary{
			ID:             sessions[i].ID.String(),
			Status:         string(sessions[i].Status),
			TotalQuestions: sessions[i].TotalQuestions,
			Score:          sessions[i].Score,
			Percentage:     sessions[i].Percentage,
			StartedAt:      sessions[i].StartedAt,
			SubmittedAt:    sessions[i].SubmittedAt,
		})
	}
	return resp, nil
}

func sessionView(session *model.QuizSession, questions map[uint]*model.Question, now time.Time) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:             session.ID.String(),
		Status:         string(session.Status),
		CurrentIndex:   session.CurrentIndex,
		ElapsedSeconds: session.ElapsedAt(now),
		TotalQuestions: session.TotalQuestions,
		StateSeq:       session.StateSeq,
		StartedAt:      session.StartedAt,
		PausedAt:       session.PausedAt,
		SubmittedAt:    session.SubmittedAt,
		Score:          session.Score,
		Percentage:     session.Percentage,
		Questions:      make([]dto.QuizQuestion, 0, len(session.QuestionIDs)),
		Answers:        make([]dto.AnswerState, 0, len(session.Answers)),
		Bookmarks:      []int{},
	}
	for idx, id := range session.QuestionIDs {
		item := dto.QuizQuestion{Index: idx, QuestionID: uint(id)}
		if q, ok := questions[uint(id)]; ok {
			item.QuestionText = q.QuestionText
			item.OptionA, item.OptionB, item.OptionC, item.OptionD = q.OptionA, q.OptionB, q.OptionC, q.OptionD
			item.Category = q.Category
			item.Difficulty = q.Difficulty
		}
		resp.Questions = append(resp.Questions, item)
	}
	for _, a := range session.Answers {
		resp.Answers = append(resp.Answers, dto.AnswerState{
			QuestionIndex:  a.QuestionIndex,
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			Bookmarked:     a.Bookmarked,
		})
		if a.Answered() {
			resp.AnsweredCount++
		}
		if a.Bookmarked {
			resp.Bookmarks = append(resp.Bookmarks, a.QuestionIndex)
		}
	}
	return resp
}

func resultView(session *model.QuizSession, questions map[uint]*model.Question) *dto.ResultResponse {
	byIndex := make(map[int]*model.Answer, len(session.Answers))
	for i := range session.Answers {
		byIndex[session.Answers[i].QuestionIndex] = &session.Answers[i]
	}
	result := Score(session, questions, session.Answers)

	resp := &dto.ResultResponse{
		SessionID:      session.ID.String(),
		Score:          result.Score,
		Percentage:     result.Percentage,
		TotalQuestions: result.Total,
		Correct:        result.Correct,
		Incorrect:      result.Incorrect,
		Unanswered:     result.Unanswered,
		ElapsedSeconds: session.ElapsedSeconds,
		StartedAt:      session.StartedAt,
		SubmittedAt:    session.SubmittedAt,
		Questions:      make([]dto.ResultItem, 0, len(session.QuestionIDs)),
	}
	if session.Score != nil {
		resp.Score = *session.Score
	}
	if session.Percentage != nil {
		resp.Percentage = *session.Percentage
	}
	for idx, id := range session.QuestionIDs {
		item := dto.ResultItem{Index: idx, QuestionID: uint(id), IsCorrect: result.Verdicts[idx]}
		if q, ok := questions[uint(id)]; ok {
			item.QuestionText = q.QuestionText
			item.OptionA, item.OptionB, item.OptionC, item.OptionD = q.OptionA, q.OptionB, q.OptionC, q.OptionD
			item.Category = q.Category
			item.CorrectAnswer = q.CorrectAnswer
		}
		if a, ok := byIndex[idx]; ok {
			item.SelectedOption = a.SelectedOption
			item.Bookmarked = a.Bookmarked
		}
		resp.Questions = append(resp.Questions, item)
	}
	return resp
}

func pageOf(q dto.PageQuery) repository.Page {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
