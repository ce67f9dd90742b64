package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/model"
	"gorm.io/gorm"
)

// StateUpdate is one autosave of position and clock.
type StateUpdate struct {
	Seq            int64
	CurrentIndex   int
	ElapsedSeconds int
	Now            time.Time
}

// Finalization is what a submit writes back.
type Finalization struct {
	Score          int
	Percentage     int
	ElapsedSeconds int
	// Correct holds the verdict per answer row id.
	Correct map[uint]bool
}

// Finalizer computes the final outcome from the session and its answers as
// they are inside the submit transaction.
type Finalizer func(session *model.QuizSession, answers []model.Answer) (Finalization, error)

type QuizSessionRepository interface {
	Create(ctx context.Context, session *model.QuizSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error)
	FindByIDWithAnswers(ctx context.Context, id uuid.UUID) (*model.QuizSession, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID, page Page) ([]model.QuizSession, error)
	// ApplyState writes the autosave only if the session is in progress and
	// upd.Seq is newer than the stored one. applied=false otherwise.
	ApplyState(ctx context.Context, id uuid.UUID, upd StateUpdate) (applied bool, err error)
	// Transition moves the session to a new status if it currently holds one
	// of from, writing extra columns in the same statement.
	Transition(ctx context.Context, id uuid.UUID, from []model.SessionStatus, to model.SessionStatus, columns map[string]interface{}) (applied bool, err error)
	// Finalize submits the session. applied=false when it was already submitted.
	Finalize(ctx context.Context, id uuid.UUID, now time.Time, finalize Finalizer) (session *model.QuizSession, applied bool, err error)
}

type quizSessionRepository struct {
	db *gorm.DB
}

func NewQuizSessionRepository(db *gorm.DB) QuizSessionRepository {
	return &quizSessionRepository{db: db}
}

func (r *quizSessionRepository) Create(ctx context.Context, session *model.QuizSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *quizSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error) {
	var session model.QuizSession
	err := readWithRetry(ctx, "quiz_sessions.find_by_id", func() error {
		return r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *quizSessionRepository) FindByIDWithAnswers(ctx context.Context, id uuid.UUID) (*model.QuizSession, error) {
	var session model.QuizSession
	err := readWithRetry(ctx, "quiz_sessions.find_with_answers", func() error {
		return r.db.WithContext(ctx).
			Preload("Answers", func(db *gorm.DB) *gorm.DB {
				return db.Order("answers.question_index ASC")
			}).
			First(&session, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *quizSessionRepository) FindAllByUser(ctx context.Context, userID uuid.UUID, page Page) ([]model.QuizSession, error) {
	var sessions []model.QuizSession
	err := readWithRetry(ctx, "quiz_sessions.find_by_user", func() error {
		sessions = nil
		return r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("started_at DESC").
			Limit(page.Limit).Offset(page.Offset).
			Find(&sessions).Error
	})
	return sessions, err
}

func (r *quizSessionRepository) ApplyState(ctx context.Context, id uuid.UUID, upd StateUpdate) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.QuizSession{}).
		Where("id = ? AND status = ? AND state_seq < ?", id, model.SessionInProgress, upd.Seq).
		Updates(map[string]interface{}{
			"state_seq":       upd.Seq,
			"current_index":   upd.CurrentIndex,
			"elapsed_seconds": upd.ElapsedSeconds,
			"active_since":    upd.Now,
			"updated_at":      upd.Now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *quizSessionRepository) Transition(ctx context.Context, id uuid.UUID, from []model.SessionStatus, to model.SessionStatus, columns map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range columns {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&model.QuizSession{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *quizSessionRepository) Finalize(ctx context.Context, id uuid.UUID, now time.Time, finalize Finalizer) (*model.QuizSession, bool, error) {
	var (
		session model.QuizSession
		applied bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Flipping the status first takes the row lock; answer writes that
		// guard on status = in_progress are rejected from here on.
		res := tx.Model(&model.QuizSession{}).
			Where("id = ? AND status IN ?", id, []model.SessionStatus{model.SessionInProgress, model.SessionPaused}).
			Updates(map[string]interface{}{"status": model.SessionSubmitted, "submitted_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if err := tx.First(&session, "id = ?", id).Error; err != nil {
			return err
		}
		var answers []model.Answer
		if err := tx.Where("session_id = ?", id).Order("question_index ASC").Find(&answers).Error; err != nil {
			return err
		}

		fin, err := finalize(&session, answers)
		if err != nil {
			return err
		}

		if err := tx.Model(&model.QuizSession{}).Where("id = ?", id).Updates(map[string]interface{}{
			"score":           fin.Score,
			"percentage":      fin.Percentage,
			"elapsed_seconds": fin.ElapsedSeconds,
			"active_since":    nil,
		}).Error; err != nil {
			return err
		}

		var correctIDs, wrongIDs []uint
		for answerID, ok := range fin.Correct {
			if ok {
				correctIDs = append(correctIDs, answerID)
			} else {
				wrongIDs = append(wrongIDs, answerID)
			}
		}
		if len(correctIDs) > 0 {
			if err := tx.Model(&model.Answer{}).Where("id IN ?", correctIDs).Update("is_correct", true).Error; err != nil {
				return err
			}
		}
		if len(wrongIDs) > 0 {
			if err := tx.Model(&model.Answer{}).Where("id IN ?", wrongIDs).Update("is_correct", false).Error; err != nil {
				return err
			}
		}

		return tx.Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.question_index ASC")
		}).First(&session, "id = ?", id).Error
	})
	if err != nil {
		return nil, false, err
	}
	if !applied {
		return nil, false, nil
	}
	return &session, true, nil
}
