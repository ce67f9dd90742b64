package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSessionNotWritable means the session left the status the write requires.
var ErrSessionNotWritable = errors.New("session is not in a writable status")

var answerConflictColumns = []clause.Column{{Name: "session_id"}, {Name: "question_index"}}

type AnswerRepository interface {
	// Upsert records the selected option when the session is in progress.
	// A write whose ClientSeq is not newer than the stored one is dropped
	// (applied=false).
	Upsert(ctx context.Context, answer *model.Answer) (applied bool, err error)
	// SetBookmark flips the bookmark flag when the session is not submitted.
	SetBookmark(ctx context.Context, answer *model.Answer) error
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

// touchSession updates the session row under a status guard. The row update
// serialises this write with a concurrent submit.
func touchSession(tx *gorm.DB, sessionID uuid.UUID, statuses []model.SessionStatus, now time.Time) error {
	res := tx.Model(&model.QuizSession{}).
		Where("id = ? AND status IN ?", sessionID, statuses).
		Update("updated_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotWritable
	}
	return nil
}

func (r *answerRepository) Upsert(ctx context.Context, answer *model.Answer) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touchSession(tx, answer.SessionID, []model.SessionStatus{model.SessionInProgress}, time.Now().UTC()); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   answerConflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{"question_id", "selected_option", "client_seq", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "answers.client_seq < excluded.client_seq"},
			}},
		}).Create(answer)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		return nil
	})
	return applied, err
}

func (r *answerRepository) SetBookmark(ctx context.Context, answer *model.Answer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touchSession(tx, answer.SessionID, []model.SessionStatus{model.SessionInProgress, model.SessionPaused}, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   answerConflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{"bookmarked", "updated_at"}),
		}).Create(answer).Error
	})
}

func (r *answerRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	var answers []model.Answer
	err := readWithRetry(ctx, "answers.find_by_session", func() error {
		answers = nil
		return r.db.WithContext(ctx).
			Where("session_id = ?", sessionID).
			Order("question_index ASC").
			Find(&answers).Error
	})
	return answers, err
}
