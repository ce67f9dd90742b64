package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/model"
	"gorm.io/gorm"
)

type SessionTotals struct {
	Started           int64
	Submitted         int64
	AveragePercentage float64
	BestPercentage    int
}

type CategoryAccuracy struct {
	Category string
	Answered int64
	Correct  int64
}

type InactiveUser struct {
	ID           uuid.UUID
	Email        string
	LastActiveAt *time.Time
}

type AnalyticsRepository interface {
	SessionTotals(ctx context.Context, userID uuid.UUID) (SessionTotals, error)
	CategoryAccuracy(ctx context.Context, userID uuid.UUID) ([]CategoryAccuracy, error)
	CountUsers(ctx context.Context) (int64, error)
	// InactiveSince lists users whose last activity is before cutoff, or who
	// never did anything and signed up before cutoff.
	InactiveSince(ctx context.Context, cutoff time.Time) ([]InactiveUser, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) SessionTotals(ctx context.Context, userID uuid.UUID) (SessionTotals, error) {
	var totals SessionTotals
	err := readWithRetry(ctx, "analytics.session_totals", func() error {
		return r.db.WithContext(ctx).Model(&model.QuizSession{}).
			Select(`COUNT(*) AS started,
				COUNT(*) FILTER (WHERE status = ?) AS submitted,
				COALESCE(AVG(percentage) FILTER (WHERE status = ?), 0) AS average_percentage,
				COALESCE(MAX(percentage), 0) AS best_percentage`, model.SessionSubmitted, model.SessionSubmitted).
			Where("user_id = ?", userID).
			Scan(&totals).Error
	})
	return totals, err
}

func (r *analyticsRepository) CategoryAccuracy(ctx context.Context, userID uuid.UUID) ([]CategoryAccuracy, error) {
	var rows []CategoryAccuracy
	err := readWithRetry(ctx, "analytics.category_accuracy", func() error {
		rows = nil
		return r.db.WithContext(ctx).Model(&model.Answer{}).
			Select(`COALESCE(questions.category, 'uncategorized') AS category,
				COUNT(*) AS answered,
				COUNT(*) FILTER (WHERE answers.is_correct) AS correct`).
			Joins("JOIN quiz_sessions ON quiz_sessions.id = answers.session_id").
			Joins("JOIN questions ON questions.id = answers.question_id").
			Where("quiz_sessions.user_id = ? AND quiz_sessions.status = ? AND answers.selected_option IS NOT NULL", userID, model.SessionSubmitted).
			Group("COALESCE(questions.category, 'uncategorized')").
			Order("category").
			Scan(&rows).Error
	})
	return rows, err
}

func (r *analyticsRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := readWithRetry(ctx, "analytics.count_users", func() error {
		return r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	})
	return count, err
}

func (r *analyticsRepository) InactiveSince(ctx context.Context, cutoff time.Time) ([]InactiveUser, error) {
	var users []InactiveUser
	err := readWithRetry(ctx, "analytics.inactive_since", func() error {
		users = nil
		return r.db.WithContext(ctx).Model(&model.User{}).
			Select("id", "email", "last_active_at").
			Where("(last_active_at IS NOT NULL AND last_active_at < ?) OR (last_active_at IS NULL AND created_at < ?)", cutoff, cutoff).
			Order("last_active_at ASC NULLS FIRST").
			Scan(&users).Error
	})
	return users, err
}
