package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SuggestionRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*model.Suggestion, error)
	Upsert(ctx context.Context, suggestion *model.Suggestion) error
}

type suggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

func (r *suggestionRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*model.Suggestion, error) {
	var suggestion model.Suggestion
	err := readWithRetry(ctx, "suggestions.find_by_user", func() error {
		return r.db.WithContext(ctx).First(&suggestion, "user_id = ?", userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &suggestion, nil
}

func (r *suggestionRepository) Upsert(ctx context.Context, suggestion *model.Suggestion) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "generated_at", "updated_at"}),
	}).Create(suggestion).Error
}
