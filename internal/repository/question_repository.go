package repository

import (
	"context"
	"strings"

	"github.com/lshigami/quizhub/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionFilter struct {
	Category   *string
	Difficulty *string
	Search     string
}

type Page struct {
	Limit  int
	Offset int
}

type QuestionRepository interface {
	Create(ctx context.Context, question *model.Question) error
	FindByID(ctx context.Context, id uint) (*model.Question, error)
	// FindByIDs includes retired and soft-deleted rows; scoring must still see them.
	FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error)
	List(ctx context.Context, filter QuestionFilter, page Page) ([]model.Question, int64, error)
	PickRandom(ctx context.Context, filter QuestionFilter, limit int) ([]model.Question, error)
	// FindLiveByTextKeys maps each matching text key to the live question id.
	FindLiveByTextKeys(ctx context.Context, keys []string) (map[string]uint, error)
	// BulkInsert stores the questions in one transaction. Rows that hit the
	// live text-key unique index are skipped; inserted[i] tells which went in.
	BulkInsert(ctx context.Context, questions []model.Question) (inserted []bool, err error)
	Update(ctx context.Context, question *model.Question) error
	// ReplaceWithCopy retires the original and inserts replacement as its live copy.
	ReplaceWithCopy(ctx context.Context, originalID uint, replacement *model.Question) error
	Retire(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	IsReferencedBySubmitted(ctx context.Context, id uint) (bool, error)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, question *model.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var question model.Question
	err := readWithRetry(ctx, "questions.find_by_id", func() error {
		return r.db.WithContext(ctx).First(&question, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	var questions []model.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := readWithRetry(ctx, "questions.find_by_ids", func() error {
		questions = nil
		return r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&questions).Error
	})
	return questions, err
}

func (r *questionRepository) applyFilter(q *gorm.DB, filter QuestionFilter) *gorm.DB {
	q = q.Where("retired = ?", false)
	if filter.Category != nil {
		q = q.Where("LOWER(category) = ?", strings.ToLower(*filter.Category))
	}
	if filter.Difficulty != nil {
		q = q.Where("difficulty = ?", strings.ToLower(*filter.Difficulty))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where("question_text ILIKE ?", "%"+s+"%")
	}
	return q
}

func (r *questionRepository) List(ctx context.Context, filter QuestionFilter, page Page) ([]model.Question, int64, error) {
	var (
		questions []model.Question
		total     int64
	)
	err := readWithRetry(ctx, "questions.list", func() error {
		questions = nil
		base := r.applyFilter(r.db.WithContext(ctx).Model(&model.Question{}), filter).Session(&gorm.Session{})
		if err := base.Count(&total).Error; err != nil {
			return err
		}
		return base.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset).Find(&questions).Error
	})
	return questions, total, err
}

func (r *questionRepository) PickRandom(ctx context.Context, filter QuestionFilter, limit int) ([]model.Question, error) {
	var questions []model.Question
	err := readWithRetry(ctx, "questions.pick_random", func() error {
		questions = nil
		return r.applyFilter(r.db.WithContext(ctx), filter).
			Order("random()").
			Limit(limit).
			Find(&questions).Error
	})
	return questions, err
}

func (r *questionRepository) FindLiveByTextKeys(ctx context.Context, keys []string) (map[string]uint, error) {
	found := make(map[string]uint, len(keys))
	if len(keys) == 0 {
		return found, nil
	}
	var rows []struct {
		ID      uint
		TextKey string
	}
	err := readWithRetry(ctx, "questions.find_by_text_keys", func() error {
		rows = nil
		return r.db.WithContext(ctx).Model(&model.Question{}).
			Select("id", "text_key").
			Where("retired = ? AND text_key IN ?", false, keys).
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		found[row.TextKey] = row.ID
	}
	return found, nil
}

func (r *questionRepository) BulkInsert(ctx context.Context, questions []model.Question) ([]bool, error) {
	inserted := make([]bool, len(questions))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range questions {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&questions[i])
			if res.Error != nil {
				return res.Error
			}
			inserted[i] = res.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *questionRepository) Update(ctx context.Context, question *model.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *questionRepository) ReplaceWithCopy(ctx context.Context, originalID uint, replacement *model.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Question{}).Where("id = ?", originalID).Update("retired", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		replacement.ID = 0
		return tx.Create(replacement).Error
	})
}

func (r *questionRepository) Retire(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&model.Question{}).Where("id = ?", id).Update("retired", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Question{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) IsReferencedBySubmitted(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := readWithRetry(ctx, "questions.is_referenced", func() error {
		return r.db.WithContext(ctx).Model(&model.QuizSession{}).
			Where("status = ? AND ? = ANY(question_ids)", model.SessionSubmitted, int64(id)).
			Count(&count).Error
	})
	return count > 0, err
}
