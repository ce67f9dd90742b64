package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// CreateIfMissing inserts the user unless a row with the same id exists,
	// then returns the stored row.
	CreateIfMissing(ctx context.Context, user *model.User) (*model.User, error)
	List(ctx context.Context, page Page) ([]model.User, int64, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := readWithRetry(ctx, "users.find_by_id", func() error {
		return r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CreateIfMissing(ctx context.Context, user *model.User) (*model.User, error) {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(user).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, user.ID)
}

func (r *userRepository) List(ctx context.Context, page Page) ([]model.User, int64, error) {
	var (
		users []model.User
		total int64
	)
	err := readWithRetry(ctx, "users.list", func() error {
		users = nil
		base := r.db.WithContext(ctx).Model(&model.User{}).Session(&gorm.Session{})
		if err := base.Count(&total).Error; err != nil {
			return err
		}
		return base.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset).Find(&users).Error
	})
	return users, total, err
}

func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_active_at", at).Error
}
