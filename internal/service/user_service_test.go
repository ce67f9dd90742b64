package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users   map[uuid.UUID]*model.User
	touches int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*model.User{}}
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) CreateIfMissing(ctx context.Context, u *model.User) (*model.User, error) {
	if _, ok := r.users[u.ID]; !ok {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r.FindByID(ctx, u.ID)
}

func (r *fakeUserRepo) List(_ context.Context, page repository.Page) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id uuid.UUID, role string) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	return nil
}

func (r *fakeUserRepo) TouchLastActive(_ context.Context, id uuid.UUID, at time.Time) error {
	r.touches++
	r.users[id].LastActiveAt = &at
	return nil
}

func TestEnsureUserCreatesOnFirstSight(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo).(*userService)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	id := uuid.New()

	user, err := svc.EnsureUser(context.Background(), id, " Learner@Example.com ", "Learner")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if user.Role != model.RoleUser || user.Email != "learner@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if repo.touches != 1 {
		t.Fatalf("touches = %d, want 1", repo.touches)
	}

	now = now.Add(time.Minute)
	if _, err := svc.EnsureUser(context.Background(), id, "learner@example.com", "Learner"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if repo.touches != 1 {
		t.Errorf("activity written again within the granularity window")
	}

	now = now.Add(lastActiveGranularity)
	if _, err := svc.EnsureUser(context.Background(), id, "learner@example.com", "Learner"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if repo.touches != 2 {
		t.Errorf("touches = %d, want 2", repo.touches)
	}
}

func TestEnsureUserKeepsStoredRole(t *testing.T) {
	repo := newFakeUserRepo()
	id := uuid.New()
	repo.users[id] = &model.User{ID: id, Email: "boss@example.com", Role: model.RoleAdmin}

	user, err := NewUserService(repo).EnsureUser(context.Background(), id, "boss@example.com", "")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if user.Role != model.RoleAdmin {
		t.Fatalf("stored role should win, got %q", user.Role)
	}
}

func TestUpdateRole(t *testing.T) {
	repo := newFakeUserRepo()
	target := uuid.New()
	repo.users[target] = &model.User{ID: target, Email: "t@example.com", Role: model.RoleUser}
	svc := NewUserService(repo)
	admin := adminIdentity()
	ctx := context.Background()

	resp, err := svc.UpdateRole(ctx, admin, target.String(), model.RoleAdmin)
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if resp.Role != model.RoleAdmin || resp.ID != target.String() {
		t.Fatalf("unexpected response %+v", resp)
	}

	_, err = svc.UpdateRole(ctx, admin, admin.UserID.String(), model.RoleUser)
	assertAppError(t, err, apperror.KindValidation, "SELF_DEMOTION")
	_, err = svc.UpdateRole(ctx, admin, "nope", model.RoleUser)
	assertAppError(t, err, apperror.KindValidation, "INVALID_USER_ID")
	_, err = svc.UpdateRole(ctx, admin, uuid.NewString(), model.RoleUser)
	assertAppError(t, err, apperror.KindNotFound, "NOT_FOUND")
}

func TestListUsersPaging(t *testing.T) {
	repo := newFakeUserRepo()
	for i := 0; i < 3; i++ {
		id := uuid.New()
		repo.users[id] = &model.User{ID: id, Role: model.RoleUser}
	}
	resp, err := NewUserService(repo).ListUsers(context.Background(), dto.PageQuery{Limit: 500})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if resp.Total != 3 || len(resp.Items) != 3 || resp.Limit != 200 {
		t.Fatalf("unexpected response %+v", resp)
	}
}
