package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"github.com/rs/zerolog/log"
)

// lastActiveGranularity bounds how often last_active_at is written per user.
const lastActiveGranularity = 5 * time.Minute

type UserService interface {
	// EnsureUser returns the stored user for an authenticated subject,
	// creating it on first sight, and records activity.
	EnsureUser(ctx context.Context, id uuid.UUID, email, displayName string) (*model.User, error)
	ListUsers(ctx context.Context, page dto.PageQuery) (*dto.UserListResponse, error)
	UpdateRole(ctx context.Context, caller auth.Identity, userID string, role string) (*dto.UserResponse, error)
}

type userService struct {
	repo repository.UserRepository
	now  func() time.Time
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           u.ID.String(),
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Role:         u.Role,
		LastActiveAt: u.LastActiveAt,
		CreatedAt:    u.CreatedAt,
	}
}

func (s *userService) EnsureUser(ctx context.Context, id uuid.UUID, email, displayName string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !apperror.IsKind(apperror.FromStore("user", err), apperror.KindNotFound) {
			return nil, apperror.FromStore("user", err)
		}
		user, err = s.repo.CreateIfMissing(ctx, &model.User{
			ID:          id,
			Email:       strings.ToLower(strings.TrimSpace(email)),
			DisplayName: displayName,
			Role:        model.RoleUser,
		})
		if err != nil {
			log.Error().Err(err).Str("userID", id.String()).Msg("Failed to create user on first sign-in")
			return nil, apperror.FromStore("user", err)
		}
		log.Info().Str("userID", id.String()).Msg("User registered on first request")
	}

	now := s.now()
	if user.LastActiveAt == nil || now.Sub(*user.LastActiveAt) >= lastActiveGranularity {
		if err := s.repo.TouchLastActive(ctx, id, now); err != nil {
			log.Warn().Err(err).Str("userID", id.String()).Msg("Could not record user activity")
		} else {
			user.LastActiveAt = &now
		}
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, page dto.PageQuery) (*dto.UserListResponse, error) {
	p := pageOf(page)
	users, total, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, apperror.FromStore("users", err)
	}
	resp := &dto.UserListResponse{Total: total, Limit: p.Limit, Offset: p.Offset, Items: make([]dto.UserResponse, 0, len(users))}
	for i := range users {
		resp.Items = append(resp.Items, toUserResponse(&users[i]))
	}
	return resp, nil
}

func (s *userService) UpdateRole(ctx context.Context, caller auth.Identity, rawID string, role string) (*dto.UserResponse, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, apperror.Validation("INVALID_USER_ID", "user id is not valid")
	}
	if role != model.RoleAdmin && role != model.RoleUser {
		return nil, apperror.Validation("INVALID_ROLE", "role must be admin or user")
	}
	if id == caller.UserID && role != model.RoleAdmin {
		return nil, apperror.Validation("SELF_DEMOTION", "admins cannot remove their own admin role")
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, apperror.FromStore("user", err)
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore("user", err)
	}
	log.Info().Str("userID", id.String()).Str("role", role).Str("by", caller.UserID.String()).Msg("User role changed")
	resp := toUserResponse(user)
	return &resp, nil
}
