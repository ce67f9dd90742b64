package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/service"
)

type stubVerifier struct {
	tokens map[string]uuid.UUID
}

func (v stubVerifier) Verify(raw string) (*auth.Claims, uuid.UUID, error) {
	id, ok := v.tokens[raw]
	if !ok {
		return nil, uuid.Nil, errors.New("bad token")
	}
	return &auth.Claims{Email: "someone@example.com"}, id, nil
}

type stubUsers struct {
	service.UserService
	roles map[uuid.UUID]string
}

func (u stubUsers) EnsureUser(_ context.Context, id uuid.UUID, email, _ string) (*model.User, error) {
	role, ok := u.roles[id]
	if !ok {
		role = model.RoleUser
	}
	return &model.User{ID: id, Email: email, Role: role}, nil
}

func newRouter() (*gin.Engine, uuid.UUID, uuid.UUID) {
	gin.SetMode(gin.TestMode)
	learner, admin := uuid.New(), uuid.New()
	verifier := stubVerifier{tokens: map[string]uuid.UUID{"learner-token": learner, "admin-token": admin}}
	users := stubUsers{roles: map[uuid.UUID]string{admin: model.RoleAdmin}}

	r := gin.New()
	api := r.Group("/api", Authenticate(verifier, users))
	api.GET("/me", func(ctx *gin.Context) {
		identity, _ := auth.FromContext(ctx.Request.Context())
		ctx.JSON(http.StatusOK, gin.H{"id": identity.UserID.String(), "role": identity.Role})
	})
	api.GET("/admin", RequireRole(model.RoleAdmin), func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	return r, learner, admin
}

func do(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	r, learner, _ := newRouter()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic learner-token", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer forged", http.StatusUnauthorized},
		{"valid", "bearer learner-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, "/api/me", tt.header)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusUnauthorized {
				var body dto.ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Code != "UNAUTHENTICATED" {
					t.Fatalf("body = %s", rec.Body.String())
				}
			}
		})
	}

	rec := do(r, "/api/me", "Bearer learner-token")
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != learner.String() || body["role"] != model.RoleUser {
		t.Fatalf("identity = %v", body)
	}
}

func TestRequireRole(t *testing.T) {
	r, _, _ := newRouter()

	rec := do(r, "/api/admin", "Bearer learner-token")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("learner got %d, want 403", rec.Code)
	}
	var body dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Code != "FORBIDDEN" {
		t.Fatalf("body = %s", rec.Body.String())
	}

	if rec := do(r, "/api/admin", "Bearer admin-token"); rec.Code != http.StatusNoContent {
		t.Fatalf("admin got %d, want 204", rec.Code)
	}
}
