package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("BAD", "bad"), http.StatusBadRequest},
		{Unauthenticated("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{State("SESSION_SUBMITTED", "done"), http.StatusConflict},
		{NotFound("session"), http.StatusNotFound},
		{Upstream("db", errors.New("conn refused")), http.StatusBadGateway},
		{Structural("MISSING_HEADER", "header"), http.StatusUnprocessableEntity},
		{Internal("boom", nil), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", State("X", "y")), http.StatusConflict},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFromStore(t *testing.T) {
	if FromStore("x", nil) != nil {
		t.Fatal("nil should stay nil")
	}
	if !IsKind(FromStore("session", gorm.ErrRecordNotFound), KindNotFound) {
		t.Error("record not found should map to not found")
	}
	if !IsKind(FromStore("session", fmt.Errorf("query: %w", gorm.ErrRecordNotFound)), KindNotFound) {
		t.Error("wrapped record not found should map to not found")
	}
	storeErr := errors.New("connection reset")
	err := FromStore("session", storeErr)
	if !IsKind(err, KindUpstream) || !errors.Is(err, storeErr) {
		t.Errorf("storage failure should be upstream and keep the cause, got %v", err)
	}
	state := State("SESSION_PAUSED", "paused")
	if FromStore("session", state) != error(state) {
		t.Error("classified errors pass through unchanged")
	}
}
