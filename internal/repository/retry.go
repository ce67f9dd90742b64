package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const readRetryDelay = 150 * time.Millisecond

// readWithRetry runs an idempotent read and repeats it once when the store
// fails for a reason other than a missing row or a cancelled request.
// Writes must never go through here.
func readWithRetry(ctx context.Context, op string, read func() error) error {
	err := read()
	if err == nil || !retryable(ctx, err) {
		return err
	}
	log.Warn().Err(err).Str("op", op).Msg("Read failed, retrying once")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(readRetryDelay):
	}
	return read()
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
