package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionPaused     SessionStatus = "paused"
	SessionSubmitted  SessionStatus = "submitted"
)

// Terminal reports whether no further mutation is allowed.
func (s SessionStatus) Terminal() bool { return s == SessionSubmitted }

// CanTransition encodes the forward-only lifecycle:
// in_progress <-> paused, and either of them -> submitted.
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	switch s {
	case SessionInProgress:
		return to == SessionPaused || to == SessionSubmitted
	case SessionPaused:
		return to == SessionInProgress || to == SessionSubmitted
	default:
		return false
	}
}

type QuizSession struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	QuestionIDs    pq.Int64Array `json:"question_ids" gorm:"type:bigint[];not null"`
	Status         SessionStatus `json:"status" gorm:"size:16;not null;default:'in_progress';index"`
	CurrentIndex   int           `json:"current_index" gorm:"not null;default:0"`
	ElapsedSeconds int           `json:"elapsed_seconds" gorm:"not null;default:0"`
	ActiveSince    *time.Time    `json:"active_since,omitempty"`
	PausedAt       *time.Time    `json:"paused_at,omitempty"`
	StateSeq       int64         `json:"state_seq" gorm:"not null;default:0"`
	Score          *int          `json:"score,omitempty"`
	Percentage     *int          `json:"percentage,omitempty"`
	TotalQuestions int           `json:"total_questions" gorm:"not null"`
	StartedAt      time.Time     `json:"started_at"`
	SubmittedAt    *time.Time    `json:"submitted_at,omitempty"`
	Answers        []Answer      `json:"answers,omitempty" gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ElapsedAt is the total active time at instant now; the clock only runs
// while ActiveSince is set.
func (s *QuizSession) ElapsedAt(now time.Time) int {
	elapsed := s.ElapsedSeconds
	if s.ActiveSince != nil && now.After(*s.ActiveSince) {
		elapsed += int(now.Sub(*s.ActiveSince) / time.Second)
	}
	return elapsed
}

// QuestionAt returns the question id at index, or false when out of range.
func (s *QuizSession) QuestionAt(index int) (uint, bool) {
	if index < 0 || index >= len(s.QuestionIDs) {
		return 0, false
	}
	return uint(s.QuestionIDs[index]), true
}
