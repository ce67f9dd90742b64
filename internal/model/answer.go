package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer is the per-question state of a quiz session. A row exists once the
// question was answered or bookmarked; SelectedOption nil means unanswered.
type Answer struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	SessionID      uuid.UUID `json:"session_id" gorm:"type:uuid;not null;uniqueIndex:idx_answers_session_question_index"`
	QuestionIndex  int       `json:"question_index" gorm:"not null;uniqueIndex:idx_answers_session_question_index"`
	QuestionID     uint      `json:"question_id" gorm:"not null;index"`
	Question       Question  `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	SelectedOption *string   `json:"selected_option,omitempty" gorm:"size:1"`
	Bookmarked     bool      `json:"bookmarked" gorm:"not null;default:false"`
	ClientSeq      int64     `json:"-" gorm:"not null;default:0"`
	IsCorrect      *bool     `json:"is_correct,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Answer) TableName() string { return "answers" }

func (a *Answer) Answered() bool {
	return a.SelectedOption != nil && *a.SelectedOption != ""
}
