package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Accepted answer keys, in option order.
var AnswerKeys = []string{"A", "B", "C", "D"}

var Difficulties = []string{"easy", "medium", "hard"}

type Question struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	QuestionText  string         `json:"question_text" gorm:"type:text;not null"`
	OptionA       string         `json:"option_a" gorm:"type:text;not null"`
	OptionB       string         `json:"option_b" gorm:"type:text;not null"`
	OptionC       string         `json:"option_c" gorm:"type:text;not null"`
	OptionD       string         `json:"option_d" gorm:"type:text;not null"`
	CorrectAnswer string         `json:"correct_answer" gorm:"size:1;not null"`
	Category      *string        `json:"category,omitempty" gorm:"index"`
	Difficulty    *string        `json:"difficulty,omitempty" gorm:"index"`
	TextKey       string         `json:"-" gorm:"not null;uniqueIndex:idx_questions_live_text_key,where:retired = false AND deleted_at IS NULL"`
	Retired       bool           `json:"retired" gorm:"not null;default:false"`
	CreatedBy     *uuid.UUID     `json:"created_by,omitempty" gorm:"type:uuid"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Option returns the option text for an answer key, or "" for an unknown key.
func (q *Question) Option(key string) string {
	switch key {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}
