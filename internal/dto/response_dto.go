package dto

import "time"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type CategoryAccuracy struct {
	Category   string  `json:"category"`
	Answered   int64   `json:"answered"`
	Correct    int64   `json:"correct"`
	AccuracyPc float64 `json:"accuracy_pct"`
}

type DashboardResponse struct {
	SessionsStarted   int64              `json:"sessions_started"`
	SessionsSubmitted int64              `json:"sessions_submitted"`
	AveragePercentage float64            `json:"average_percentage"`
	BestPercentage    int                `json:"best_percentage"`
	Categories        []CategoryAccuracy `json:"categories"`
}

// Suggestion sources.
const (
	SuggestionGenerated = "generated"
	SuggestionCached    = "cached"
	SuggestionDefault   = "default"
)

type SuggestionResponse struct {
	Content     string     `json:"content"`
	Source      string     `json:"source"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}
