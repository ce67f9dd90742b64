package dto

// StartQuizRequest picks the questions of a new session. All fields are optional.
type StartQuizRequest struct {
	Count      *int    `json:"count" binding:"omitempty,min=1"`
	Category   *string `json:"category"`
	Difficulty *string `json:"difficulty"`
}

// SaveAnswerRequest records (or clears, with an empty option) one answer.
// Seq orders competing writes for the same question and must grow with every
// edit the client makes; retries resend the same seq.
type SaveAnswerRequest struct {
	SessionID      string `json:"session_id" binding:"required,uuid"`
	QuestionIndex  *int   `json:"question_index" binding:"required,min=0"`
	SelectedOption string `json:"selected_option"`
	Seq            int64  `json:"seq" binding:"required,min=1"`
}

// SaveStateRequest is the periodic autosave of position and clock.
type SaveStateRequest struct {
	SessionID      string `json:"session_id" binding:"required,uuid"`
	CurrentIndex   *int   `json:"current_index" binding:"required,min=0"`
	ElapsedSeconds *int   `json:"elapsed_seconds" binding:"required,min=0"`
	Seq            int64  `json:"seq" binding:"required,min=1"`
}

type PauseRequest struct {
	SessionID      string `json:"session_id" binding:"required,uuid"`
	ElapsedSeconds *int   `json:"elapsed_seconds" binding:"omitempty,min=0"`
}

// SessionRequest identifies the session for resume and submit.
type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required,uuid"`
}

type BookmarkRequest struct {
	SessionID     string `json:"session_id" binding:"required,uuid"`
	QuestionIndex *int   `json:"question_index" binding:"required,min=0"`
	Bookmarked    bool   `json:"bookmarked"`
}

// PageQuery is bound from ?limit=&offset=.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
