package dto

import "time"

// QuestionRequest creates or edits a question. Field rules are the same as
// for an uploaded row and are checked by the service.
type QuestionRequest struct {
	QuestionText  string  `json:"question_text"`
	OptionA       string  `json:"option_a"`
	OptionB       string  `json:"option_b"`
	OptionC       string  `json:"option_c"`
	OptionD       string  `json:"option_d"`
	CorrectAnswer string  `json:"correct_answer"`
	Category      *string `json:"category"`
	Difficulty    *string `json:"difficulty"`
}

type QuestionResponse struct {
	ID            uint      `json:"id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectAnswer string    `json:"correct_answer"`
	Category      *string   `json:"category,omitempty"`
	Difficulty    *string   `json:"difficulty,omitempty"`
	Retired       bool      `json:"retired"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuestionListQuery is bound from the admin list query string.
type QuestionListQuery struct {
	Category   string `form:"category"`
	Difficulty string `form:"difficulty"`
	Search     string `form:"search"`
	PageQuery
}

type QuestionListResponse struct {
	Items  []QuestionResponse `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type UserResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type UserListResponse struct {
	Items  []UserResponse `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// UploadQuestion is one uploaded row as read from the file, after trimming.
type UploadQuestion struct {
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"correct_answer"`
	Category      string `json:"category,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
}

type RowReason struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// DuplicateRef points at what a duplicate row collides with: an earlier row
// of the same batch or a stored question.
type DuplicateRef struct {
	Source     string `json:"source"`
	RowNumber  *int   `json:"row_number,omitempty"`
	QuestionID *uint  `json:"question_id,omitempty"`
}

type UploadRow struct {
	RowNumber   int            `json:"row_number"`
	Status      string         `json:"status"`
	Reasons     []RowReason    `json:"reasons,omitempty"`
	DuplicateOf *DuplicateRef  `json:"duplicate_of,omitempty"`
	Question    UploadQuestion `json:"question"`
}

type UploadReport struct {
	Total     int         `json:"total"`
	Valid     int         `json:"valid"`
	Invalid   int         `json:"invalid"`
	Duplicate int         `json:"duplicate"`
	Rows      []UploadRow `json:"rows"`
}

// BulkInsertRequest is the JSON form of bulk insert: the rows the admin
// reviewed. They are validated again before anything is written.
type BulkInsertRequest struct {
	Rows []UploadQuestion `json:"rows" binding:"required,min=1"`
}

type BulkInsertResponse struct {
	Report      UploadReport `json:"report"`
	Inserted    int          `json:"inserted"`
	InsertedIDs []uint       `json:"inserted_ids"`
}

type ChurnedUser struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

type ChurnReport struct {
	InactiveDays int           `json:"inactive_days"`
	TotalUsers   int64         `json:"total_users"`
	ActiveUsers  int64         `json:"active_users"`
	ChurnedUsers int64         `json:"churned_users"`
	ChurnRate    float64       `json:"churn_rate"`
	Users        []ChurnedUser `json:"users"`
}
