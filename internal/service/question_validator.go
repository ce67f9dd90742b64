package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"golang.org/x/text/cases"
)

// Row reason codes.
const (
	ReasonMissingField     = "MISSING_FIELD"
	ReasonInvalidAnswerKey = "INVALID_ANSWER_KEY"
	ReasonInvalidDiff      = "INVALID_DIFFICULTY"
	ReasonFieldTooLong     = "FIELD_TOO_LONG"
)

const maxFieldLength = 2000

// questionRow carries the normalised values of one row through the struct rules.
type questionRow struct {
	QuestionText  string `json:"question_text" validate:"required,max=2000"`
	OptionA       string `json:"option_a" validate:"required,max=2000"`
	OptionB       string `json:"option_b" validate:"required,max=2000"`
	OptionC       string `json:"option_c" validate:"required,max=2000"`
	OptionD       string `json:"option_d" validate:"required,max=2000"`
	CorrectAnswer string `json:"correct_answer" validate:"required,oneof=A B C D"`
	Category      string `json:"category" validate:"max=2000"`
	Difficulty    string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// TextKeyPolicy turns question text into the key used for duplicate detection.
type TextKeyPolicy struct {
	CollapseWhitespace bool
}

func (p TextKeyPolicy) Key(text string) string {
	s := strings.TrimSpace(text)
	if p.CollapseWhitespace {
		s = strings.Join(strings.Fields(s), " ")
	}
	// A Caser keeps state; one per call.
	return cases.Fold().String(s)
}

// QuestionValidator applies the row rules shared by uploads and the admin editor.
type QuestionValidator struct {
	validate *validator.Validate
	keys     TextKeyPolicy
}

func NewQuestionValidator(cfg *config.Config) *QuestionValidator {
	return newQuestionValidator(TextKeyPolicy{CollapseWhitespace: cfg.Upload.CollapseWhitespace})
}

func newQuestionValidator(keys TextKeyPolicy) *QuestionValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &QuestionValidator{validate: v, keys: keys}
}

func (v *QuestionValidator) TextKey(text string) string {
	return v.keys.Key(text)
}

// Normalize trims every field, upper-cases the answer key and lower-cases the
// difficulty.
func Normalize(in dto.UploadQuestion) dto.UploadQuestion {
	return dto.UploadQuestion{
		QuestionText:  strings.TrimSpace(in.QuestionText),
		OptionA:       strings.TrimSpace(in.OptionA),
		OptionB:       strings.TrimSpace(in.OptionB),
		OptionC:       strings.TrimSpace(in.OptionC),
		OptionD:       strings.TrimSpace(in.OptionD),
		CorrectAnswer: strings.ToUpper(strings.TrimSpace(in.CorrectAnswer)),
		Category:      strings.TrimSpace(in.Category),
		Difficulty:    strings.ToLower(strings.TrimSpace(in.Difficulty)),
	}
}

// Validate checks one row. On success it returns the question ready to store
// (text key set); otherwise the list of reasons, in field order.
func (v *QuestionValidator) Validate(in dto.UploadQuestion) (*model.Question, []dto.RowReason) {
	row := Normalize(in)
	err := v.validate.Struct(questionRow(row))
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, []dto.RowReason{{Code: ReasonMissingField, Message: err.Error()}}
		}
		reasons := make([]dto.RowReason, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			reasons = append(reasons, reasonFor(fe))
		}
		return nil, reasons
	}

	q := &model.Question{
		QuestionText:  row.QuestionText,
		OptionA:       row.OptionA,
		OptionB:       row.OptionB,
		OptionC:       row.OptionC,
		OptionD:       row.OptionD,
		CorrectAnswer: row.CorrectAnswer,
		TextKey:       v.keys.Key(row.QuestionText),
	}
	if row.Category != "" {
		category := row.Category
		q.Category = &category
	}
	if row.Difficulty != "" {
		difficulty := row.Difficulty
		q.Difficulty = &difficulty
	}
	return q, nil
}

func reasonFor(fe validator.FieldError) dto.RowReason {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return dto.RowReason{Code: ReasonMissingField, Field: field, Message: field + " is required"}
	case "max":
		return dto.RowReason{Code: ReasonFieldTooLong, Field: field,
			Message: fmt.Sprintf("%s is longer than %d characters", field, maxFieldLength)}
	case "oneof":
		if field == "difficulty" {
			return dto.RowReason{Code: ReasonInvalidDiff, Field: field,
				Message: fmt.Sprintf("difficulty %q is not one of %s", fe.Value(), strings.Join(model.Difficulties, ", "))}
		}
		return dto.RowReason{Code: ReasonInvalidAnswerKey, Field: field,
			Message: fmt.Sprintf("correct answer %q is not one of %s", fe.Value(), strings.Join(model.AnswerKeys, ", "))}
	}
	return dto.RowReason{Code: ReasonMissingField, Field: field, Message: fe.Error()}
}
