package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const CodeDuplicateQuestion = "DUPLICATE_QUESTION"

type QuestionService interface {
	ListQuestions(ctx context.Context, query dto.QuestionListQuery) (*dto.QuestionListResponse, error)
	GetQuestion(ctx context.Context, id uint) (*dto.QuestionResponse, error)
	CreateQuestion(ctx context.Context, caller auth.Identity, req dto.QuestionRequest) (*dto.QuestionResponse, error)
	// UpdateQuestion edits in place, or retires the question and stores the
	// edit as a new live copy when a submitted session references it.
	UpdateQuestion(ctx context.Context, caller auth.Identity, id uint, req dto.QuestionRequest) (*dto.QuestionResponse, error)
	DeleteQuestion(ctx context.Context, id uint) error
}

type questionService struct {
	repo      repository.QuestionRepository
	validator *QuestionValidator
}

func NewQuestionService(repo repository.QuestionRepository, validator *QuestionValidator) QuestionService {
	return &questionService{repo: repo, validator: validator}
}

func toQuestionResponse(q *model.Question) *dto.QuestionResponse {
	var resp dto.QuestionResponse
	copier.Copy(&resp, q)
	return &resp
}

func (s *questionService) ListQuestions(ctx context.Context, query dto.QuestionListQuery) (*dto.QuestionListResponse, error) {
	var filter repository.QuestionFilter
	if c := strings.TrimSpace(query.Category); c != "" {
		filter.Category = &c
	}
	if d := strings.ToLower(strings.TrimSpace(query.Difficulty)); d != "" {
		filter.Difficulty = &d
	}
	filter.Search = strings.TrimSpace(query.Search)

	page := pageOf(query.PageQuery)
	questions, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, apperror.FromStore("questions", err)
	}
	resp := &dto.QuestionListResponse{Total: total, Limit: page.Limit, Offset: page.Offset}
	resp.Items = make([]dto.QuestionResponse, 0, len(questions))
	copier.Copy(&resp.Items, &questions)
	return resp, nil
}

func (s *questionService) GetQuestion(ctx context.Context, id uint) (*dto.QuestionResponse, error) {
	question, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore("question", err)
	}
	return toQuestionResponse(question), nil
}

// build validates the request with the upload row rules and checks the text
// key against live questions other than self.
func (s *questionService) build(ctx context.Context, req dto.QuestionRequest, self uint) (*model.Question, error) {
	row := dto.UploadQuestion{
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectAnswer: req.CorrectAnswer,
	}
	if req.Category != nil {
		row.Category = *req.Category
	}
	if req.Difficulty != nil {
		row.Difficulty = *req.Difficulty
	}
	question, reasons := s.validator.Validate(row)
	if len(reasons) > 0 {
		details := make([]string, len(reasons))
		for i, r := range reasons {
			details[i] = r.Code + ": " + r.Message
		}
		return nil, apperror.Validation(reasons[0].Code, "question is not valid", details...)
	}

	existing, err := s.repo.FindLiveByTextKeys(ctx, []string{question.TextKey})
	if err != nil {
		return nil, apperror.FromStore("questions", err)
	}
	if id, dup := existing[question.TextKey]; dup && id != self {
		return nil, apperror.Validation(CodeDuplicateQuestion, "a live question with the same text already exists")
	}
	return question, nil
}

func duplicateOrStore(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Validation(CodeDuplicateQuestion, "a live question with the same text already exists")
	}
	return apperror.FromStore("question", err)
}

func (s *questionService) CreateQuestion(ctx context.Context, caller auth.Identity, req dto.QuestionRequest) (*dto.QuestionResponse, error) {
	question, err := s.build(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	createdBy := caller.UserID
	question.CreatedBy = &createdBy

	if err := s.repo.Create(ctx, question); err != nil {
		log.Error().Err(err).Msg("Failed to create question in service")
		return nil, duplicateOrStore(err)
	}
	log.Info().Uint("questionID", question.ID).Str("userID", caller.UserID.String()).Msg("Question created")
	return toQuestionResponse(question), nil
}

func (s *questionService) UpdateQuestion(ctx context.Context, caller auth.Identity, id uint, req dto.QuestionRequest) (*dto.QuestionResponse, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore("question", err)
	}
	if current.Retired {
		return nil, apperror.State("QUESTION_RETIRED", "retired questions cannot be edited")
	}
	edited, err := s.build(ctx, req, id)
	if err != nil {
		return nil, err
	}

	referenced, err := s.repo.IsReferencedBySubmitted(ctx, id)
	if err != nil {
		return nil, apperror.FromStore("question", err)
	}

	if referenced {
		edited.CreatedBy = current.CreatedBy
		if err := s.repo.ReplaceWithCopy(ctx, id, edited); err != nil {
			return nil, duplicateOrStore(err)
		}
		log.Info().Uint("questionID", id).Uint("copyID", edited.ID).Msg("Referenced question retired and replaced by an edited copy")
		return toQuestionResponse(edited), nil
	}

	edited.ID = current.ID
	edited.CreatedBy = current.CreatedBy
	edited.CreatedAt = current.CreatedAt
	if err := s.repo.Update(ctx, edited); err != nil {
		return nil, duplicateOrStore(err)
	}
	log.Info().Uint("questionID", id).Str("userID", caller.UserID.String()).Msg("Question updated")
	return toQuestionResponse(edited), nil
}

func (s *questionService) DeleteQuestion(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return apperror.FromStore("question", err)
	}
	referenced, err := s.repo.IsReferencedBySubmitted(ctx, id)
	if err != nil {
		return apperror.FromStore("question", err)
	}
	if referenced {
		// Results of submitted sessions still show it.
		if err := s.repo.Retire(ctx, id); err != nil {
			return apperror.FromStore("question", err)
		}
		log.Info().Uint("questionID", id).Msg("Referenced question retired instead of deleted")
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.FromStore("question", err)
	}
	log.Info().Uint("questionID", id).Msg("Question deleted")
	return nil
}
