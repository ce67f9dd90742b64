package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"github.com/rs/zerolog/log"
)

// Row statuses of an upload report.
const (
	RowValid     = "valid"
	RowInvalid   = "invalid"
	RowDuplicate = "duplicate"
)

// Duplicate sources.
const (
	DuplicateInBatch  = "batch"
	DuplicateExisting = "existing"
)

// RowOutcome is the verdict on one uploaded row: ValidRow, InvalidRow or
// DuplicateRow.
type RowOutcome interface {
	Row() int
	isRowOutcome()
}

type ValidRow struct {
	Number   int
	Input    dto.UploadQuestion
	Question *model.Question
}

type InvalidRow struct {
	Number  int
	Input   dto.UploadQuestion
	Reasons []dto.RowReason
}

type DuplicateRow struct {
	Number int
	Input  dto.UploadQuestion
	Source string
	// FirstRow is set for in-batch duplicates, QuestionID for stored ones.
	FirstRow   int
	QuestionID uint
}

func (r ValidRow) Row() int     { return r.Number }
func (r InvalidRow) Row() int   { return r.Number }
func (r DuplicateRow) Row() int { return r.Number }

func (ValidRow) isRowOutcome()     {}
func (InvalidRow) isRowOutcome()   {}
func (DuplicateRow) isRowOutcome() {}

type UploadService interface {
	// Validate parses and checks a file without writing anything.
	Validate(ctx context.Context, filename string, r io.Reader) (*dto.UploadReport, error)
	// BulkInsertFile validates the file again and stores its valid rows.
	BulkInsertFile(ctx context.Context, caller auth.Identity, filename string, r io.Reader) (*dto.BulkInsertResponse, error)
	// BulkInsertRows does the same for rows already reviewed by the admin.
	BulkInsertRows(ctx context.Context, caller auth.Identity, rows []dto.UploadQuestion) (*dto.BulkInsertResponse, error)
}

type uploadService struct {
	parser       *SpreadsheetParser
	validator    *QuestionValidator
	questionRepo repository.QuestionRepository
}

func NewUploadService(parser *SpreadsheetParser, validator *QuestionValidator, questionRepo repository.QuestionRepository) UploadService {
	return &uploadService{parser: parser, validator: validator, questionRepo: questionRepo}
}

func (s *uploadService) Validate(ctx context.Context, filename string, r io.Reader) (*dto.UploadReport, error) {
	rows, err := s.parser.Parse(filename, r)
	if err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Upload validate: structural error")
		return nil, err
	}
	outcomes, err := s.evaluate(ctx, rows)
	if err != nil {
		return nil, err
	}
	report := buildReport(outcomes)
	log.Info().Str("file", filename).Int("total", report.Total).Int("valid", report.Valid).
		Int("invalid", report.Invalid).Int("duplicate", report.Duplicate).Msg("Upload validated")
	return &report, nil
}

func (s *uploadService) BulkInsertFile(ctx context.Context, caller auth.Identity, filename string, r io.Reader) (*dto.BulkInsertResponse, error) {
	rows, err := s.parser.Parse(filename, r)
	if err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Upload bulk insert: structural error")
		return nil, err
	}
	return s.insert(ctx, caller, rows)
}

func (s *uploadService) BulkInsertRows(ctx context.Context, caller auth.Identity, input []dto.UploadQuestion) (*dto.BulkInsertResponse, error) {
	if len(input) > s.parser.maxRows {
		return nil, apperror.Structural(CodeTooManyRows, "too many rows in one batch")
	}
	rows := make([]SheetRow, len(input))
	for i, q := range input {
		rows[i] = SheetRow{Number: i + 1, Question: q}
	}
	return s.insert(ctx, caller, rows)
}

// evaluate validates every row, then checks valid rows for duplicates within
// the batch and against live stored questions. Invalid rows are never
// duplicate-checked.
func (s *uploadService) evaluate(ctx context.Context, rows []SheetRow) ([]RowOutcome, error) {
	outcomes := make([]RowOutcome, len(rows))
	firstByKey := make(map[string]int)
	var keys []string

	for i, row := range rows {
		question, reasons := s.validator.Validate(row.Question)
		input := Normalize(row.Question)
		if len(reasons) > 0 {
			outcomes[i] = InvalidRow{Number: row.Number, Input: input, Reasons: reasons}
			continue
		}
		if first, seen := firstByKey[question.TextKey]; seen {
			outcomes[i] = DuplicateRow{Number: row.Number, Input: input, Source: DuplicateInBatch, FirstRow: first}
			continue
		}
		firstByKey[question.TextKey] = row.Number
		keys = append(keys, question.TextKey)
		outcomes[i] = ValidRow{Number: row.Number, Input: input, Question: question}
	}

	if len(keys) == 0 {
		return outcomes, nil
	}
	existing, err := s.questionRepo.FindLiveByTextKeys(ctx, keys)
	if err != nil {
		return nil, apperror.FromStore("questions", err)
	}
	for i, o := range outcomes {
		v, ok := o.(ValidRow)
		if !ok {
			continue
		}
		if id, dup := existing[v.Question.TextKey]; dup {
			outcomes[i] = DuplicateRow{Number: v.Number, Input: v.Input, Source: DuplicateExisting, QuestionID: id}
		}
	}
	return outcomes, nil
}

func (s *uploadService) insert(ctx context.Context, caller auth.Identity, rows []SheetRow) (*dto.BulkInsertResponse, error) {
	outcomes, err := s.evaluate(ctx, rows)
	if err != nil {
		return nil, err
	}

	var (
		positions []int
		questions []model.Question
	)
	createdBy := caller.UserID
	for i, o := range outcomes {
		if v, ok := o.(ValidRow); ok {
			q := *v.Question
			if createdBy != uuid.Nil {
				q.CreatedBy = &createdBy
			}
			positions = append(positions, i)
			questions = append(questions, q)
		}
	}

	resp := &dto.BulkInsertResponse{InsertedIDs: []uint{}}
	if len(questions) > 0 {
		inserted, err := s.questionRepo.BulkInsert(ctx, questions)
		if err != nil {
			log.Error().Err(err).Int("rows", len(questions)).Msg("Bulk insert failed")
			return nil, apperror.FromStore("questions", err)
		}

		// Rows that lost the race to a concurrent insert are duplicates now.
		var lostKeys []string
		for j, ok := range inserted {
			if ok {
				resp.InsertedIDs = append(resp.InsertedIDs, questions[j].ID)
				continue
			}
			lostKeys = append(lostKeys, questions[j].TextKey)
		}
		if len(lostKeys) > 0 {
			ids, err := s.questionRepo.FindLiveByTextKeys(ctx, lostKeys)
			if err != nil {
				log.Warn().Err(err).Msg("Bulk insert: could not resolve concurrent duplicates")
				ids = map[string]uint{}
			}
			for j, ok := range inserted {
				if ok {
					continue
				}
				v := outcomes[positions[j]].(ValidRow)
				outcomes[positions[j]] = DuplicateRow{
					Number: v.Number, Input: v.Input, Source: DuplicateExisting, QuestionID: ids[questions[j].TextKey],
				}
			}
		}
	}

	resp.Report = buildReport(outcomes)
	resp.Inserted = len(resp.InsertedIDs)
	log.Info().Str("userID", caller.UserID.String()).Int("inserted", resp.Inserted).
		Int("invalid", resp.Report.Invalid).Int("duplicate", resp.Report.Duplicate).Msg("Bulk insert completed")
	return resp, nil
}

func buildReport(outcomes []RowOutcome) dto.UploadReport {
	report := dto.UploadReport{Total: len(outcomes), Rows: make([]dto.UploadRow, 0, len(outcomes))}
	for _, o := range outcomes {
		row := dto.UploadRow{RowNumber: o.Row()}
		switch v := o.(type) {
		case ValidRow:
			report.Valid++
			row.Status = RowValid
			row.Question = v.Input
		case InvalidRow:
			report.Invalid++
			row.Status = RowInvalid
			row.Question = v.Input
			row.Reasons = v.Reasons
		case DuplicateRow:
			report.Duplicate++
			row.Status = RowDuplicate
			row.Question = v.Input
			ref := &dto.DuplicateRef{Source: v.Source}
			if v.Source == DuplicateInBatch {
				first := v.FirstRow
				ref.RowNumber = &first
			} else if v.QuestionID != 0 {
				id := v.QuestionID
				ref.QuestionID = &id
			}
			row.DuplicateOf = ref
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}
