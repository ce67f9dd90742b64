package service

import (
	"context"
	"strings"
	"testing"

	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/dto"
)

func newTestUploadService(repo *fakeQuestionRepo) UploadService {
	cfg := testConfig()
	return NewUploadService(NewSpreadsheetParser(cfg), NewQuestionValidator(cfg), repo)
}

const uploadHeader = "question,option_a,option_b,option_c,option_d,correct_answer,category,difficulty\n"

func TestValidateReportsRowsWithoutWriting(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestUploadService(repo)
	body := uploadHeader +
		"What is 2+2?,3,4,5,22,B,math,easy\n" +
		"Capital of Peru?,Lima,,Quito,Bogota,A,geo,\n" +
		"Boiling point of water in C?,90,100,110,120,b,science,medium\n"

	report, err := svc.Validate(context.Background(), "batch.csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.Total != 3 || report.Valid != 2 || report.Invalid != 1 || report.Duplicate != 0 {
		t.Fatalf("counts = %+v", report)
	}
	bad := report.Rows[1]
	if bad.RowNumber != 3 || bad.Status != RowInvalid {
		t.Fatalf("unexpected row %+v", bad)
	}
	if len(bad.Reasons) != 1 || bad.Reasons[0].Code != ReasonMissingField || bad.Reasons[0].Field != "option_b" {
		t.Fatalf("reasons = %+v", bad.Reasons)
	}
	if report.Rows[2].Question.CorrectAnswer != "B" {
		t.Errorf("report should echo the normalised row, got %q", report.Rows[2].Question.CorrectAnswer)
	}
	if len(repo.questions) != 0 {
		t.Fatalf("validate wrote %d questions", len(repo.questions))
	}
}

func TestBulkInsertSkipsBatchDuplicates(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestUploadService(repo)
	body := uploadHeader +
		"What is 2+2?,3,4,5,22,B,math,easy\n" +
		"what is 2+2?  ,1,4,6,8,B,math,easy\n"
	caller := adminIdentity()

	resp, err := svc.BulkInsertFile(context.Background(), caller, "batch.csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("BulkInsertFile: %v", err)
	}
	if resp.Inserted != 1 || len(resp.InsertedIDs) != 1 {
		t.Fatalf("inserted = %d, want 1", resp.Inserted)
	}
	dup := resp.Report.Rows[1]
	if dup.Status != RowDuplicate || dup.DuplicateOf == nil || dup.DuplicateOf.Source != DuplicateInBatch {
		t.Fatalf("second row should be an in-batch duplicate: %+v", dup)
	}
	if dup.DuplicateOf.RowNumber == nil || *dup.DuplicateOf.RowNumber != 2 {
		t.Fatalf("duplicate should point at row 2: %+v", dup.DuplicateOf)
	}
	stored := repo.questions[resp.InsertedIDs[0]]
	if stored.CreatedBy == nil || *stored.CreatedBy != caller.UserID {
		t.Errorf("created_by not recorded")
	}
}

func TestBulkInsertSkipsStoredDuplicates(t *testing.T) {
	repo := newFakeQuestionRepo()
	existing := repo.seed("What is 2+2?", "B", "math")
	svc := newTestUploadService(repo)

	rows := []dto.UploadQuestion{
		{QuestionText: "WHAT IS 2+2?", OptionA: "1", OptionB: "4", OptionC: "2", OptionD: "3", CorrectAnswer: "B"},
		{QuestionText: "What is 3+3?", OptionA: "1", OptionB: "6", OptionC: "2", OptionD: "3", CorrectAnswer: "B"},
		{QuestionText: "What is 4+4?", OptionA: "1", OptionB: "8", OptionC: "2", CorrectAnswer: "B"},
	}
	resp, err := svc.BulkInsertRows(context.Background(), adminIdentity(), rows)
	if err != nil {
		t.Fatalf("BulkInsertRows: %v", err)
	}
	if resp.Inserted != 1 || resp.Report.Duplicate != 1 || resp.Report.Invalid != 1 {
		t.Fatalf("report = %+v", resp.Report)
	}
	ref := resp.Report.Rows[0].DuplicateOf
	if ref == nil || ref.Source != DuplicateExisting || ref.QuestionID == nil || *ref.QuestionID != existing.ID {
		t.Fatalf("first row should point at question %d: %+v", existing.ID, ref)
	}
	if resp.Report.Rows[0].RowNumber != 1 {
		t.Errorf("JSON rows are numbered from 1")
	}
}

func TestBulkInsertRetiredQuestionIsNotDuplicate(t *testing.T) {
	repo := newFakeQuestionRepo()
	old := repo.seed("What is 2+2?", "B", "math")
	old.Retired = true
	repo.questions[old.ID].Retired = true
	svc := newTestUploadService(repo)

	resp, err := svc.BulkInsertRows(context.Background(), adminIdentity(), []dto.UploadQuestion{
		{QuestionText: "What is 2+2?", OptionA: "1", OptionB: "4", OptionC: "2", OptionD: "3", CorrectAnswer: "B"},
	})
	if err != nil {
		t.Fatalf("BulkInsertRows: %v", err)
	}
	if resp.Inserted != 1 {
		t.Fatalf("retired questions must not block inserts: %+v", resp.Report)
	}
}

func TestBulkInsertLosingConcurrentInsertReportsDuplicate(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestUploadService(repo)
	repo.stolenKeys[TextKeyPolicy{CollapseWhitespace: true}.Key("Race question")] = 77

	resp, err := svc.BulkInsertRows(context.Background(), adminIdentity(), []dto.UploadQuestion{
		{QuestionText: "Race question", OptionA: "1", OptionB: "2", OptionC: "3", OptionD: "4", CorrectAnswer: "A"},
		{QuestionText: "Calm question", OptionA: "1", OptionB: "2", OptionC: "3", OptionD: "4", CorrectAnswer: "A"},
	})
	if err != nil {
		t.Fatalf("BulkInsertRows: %v", err)
	}
	if resp.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1", resp.Inserted)
	}
	lost := resp.Report.Rows[0]
	if lost.Status != RowDuplicate || lost.DuplicateOf.QuestionID == nil || *lost.DuplicateOf.QuestionID != 77 {
		t.Fatalf("lost row = %+v", lost)
	}
	if resp.Report.Valid != 1 || resp.Report.Duplicate != 1 {
		t.Fatalf("report counts = %+v", resp.Report)
	}
}

func TestBulkInsertRowsLimit(t *testing.T) {
	svc := newTestUploadService(newFakeQuestionRepo())
	rows := make([]dto.UploadQuestion, 101)
	_, err := svc.BulkInsertRows(context.Background(), adminIdentity(), rows)
	assertAppError(t, err, apperror.KindStructural, CodeTooManyRows)
}
