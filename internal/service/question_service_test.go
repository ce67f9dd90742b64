package service

import (
	"context"
	"testing"

	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/repository"
)

func newTestQuestionService(repo *fakeQuestionRepo) QuestionService {
	return NewQuestionService(repo, newQuestionValidator(TextKeyPolicy{CollapseWhitespace: true}))
}

func questionRequest(text string) dto.QuestionRequest {
	category := "Math"
	return dto.QuestionRequest{
		QuestionText:  text,
		OptionA:       "1",
		OptionB:       "2",
		OptionC:       "3",
		OptionD:       "4",
		CorrectAnswer: "c",
		Category:      &category,
	}
}

func TestCreateQuestion(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo)
	caller := adminIdentity()

	resp, err := svc.CreateQuestion(context.Background(), caller, questionRequest("What is 1+2?"))
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	if resp.ID == 0 || resp.CorrectAnswer != "C" || resp.Category == nil || *resp.Category != "Math" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if stored := repo.questions[resp.ID]; stored.CreatedBy == nil || *stored.CreatedBy != caller.UserID {
		t.Errorf("created_by not stored")
	}

	_, err = svc.CreateQuestion(context.Background(), caller, questionRequest("  WHAT is 1+2? "))
	assertAppError(t, err, apperror.KindValidation, CodeDuplicateQuestion)

	bad := questionRequest("Another one")
	bad.CorrectAnswer = "X"
	_, err = svc.CreateQuestion(context.Background(), caller, bad)
	assertAppError(t, err, apperror.KindValidation, ReasonInvalidAnswerKey)
}

func TestUpdateUnreferencedQuestionInPlace(t *testing.T) {
	repo := newFakeQuestionRepo()
	q := repo.seed("What is 1+2?", "C", "math")
	svc := newTestQuestionService(repo)

	req := questionRequest("What is 1 + 2?")
	resp, err := svc.UpdateQuestion(context.Background(), adminIdentity(), q.ID, req)
	if err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if resp.ID != q.ID || resp.QuestionText != "What is 1 + 2?" {
		t.Fatalf("expected in-place edit, got %+v", resp)
	}
	if len(repo.questions) != 1 {
		t.Errorf("no copy should be made, have %d questions", len(repo.questions))
	}

	// Saving the same text again must not collide with itself.
	if _, err := svc.UpdateQuestion(context.Background(), adminIdentity(), q.ID, req); err != nil {
		t.Fatalf("re-saving unchanged text: %v", err)
	}
}

func TestUpdateReferencedQuestionCopiesOnWrite(t *testing.T) {
	repo := newFakeQuestionRepo()
	q := repo.seed("What is 1+2?", "C", "math")
	repo.referenced[q.ID] = true
	svc := newTestQuestionService(repo)

	resp, err := svc.UpdateQuestion(context.Background(), adminIdentity(), q.ID, questionRequest("What is 1+2?"))
	if err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if resp.ID == q.ID {
		t.Fatalf("referenced question edited in place")
	}
	if !repo.questions[q.ID].Retired || repo.questions[q.ID].OptionA != "a" {
		t.Errorf("original should be retired and untouched: %+v", repo.questions[q.ID])
	}

	_, err = svc.UpdateQuestion(context.Background(), adminIdentity(), q.ID, questionRequest("Anything"))
	assertAppError(t, err, apperror.KindState, "QUESTION_RETIRED")
}

func TestUpdateRejectsCollisionWithOtherQuestion(t *testing.T) {
	repo := newFakeQuestionRepo()
	repo.seed("What is 1+2?", "C", "math")
	other := repo.seed("What is 2+2?", "D", "math")
	svc := newTestQuestionService(repo)

	_, err := svc.UpdateQuestion(context.Background(), adminIdentity(), other.ID, questionRequest("what is 1+2?"))
	assertAppError(t, err, apperror.KindValidation, CodeDuplicateQuestion)
}

func TestDeleteQuestion(t *testing.T) {
	repo := newFakeQuestionRepo()
	used := repo.seed("Used", "A", "")
	unused := repo.seed("Unused", "A", "")
	repo.referenced[used.ID] = true
	svc := newTestQuestionService(repo)
	ctx := context.Background()

	if err := svc.DeleteQuestion(ctx, used.ID); err != nil {
		t.Fatalf("DeleteQuestion(used): %v", err)
	}
	if !repo.questions[used.ID].Retired || repo.deleted[used.ID] {
		t.Errorf("referenced question should be retired, not deleted")
	}
	if err := svc.DeleteQuestion(ctx, unused.ID); err != nil {
		t.Fatalf("DeleteQuestion(unused): %v", err)
	}
	if !repo.deleted[unused.ID] {
		t.Errorf("unreferenced question should be deleted")
	}

	err := svc.DeleteQuestion(ctx, unused.ID)
	assertAppError(t, err, apperror.KindNotFound, "NOT_FOUND")

	// Retired questions stay out of quizzes but results still resolve them.
	picked, _ := repo.PickRandom(ctx, repository.QuestionFilter{}, 10)
	if len(picked) != 0 {
		t.Errorf("retired or deleted questions were picked: %+v", picked)
	}
	found, _ := repo.FindByIDs(ctx, []uint{used.ID, unused.ID})
	if len(found) != 2 {
		t.Errorf("scoring lookups should still find both, got %d", len(found))
	}
}

func TestListQuestionsFilters(t *testing.T) {
	repo := newFakeQuestionRepo()
	repo.seed("Alpha", "A", "math")
	repo.seed("Beta", "A", "geo")
	repo.seed("Gamma alpha", "A", "math")
	svc := newTestQuestionService(repo)

	resp, err := svc.ListQuestions(context.Background(), dto.QuestionListQuery{Category: "MATH", Search: "alpha"})
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("got %d of %d, want 2 of 2", len(resp.Items), resp.Total)
	}
	if resp.Items[0].QuestionText != "Alpha" || resp.Items[0].ID == 0 {
		t.Errorf("items not mapped: %+v", resp.Items[0])
	}
}
