package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"go.uber.org/fx/fxtest"
	"gorm.io/gorm"
)

type stubGenerator struct {
	text     string
	err      error
	block    bool
	material string
}

func (g *stubGenerator) Generate(ctx context.Context, _ string, material string) (string, error) {
	g.material = material
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.text, g.err
}

type fakeSuggestionRepo struct {
	byUser map[uuid.UUID]model.Suggestion
}

func newFakeSuggestionRepo() *fakeSuggestionRepo {
	return &fakeSuggestionRepo{byUser: map[uuid.UUID]model.Suggestion{}}
}

func (r *fakeSuggestionRepo) FindByUser(_ context.Context, id uuid.UUID) (*model.Suggestion, error) {
	s, ok := r.byUser[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *fakeSuggestionRepo) Upsert(_ context.Context, s *model.Suggestion) error {
	r.byUser[s.UserID] = *s
	return nil
}

func newTestSuggestionService(gen TextGenerator, repo *fakeSuggestionRepo) SuggestionService {
	analytics := NewAnalyticsService(testConfig(), &fakeAnalyticsRepo{
		totals:     repository.SessionTotals{Started: 2, Submitted: 2, AveragePercentage: 55},
		categories: []repository.CategoryAccuracy{{Category: "history", Answered: 10, Correct: 3}},
	})
	return NewSuggestionService(testConfig(), gen, analytics, repo)
}

func TestSuggestGeneratesAndCaches(t *testing.T) {
	gen := &stubGenerator{text: "Review history dates."}
	repo := newFakeSuggestionRepo()
	svc := newTestSuggestionService(gen, repo)
	caller := userIdentity()

	resp, err := svc.Suggest(context.Background(), caller)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if resp.Source != dto.SuggestionGenerated || resp.Content != "Review history dates." || resp.GeneratedAt == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if repo.byUser[caller.UserID].Content != "Review history dates." {
		t.Errorf("generated text not cached")
	}
	if !strings.Contains(gen.material, `Category "history": 3 of 10 correct`) {
		t.Errorf("learner context missing category stats:\n%s", gen.material)
	}
}

func TestSuggestFallsBackToCacheOnTimeout(t *testing.T) {
	repo := newFakeSuggestionRepo()
	caller := userIdentity()
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	repo.byUser[caller.UserID] = model.Suggestion{UserID: caller.UserID, Content: "Older advice", GeneratedAt: at}
	svc := newTestSuggestionService(&stubGenerator{block: true}, repo)

	start := time.Now()
	resp, err := svc.Suggest(context.Background(), caller)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("generation was not bounded by the timeout")
	}
	if resp.Source != dto.SuggestionCached || resp.Content != "Older advice" || !resp.GeneratedAt.Equal(at) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSuggestFallsBackToDefault(t *testing.T) {
	svc := newTestSuggestionService(&stubGenerator{err: errors.New("quota exceeded")}, newFakeSuggestionRepo())

	resp, err := svc.Suggest(context.Background(), userIdentity())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if resp.Source != dto.SuggestionDefault || resp.Content != DefaultSuggestion || resp.GeneratedAt != nil {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGeminiWithoutKeyIsUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Gemini.APIKey = ""
	gen, err := NewGeminiLLMService(fxtest.NewLifecycle(t), cfg)
	if err != nil {
		t.Fatalf("NewGeminiLLMService: %v", err)
	}
	if _, err := gen.Generate(context.Background(), "prompt", ""); !errors.Is(err, ErrGeneratorUnavailable) {
		t.Fatalf("err = %v, want ErrGeneratorUnavailable", err)
	}
}
