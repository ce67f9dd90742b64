package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"github.com/rs/zerolog/log"
)

const DefaultSuggestion = "Keep practising: take a short quiz in a category you have not tried yet, " +
	"then review the questions you missed before starting the next one."

const defaultSuggestionTimeout = 8 * time.Second

const suggestionPrompt = `You are a friendly study coach for a multiple-choice quiz platform.
Using the learner statistics below, write at most four short sentences of study advice.
Name the weakest categories explicitly and suggest one concrete next step. Do not use markdown.`

type SuggestionService interface {
	// Suggest never fails because of the model; it falls back to the cached
	// suggestion and then to default text.
	Suggest(ctx context.Context, caller auth.Identity) (*dto.SuggestionResponse, error)
}

type suggestionService struct {
	generator TextGenerator
	analytics AnalyticsService
	repo      repository.SuggestionRepository
	timeout   time.Duration
	now       func() time.Time
}

func NewSuggestionService(cfg *config.Config, generator TextGenerator, analytics AnalyticsService, repo repository.SuggestionRepository) SuggestionService {
	timeout := cfg.Suggestion.Timeout
	if timeout <= 0 {
		timeout = defaultSuggestionTimeout
	}
	return &suggestionService{
		generator: generator,
		analytics: analytics,
		repo:      repo,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func learnerContext(d *dto.DashboardResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quizzes started: %d\nQuizzes submitted: %d\nAverage score: %.1f%%\nBest score: %d%%\n",
		d.SessionsStarted, d.SessionsSubmitted, d.AveragePercentage, d.BestPercentage)

	cats := append([]dto.CategoryAccuracy(nil), d.Categories...)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].AccuracyPc < cats[j].AccuracyPc })
	if len(cats) == 0 {
		b.WriteString("No answered questions yet.\n")
	}
	for _, c := range cats {
		fmt.Fprintf(&b, "Category %q: %d of %d correct (%.1f%%)\n", c.Category, c.Correct, c.Answered, c.AccuracyPc)
	}
	return b.String()
}

func (s *suggestionService) Suggest(ctx context.Context, caller auth.Identity) (*dto.SuggestionResponse, error) {
	dashboard, err := s.analytics.Dashboard(ctx, caller)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, genErr := s.generator.Generate(genCtx, suggestionPrompt, learnerContext(dashboard))
	if genErr == nil {
		now := s.now()
		if err := s.repo.Upsert(ctx, &model.Suggestion{UserID: caller.UserID, Content: text, GeneratedAt: now}); err != nil {
			log.Warn().Err(err).Str("userID", caller.UserID.String()).Msg("Could not cache generated suggestion")
		}
		return &dto.SuggestionResponse{Content: text, Source: dto.SuggestionGenerated, GeneratedAt: &now}, nil
	}
	log.Warn().Err(genErr).Str("userID", caller.UserID.String()).Msg("Suggestion generation failed, falling back")

	cached, err := s.repo.FindByUser(ctx, caller.UserID)
	if err == nil {
		at := cached.GeneratedAt
		return &dto.SuggestionResponse{Content: cached.Content, Source: dto.SuggestionCached, GeneratedAt: &at}, nil
	}
	if !apperror.IsKind(apperror.FromStore("suggestion", err), apperror.KindNotFound) {
		log.Warn().Err(err).Str("userID", caller.UserID.String()).Msg("Could not read cached suggestion")
	}
	return &dto.SuggestionResponse{Content: DefaultSuggestion, Source: dto.SuggestionDefault}, nil
}
