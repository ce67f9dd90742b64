package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/quizhub/config"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"google.golang.org/api/option"
)

// ErrGeneratorUnavailable is returned when no model is configured.
var ErrGeneratorUnavailable = errors.New("text generator is not configured")

// TextGenerator produces text from an instruction prompt and the material
// the prompt refers to.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, material string) (string, error)
}

type geminiLLMService struct {
	model *genai.GenerativeModel
}

// NewGeminiLLMService builds the Gemini-backed generator. Without an API key
// it still returns a generator, which always fails with ErrGeneratorUnavailable.
func NewGeminiLLMService(lc fx.Lifecycle, cfg *config.Config) (TextGenerator, error) {
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Suggestions will use fallback text.")
		return &geminiLLMService{}, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	model := client.GenerativeModel(cfg.Gemini.Model)
	model.SetTemperature(0.4)
	model.SetMaxOutputTokens(512)
	return &geminiLLMService{model: model}, nil
}

func (s *geminiLLMService) Generate(ctx context.Context, prompt, material string) (string, error) {
	if s.model == nil {
		return "", ErrGeneratorUnavailable
	}

	var b strings.Builder
	b.WriteString(prompt)
	if material != "" {
		b.WriteString("\n\n---\n")
		b.WriteString(material)
	}

	resp, err := s.model.GenerateContent(ctx, genai.Text(b.String()))
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error during generation")
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Warn().Msg("Gemini returned no candidates or parts in response.")
		return "", errors.New("gemini returned no content")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", errors.New("gemini returned empty text")
	}
	return out, nil
}
