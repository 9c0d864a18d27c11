package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hiringlab/assessrec/internal/domain"
	"github.com/hiringlab/assessrec/internal/metrics"
)

const defaultModel = "gemini-2.0-flash"

// contentCaller is the slice of the genai client the generator needs.
// *genai.Models satisfies it; tests substitute a stub.
type contentCaller interface {
	GenerateContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator produces recommendation text via the Gemini API.
type Generator struct {
	models    contentCaller
	modelName string
	timeout   time.Duration
	logger    *zap.Logger
}

// Config holds the generation provider settings.
type Config struct {
	APIKey     string
	Model      string
	TimeoutSec int
	Logger     *zap.Logger
}

// NewGenerator creates a Gemini-backed text generator.
func NewGenerator(ctx context.Context, cfg *Config) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:    client.Models,
		modelName: model,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Generate sends the prompt to Gemini and returns the concatenated textual response.
// All provider failures map to domain.ErrUpstreamUnavailable.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("empty prompt: %w", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.modelName, "error").Inc()
		g.logger.Warn("Generation request failed",
			zap.String("model", g.modelName),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", fmt.Errorf("generate content: %v: %w", err, domain.ErrUpstreamUnavailable)
	}

	output := collectText(resp)
	if output == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.modelName, "error").Inc()
		return "", fmt.Errorf("empty generation response: %w", domain.ErrUpstreamUnavailable)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.modelName, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.modelName).Observe(duration.Seconds())

	g.logger.Debug("Generation request completed",
		zap.String("model", g.modelName),
		zap.Duration("duration", duration),
		zap.Int("response_chars", len(output)),
	)

	return output, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.modelName
}

func collectText(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
