// Package textgen implements student.TextGenerator on top of the Gemini API.
//
// The Gemini client is wrapped with a rate limiter, a retrier and a circuit
// breaker. When the breaker is open, the static generator answers instead so
// callers always get deterministic text or a clear error.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/circuitbreaker"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
	"github.com/dojo-hub/dojo-community-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Gemini generator.
type Config struct {
	// APIKey is the Gemini API key. Empty selects the static generator.
	APIKey string

	// Model is the Gemini model name.
	Model string

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the client-side rate limit.
	RequestsPerSecond float64
	Burst             int

	Temperature float32
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:             "gemini-2.0-flash",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 2,
		Burst:             5,
		Temperature:       0.7,
	}
}

// ContentGenerator is the part of *genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// GEMINI GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// Generator calls Gemini for every request.
type Generator struct {
	models   ContentGenerator
	config   Config
	limiter  *RateLimiter
	retrier  *retry.Retrier
	breaker  *circuitbreaker.CircuitBreaker
	fallback student.TextGenerator
	log      *logger.Logger
}

var _ student.TextGenerator = (*Generator)(nil)

// New returns a student.TextGenerator for cfg. Without an API key it returns
// StaticGenerator.
func New(ctx context.Context, cfg Config, log *logger.Logger) (student.TextGenerator, error) {
	if cfg.APIKey == "" {
		return StaticGenerator{}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewGenerator(client.Models, cfg, log), nil
}

// NewGenerator wraps models with rate limiting, retries and a breaker.
func NewGenerator(models ContentGenerator, cfg Config, log *logger.Logger) *Generator {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("textgen"))

	g := &Generator{
		models:   models,
		config:   cfg,
		limiter:  NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		fallback: StaticGenerator{},
		log:      log,
	}
	g.retrier = retry.TextGenRetrier().With(
		retry.WithRetryIf(isTransient),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Warn("retrying text generation", logger.Int("attempt", attempt), logger.Duration("delay", delay), logger.Err(err))
		}),
	)
	g.breaker = circuitbreaker.TextGenBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed", logger.String("breaker", name), logger.String("from", from.String()), logger.String("to", to.String()))
	})
	return g
}

// Generate implements student.TextGenerator.
// While the breaker is open it answers with the static generator.
func (g *Generator) Generate(ctx context.Context, kind student.TextKind, vars map[string]string) (string, error) {
	if !kind.IsValid() {
		return "", shared.WrapError("textgen", "Generate", shared.ErrInvalidInput, "unknown text kind", fmt.Errorf("%q", kind))
	}
	prompt, err := RenderPrompt(kind, vars)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := circuitbreaker.Call(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return retry.DoWithData(ctx, g.retrier, func(ctx context.Context) (string, error) {
			return g.call(ctx, prompt)
		})
	})
	if circuitbreaker.IsRejected(err) {
		g.log.Debug("breaker open, using static text", logger.String("kind", string(kind)))
		return g.fallback.Generate(ctx, kind, vars)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", shared.WrapError("textgen", "Generate", shared.ErrTextGenTimeout, "text generation timed out", err)
		}
		if errors.Is(err, shared.ErrTextGenEmpty) {
			return "", err
		}
		return "", shared.WrapError("textgen", "Generate", shared.ErrTextGenUnavailable, "text generation failed", err)
	}

	g.log.Debug("text generated", logger.String("kind", string(kind)), logger.Latency(time.Since(start)), logger.Int("length", len(text)))
	return text, nil
}

func (g *Generator) call(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", retry.Permanent(err)
	}

	resp, err := g.models.GenerateContent(ctx, g.config.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr(g.config.Temperature),
		},
	)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", retry.Permanent(shared.ErrTextGenEmpty)
	}
	return text, nil
}

// BreakerState exposes the breaker state for health reporting.
func (g *Generator) BreakerState() circuitbreaker.State {
	return g.breaker.State()
}

// isTransient reports whether a Gemini error is worth retrying.
// Client errors (4xx other than 429) are not.
func isTransient(err error) bool {
	if retry.IsPermanent(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return true
}
