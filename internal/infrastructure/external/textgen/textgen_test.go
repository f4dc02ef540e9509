package textgen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
)

type fakeModels struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
	calls   int
	block   bool
}

type reply struct {
	text string
	err  error
}

func (f *fakeModels) GenerateContent(ctx context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.calls++
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	}
	var r reply
	if len(f.replies) > 0 {
		r = f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
	}
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(r.text, genai.RoleModel)}},
	}, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 100
	cfg.Timeout = time.Second
	return cfg
}

func TestGenerator_RendersPromptAndReturnsText(t *testing.T) {
	models := &fakeModels{replies: []reply{{text: "  Great class today!  "}}}
	g := NewGenerator(models, testConfig(), nil)

	text, err := g.Generate(context.Background(), student.TextPromotionMessage, map[string]string{
		"name": "Ana", "from_belt": "White", "to_belt": "Yellow",
	})
	require.NoError(t, err)
	assert.Equal(t, "Great class today!", text)
	require.Len(t, models.prompts, 1)
	assert.Contains(t, models.prompts[0], "from the White belt to the Yellow belt")
}

func TestGenerator_RetriesServerErrors(t *testing.T) {
	models := &fakeModels{replies: []reply{
		{err: genai.APIError{Code: 503, Message: "overloaded"}},
		{text: "ok"},
	}}
	g := NewGenerator(models, testConfig(), nil)

	text, err := g.Generate(context.Background(), student.TextWelcomeEmail, map[string]string{"name": "Ben"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, models.calls)
}

func TestGenerator_ClientErrorIsNotRetried(t *testing.T) {
	models := &fakeModels{replies: []reply{{err: genai.APIError{Code: 400, Message: "bad request"}}}}
	g := NewGenerator(models, testConfig(), nil)

	_, err := g.Generate(context.Background(), student.TextWelcomeEmail, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrTextGenUnavailable))
	assert.Equal(t, 1, models.calls)
}

func TestGenerator_EmptyResponse(t *testing.T) {
	models := &fakeModels{replies: []reply{{text: "   "}}}
	g := NewGenerator(models, testConfig(), nil)

	_, err := g.Generate(context.Background(), student.TextParentFeedback, map[string]string{"name": "Ana"})
	assert.ErrorIs(t, err, shared.ErrTextGenEmpty)
}

func TestGenerator_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	g := NewGenerator(&fakeModels{block: true}, cfg, nil)

	_, err := g.Generate(context.Background(), student.TextParentFeedback, map[string]string{"name": "Ana"})
	assert.ErrorIs(t, err, shared.ErrTextGenTimeout)
}

func TestGenerator_OpenBreakerUsesStaticText(t *testing.T) {
	models := &fakeModels{replies: []reply{{err: genai.APIError{Code: 400}}}}
	g := NewGenerator(models, testConfig(), nil)
	vars := map[string]string{"name": "Ana", "to_belt": "Yellow"}

	for i := 0; i < 3; i++ {
		_, err := g.Generate(context.Background(), student.TextPromotionMessage, vars)
		require.Error(t, err)
	}

	text, err := g.Generate(context.Background(), student.TextPromotionMessage, vars)
	require.NoError(t, err)
	assert.Equal(t, "Congratulations Ana on earning the Yellow belt!", text)
	assert.Equal(t, 3, models.calls)
}

func TestGenerator_UnknownKind(t *testing.T) {
	g := NewGenerator(&fakeModels{}, testConfig(), nil)
	_, err := g.Generate(context.Background(), student.TextKind("poem"), nil)
	assert.True(t, shared.IsValidation(err))
}

func TestNew_WithoutKeyIsStatic(t *testing.T) {
	gen, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, StaticGenerator{}, gen)
}

func TestStaticGenerator(t *testing.T) {
	ctx := context.Background()
	var g StaticGenerator

	text, err := g.Generate(ctx, student.TextParentFeedback, map[string]string{"name": "Ana", "session_points": "6"})
	require.NoError(t, err)
	assert.Equal(t, "Ana trained with us today and earned 6 points toward the next stripe.", text)

	text, err = g.Generate(ctx, student.TextWelcomeEmail, nil)
	require.NoError(t, err)
	assert.Contains(t, text, "our student")

	_, err = g.Generate(ctx, student.TextKind("poem"), nil)
	assert.Error(t, err)
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := RenderPrompt(student.TextParentFeedback, map[string]string{
		"name": "Ana", "belt": "White", "stripes": "2", "session_points": "5",
		"skills": "forms=2, kicks=1",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Skill scores (0-2): forms=2, kicks=1.")
	assert.NotContains(t, prompt, "Coach note")
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestGatedGenerator(t *testing.T) {
	models := &fakeModels{replies: []reply{{text: "Great kicks today."}}}
	gen := NewGenerator(models, testConfig(), nil)

	gated := NewGatedGenerator(gen, func(kind student.TextKind) bool {
		return kind != student.TextWelcomeEmail
	})

	text, err := gated.Generate(context.Background(), student.TextWelcomeEmail, map[string]string{"name": "Ana"})
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 0, models.calls)

	text, err = gated.Generate(context.Background(), student.TextParentFeedback, map[string]string{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Great kicks today.", text)
	assert.Equal(t, 1, models.calls)
}
