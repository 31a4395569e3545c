package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/shift-swap/internal/ai"
)

type fakeModels struct {
	mu    sync.Mutex
	calls []modelCall
	queue []fakeResponse
}

type modelCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelCall{model: model, contents: contents, config: config})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noWait(t *testing.T) {
	t.Helper()
	original := wait
	wait = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { wait = original })
}

func TestGeneratorCompleteBuildsRequest(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(`{"intent": "seeking"}`), nil)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 1, logger: zap.NewNop()}

	output, err := g.Complete(context.Background(), []ai.Turn{
		ai.System("classifier"),
		ai.User("I need Friday covered"),
	}, ai.Options{MaxTokens: 100, Temperature: 0.1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != `{"intent": "seeking"}` {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "gemini-pro" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if call.config.SystemInstruction == nil || call.config.SystemInstruction.Parts[0].Text != "classifier" {
		t.Fatalf("expected system instruction to be set")
	}
	if call.config.MaxOutputTokens != 100 {
		t.Fatalf("unexpected max output tokens: %d", call.config.MaxOutputTokens)
	}
	if call.config.Temperature == nil || *call.config.Temperature != 0.1 {
		t.Fatalf("unexpected temperature: %v", call.config.Temperature)
	}
	if len(call.contents) != 1 || call.contents[0].Parts[0].Text != "I need Friday covered" {
		t.Fatalf("unexpected contents: %+v", call.contents)
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok"), nil)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 2, logger: zap.NewNop()}

	output, err := g.Complete(context.Background(), []ai.Turn{ai.System("system"), ai.User("message")}, ai.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 2, logger: zap.NewNop()}

	if _, err := g.Complete(context.Background(), []ai.Turn{ai.User("msg")}, ai.Options{}); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.Complete(context.Background(), []ai.Turn{ai.User("msg")}, ai.Options{}); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.Complete(context.Background(), []ai.Turn{ai.User("msg")}, ai.Options{}); err == nil {
		t.Fatal("expected error for bad request")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.GenerateContentResponse{}, nil)

	g := &Generator{models: models, model: "gemini-pro", logger: zap.NewNop()}

	if _, err := g.Complete(context.Background(), []ai.Turn{ai.User("msg")}, ai.Options{}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorRequiresUserTurn(t *testing.T) {
	g := &Generator{models: &fakeModels{}, model: "gemini-pro", logger: zap.NewNop()}

	if _, err := g.Complete(context.Background(), []ai.Turn{ai.System("only system")}, ai.Options{}); err == nil {
		t.Fatal("expected error without user turns")
	}
}

func TestRetryDelayQuotaHint(t *testing.T) {
	delay, ok := retryDelay(genai.APIError{Code: http.StatusTooManyRequests, Message: "Please retry in 2.5s."}, 1)
	if !ok {
		t.Fatal("expected quota error to be retryable")
	}
	if delay != 2500*time.Millisecond {
		t.Fatalf("unexpected delay: %s", delay)
	}

	if _, ok := retryDelay(errors.New("dial tcp: refused"), 1); ok {
		t.Fatal("expected non-api errors not to be retried")
	}
}
