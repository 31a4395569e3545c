package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/shift-swap/internal/ai"
	"github.com/spigell/shift-swap/internal/assistant"
	"github.com/spigell/shift-swap/internal/matching"
	"github.com/spigell/shift-swap/internal/shift"
	"github.com/spigell/shift-swap/internal/store"
)

func newServer(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()

	seq := 0
	st, err := store.NewMemory(store.MemoryOptions{
		Now: func() time.Time { return time.Date(2025, 11, 5, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := matching.New(matching.Deps{Store: st, Reasoner: ai.Unavailable{}, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return NewRouter(Deps{Service: svc}), st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestPostListAndClear(t *testing.T) {
	h, _ := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/post", `{"user":"Alice","role":"Nurse","date":"2025-11-10","shift":"9:00-17:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	post := decodeBody[shift.Post](t, rec)
	if post.ID != "id-1" || post.Shift != "09:00-17:00" || post.Status != shift.StatusOpen {
		t.Fatalf("unexpected post: %+v", post)
	}

	rec = do(t, h, http.MethodGet, "/api/list", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if posts := decodeBody[[]shift.Post](t, rec); len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}

	rec = do(t, h, http.MethodPost, "/api/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/list", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}
}

func TestPostValidation(t *testing.T) {
	h, _ := newServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing fields", body: `{"user":"Alice"}`},
		{name: "bad json", body: `{"user":`},
		{name: "bad range", body: `{"user":"Alice","role":"Nurse","date":"2025-11-10","shift":"17:00-09:00"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/post", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if body := decodeBody[errorBody](t, rec); body.Error == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestMatchFallsBackWithoutReasoner(t *testing.T) {
	h, st := newServer(t)
	ctx := context.Background()

	for _, in := range []shift.PostInput{
		{User: "Alice", Role: "Nurse", Date: "2025-11-10", Shift: "09:00-17:00"},
		{User: "Carol", Role: "Doctor", Date: "2025-11-10", Shift: "09:00-17:00"},
		{User: "Bob", Role: "Nurse", Date: "2025-11-11", Shift: "09:00-17:00"},
	} {
		if _, err := st.CreatePost(ctx, in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := do(t, h, http.MethodPost, "/api/match", `{"requestId":"id-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[matching.SwapSuggestion](t, rec)
	if !got.Fallback || got.CandidateUser != "Bob" {
		t.Fatalf("unexpected suggestion: %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/api/match", `{"requestId":"nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/match", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIntelligentMatchWithoutReasoner(t *testing.T) {
	h, _ := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/intelligent-match", `{"message":"need Friday covered","currentUser":"Alice","currentRole":"Nurse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decodeBody[matching.Outcome](t, rec)
	if !out.NeedsMoreInfo || out.Message != matching.MsgUnclearIntent {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	rec = do(t, h, http.MethodPost, "/api/intelligent-match", `{"message":"need Friday covered"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestParseChatWithoutReasoner(t *testing.T) {
	h, _ := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/parse-chat", `{"message":"Alice, nurse, friday 9-5"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if res := decodeBody[assistant.ParseResult](t, rec); res.Reply != assistant.MsgParserTrouble {
		t.Fatalf("unexpected reply: %+v", res)
	}

	rec = do(t, h, http.MethodPost, "/api/parse-chat", `{"message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	h, _ := newServer(t)

	do(t, h, http.MethodPost, "/api/post", `{"user":"Alice","role":"Nurse","date":"2025-11-10","shift":"09:00-17:00"}`)

	rec := do(t, h, http.MethodPost, "/api/posts/id-1/status", `{"status":"completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/posts/id-1/status", `{"status":"open"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

type brokenService struct {
	Service
}

func (brokenService) ListOpenPosts(context.Context) ([]shift.Post, error) {
	return nil, errors.New("connection reset")
}

func TestInternalErrorsAreLoggedNotLeaked(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewRouter(Deps{Service: brokenService{}, Logger: zap.New(core)})

	rec := do(t, h, http.MethodGet, "/api/list", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
	if logs.FilterMessage("request failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}
	if logs.FilterMessage("request").Len() != 1 {
		t.Fatalf("expected access log entry")
	}
}

func TestCORSAndHealth(t *testing.T) {
	h := NewRouter(Deps{Service: brokenService{}, AllowedOrigins: []string{"https://shifts.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://shifts.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://shifts.example.com" {
		t.Fatalf("unexpected allow origin: %q", got)
	}

	rec = do(t, h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
