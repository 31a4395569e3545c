package ai

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestExtractObjectStrategies(t *testing.T) {
	t.Parallel()

	expect := map[string]any{"candidateUser": "Alex", "reason": "Same role"}

	tests := []struct {
		name  string
		input string
	}{
		{name: "raw json", input: `{"candidateUser": "Alex", "reason": "Same role"}`},
		{name: "fenced json", input: "```json\n{\"candidateUser\": \"Alex\", \"reason\": \"Same role\"}\n```"},
		{name: "fenced without language", input: "Here you go:\n```\n{\"candidateUser\": \"Alex\", \"reason\": \"Same role\"}\n```\nThanks"},
		{name: "embedded in prose", input: `Sure! The best option is {"candidateUser": "Alex", "reason": "Same role"} hope it helps.`},
		{name: "prose fence before json fence", input: "```\nno swap yet\n```\n```json\n{\"candidateUser\": \"Alex\", \"reason\": \"Same role\"}\n```"},
		{name: "stray brace after object", input: `Result: {"candidateUser": "Alex", "reason": "Same role"} (see {notes})`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, expect) {
				t.Fatalf("expected %v, got %v", expect, got)
			}
		})
	}
}

func TestExtractObjectAbsent(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"",
		"I cannot decide, sorry.",
		"[1, 2, 3]",
		"null",
		"{not json at all}",
	} {
		if _, err := ExtractObject(input); !errors.Is(err, ErrNoObject) {
			t.Fatalf("%q: expected ErrNoObject, got %v", input, err)
		}
	}
}

func TestDecodeWeaklyTyped(t *testing.T) {
	t.Parallel()

	type payload struct {
		NeedsMoreInfo bool   `mapstructure:"needsMoreInfo"`
		Message       string `mapstructure:"message"`
		Count         string `mapstructure:"count"`
	}

	got, err := Decode[payload]("```json\n{\"needsMoreInfo\": \"true\", \"message\": \"When?\", \"count\": 3}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NeedsMoreInfo || got.Message != "When?" || got.Count != "3" {
		t.Fatalf("unexpected decode result: %+v", got)
	}

	if _, err := Decode[payload]("nothing here"); !errors.Is(err, ErrNoObject) {
		t.Fatalf("expected ErrNoObject, got %v", err)
	}
}

type countingReasoner struct{ calls int }

func (c *countingReasoner) Complete(context.Context, []Turn, Options) (string, error) {
	c.calls++
	return "{}", nil
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	inner := &countingReasoner{}
	if got := WithRateLimit(inner, 0, 0); got != Reasoner(inner) {
		t.Fatalf("expected unwrapped reasoner for zero rate")
	}

	limited := WithRateLimit(inner, 0.001, 1)
	if _, err := limited.Complete(context.Background(), nil, Options{}); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := limited.Complete(ctx, nil, Options{}); err == nil {
		t.Fatalf("expected rate limit wait to fail on short deadline")
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 call to reach the reasoner, got %d", inner.calls)
	}
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	if _, err := (Unavailable{}).Complete(context.Background(), nil, Options{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
