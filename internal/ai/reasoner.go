package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by a reasoner that is not configured.
var ErrUnavailable = errors.New("reasoning service is not configured")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message sent to the reasoning service.
type Turn struct {
	Role Role
	Text string
}

func System(text string) Turn { return Turn{Role: RoleSystem, Text: text} }

func User(text string) Turn { return Turn{Role: RoleUser, Text: text} }

// Options are the generation parameters of a single call.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// Reasoner is the external language-model service. The returned text is
// untrusted and must go through ExtractObject before use.
type Reasoner interface {
	Complete(ctx context.Context, turns []Turn, opts Options) (string, error)
}

// Unavailable is a Reasoner that always fails, so every caller degrades to its
// fallback path.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, []Turn, Options) (string, error) {
	return "", ErrUnavailable
}
