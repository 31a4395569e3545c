package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/ai"
	"github.com/spigell/shift-swap/internal/shift"
)

const classifierSystem = "You are an intent classifier. Always respond with valid JSON only."

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps anything unexpected to low.
func ParseConfidence(raw string) Confidence {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(raw))); c {
	case ConfidenceHigh, ConfidenceMedium:
		return c
	default:
		return ConfidenceLow
	}
}

// Classification is the outcome of intent classification. Intent is always
// seeking, offering or unknown.
type Classification struct {
	Intent     shift.Intent `json:"intent"`
	Confidence Confidence   `json:"confidence"`
}

var unknown = Classification{Intent: shift.IntentUnknown, Confidence: ConfidenceLow}

type Classifier struct {
	stage
}

func NewClassifier(deps Deps) *Classifier {
	return &Classifier{stage: newStage(StageClassifier, deps)}
}

type intentResponse struct {
	Intent     string `mapstructure:"intent"`
	Confidence string `mapstructure:"confidence"`
}

// Classify never fails: any reasoning problem yields an unknown intent.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	prompt := render(intentTemplate, map[string]string{"MESSAGE": strings.TrimSpace(text)})

	raw, err := c.reasoner.Complete(ctx, []ai.Turn{ai.System(classifierSystem), ai.User(prompt)}, ai.Options{
		MaxTokens:   100,
		Temperature: 0.1,
	})
	if err != nil {
		c.fallback(causeError, zap.Error(err))
		return unknown
	}

	resp, err := ai.Decode[intentResponse](raw)
	if err != nil {
		c.fallback(causeUnparsable, zap.Error(err))
		return unknown
	}

	intent := shift.ParseIntent(resp.Intent)
	if !intent.Known() {
		c.fallback(causeUnrecognized, zap.String("intent", resp.Intent))
		return unknown
	}

	result := Classification{Intent: intent, Confidence: ParseConfidence(resp.Confidence)}
	c.logger.Info("intent classified",
		zap.String("intent", string(result.Intent)),
		zap.String("confidence", string(result.Confidence)),
	)
	return result
}
