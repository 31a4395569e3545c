package ai

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/utils"
)

const defaultMaxLogLength = 200

// Observer receives the latency and outcome of every reasoning call.
type Observer interface {
	ObserveReasoning(stage string, d time.Duration, err error)
}

type observed struct {
	next      Reasoner
	stage     string
	observer  Observer
	logger    *zap.Logger
	maxLogLen int
}

// Observe wraps r so each call is timed, reported to obs and logged at debug
// level with truncated prompt and response previews. obs and log may be nil.
func Observe(r Reasoner, stage string, obs Observer, log *zap.Logger, maxLogLen int) Reasoner {
	if log == nil {
		log = zap.NewNop()
	}
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}
	return &observed{next: r, stage: stage, observer: obs, logger: log, maxLogLen: maxLogLen}
}

func (o *observed) Complete(ctx context.Context, turns []Turn, opts Options) (string, error) {
	prompt := ""
	if len(turns) > 0 {
		prompt = turns[len(turns)-1].Text
	}

	o.logger.Debug("reasoning request",
		zap.String("stage", o.stage),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(utils.OneLine(prompt), o.maxLogLen)),
		zap.Int("max_tokens", opts.MaxTokens),
		zap.Float32("temperature", opts.Temperature),
	)

	started := time.Now()
	text, err := o.next.Complete(ctx, turns, opts)
	elapsed := time.Since(started)

	if o.observer != nil {
		o.observer.ObserveReasoning(o.stage, elapsed, err)
	}

	if err != nil {
		o.logger.Debug("reasoning failed", zap.String("stage", o.stage), zap.Duration("elapsed", elapsed), zap.Error(err))
		return "", err
	}

	o.logger.Debug("reasoning response",
		zap.String("stage", o.stage),
		zap.Duration("elapsed", elapsed),
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(utils.OneLine(text), o.maxLogLen)),
	)

	return text, nil
}
