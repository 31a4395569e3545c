package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/shift"
)

// Filter is a single step of candidate pool construction.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, deps Deps, posts []shift.Post) ([]shift.Post, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
}

// Run executes the steps in order. The input slice is never modified.
func Run(ctx context.Context, deps Deps, steps []Filter, posts []shift.Post) ([]shift.Post, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	current := append([]shift.Post(nil), posts...)
	for _, step := range steps {
		if !step.IsEnabled() {
			log.Debug("filter disabled", zap.String("name", step.Name()), zap.String("reason", Describe(step).Reason))
			continue
		}

		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		log.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		current = next
	}

	return current, nil
}

// Describe returns the status of a filter.
func Describe(step Filter) Status {
	status := Status{Name: step.Name(), Enabled: step.IsEnabled()}
	if d, ok := step.(*predicate); ok {
		status.Reason = d.disabled
	}
	return status
}
