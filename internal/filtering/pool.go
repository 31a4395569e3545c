package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/shift"
)

// DefaultMaxDayDiff is the widest date distance, in calendar days, between a
// target and a candidate.
const DefaultMaxDayDiff = 3

// Criteria describe whose pool is being built.
type Criteria struct {
	// User is the acting user. Their posts are never candidates.
	User string
	// SubjectID is the post the request is about.
	SubjectID string
	// Intent of the acting user. Seeking and offering restrict candidates to
	// posts of the opposite intent; anything else disables the origin step.
	Intent shift.Intent
	// Date is the target date. Empty disables the date window.
	Date       string
	MaxDayDiff int
}

// predicate is a Filter that keeps posts matching keep.
type predicate struct {
	name     string
	keep     func(shift.Post) (bool, error)
	disabled string
}

func (p *predicate) Name() string { return p.name }

func (p *predicate) Disable(reason string) {
	if reason == "" {
		reason = "disabled"
	}
	p.disabled = reason
}

func (p *predicate) IsEnabled() bool { return p.disabled == "" }

func (p *predicate) Apply(_ context.Context, deps Deps, posts []shift.Post) ([]shift.Post, Step, error) {
	kept := make([]shift.Post, 0, len(posts))
	var dropped []string
	for _, post := range posts {
		ok, err := p.keep(post)
		if err != nil {
			return nil, Step{}, err
		}
		if ok {
			kept = append(kept, post)
			continue
		}
		dropped = append(dropped, post.ID)
	}

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding posts", zap.String("name", p.name), zap.Strings("excluded_posts", dropped))
	}

	return kept, Step{Initial: len(posts), Dropped: len(dropped), Left: len(kept)}, nil
}

// NewExcludeOwner drops posts owned by user. Names compare case-insensitively.
func NewExcludeOwner(user string) Filter {
	user = strings.TrimSpace(user)
	f := &predicate{name: "exclude_owner", keep: func(p shift.Post) (bool, error) {
		return !strings.EqualFold(strings.TrimSpace(p.User), user), nil
	}}
	if user == "" {
		f.Disable("no acting user")
	}
	return f
}

// NewExcludeSubject drops the post the request is about.
func NewExcludeSubject(id string) Filter {
	f := &predicate{name: "exclude_subject", keep: func(p shift.Post) (bool, error) {
		return p.ID != id, nil
	}}
	if id == "" {
		f.Disable("no subject post")
	}
	return f
}

// NewOrigin keeps only posts whose intent is the opposite of intent.
func NewOrigin(intent shift.Intent) Filter {
	want := intent.Opposite()
	f := &predicate{name: "origin", keep: func(p shift.Post) (bool, error) {
		return p.Intent() == want, nil
	}}
	if !intent.Known() {
		f.Disable("no intent")
	}
	return f
}

// NewDateWindow keeps posts at most maxDiff calendar days away from date.
// Posts with unparsable dates are dropped. An unparsable target date fails
// the step.
func NewDateWindow(date string, maxDiff int) Filter {
	f := &predicate{name: "date_window", keep: func(p shift.Post) (bool, error) {
		if _, err := shift.ParseDate(date); err != nil {
			return false, fmt.Errorf("target date: %w", err)
		}
		diff, err := shift.DayDiff(date, p.Date)
		if err != nil {
			return false, nil
		}
		return diff <= maxDiff, nil
	}}
	if strings.TrimSpace(date) == "" {
		f.Disable("no target date")
	}
	return f
}

// Steps returns the pool filters in their fixed order.
func Steps(c Criteria) []Filter {
	maxDiff := c.MaxDayDiff
	if maxDiff <= 0 {
		maxDiff = DefaultMaxDayDiff
	}
	return []Filter{
		NewExcludeOwner(c.User),
		NewExcludeSubject(c.SubjectID),
		NewOrigin(c.Intent),
		NewDateWindow(c.Date, maxDiff),
	}
}

// BuildPool returns the candidates for c out of posts, preserving their order.
// An empty pool is not an error.
func BuildPool(ctx context.Context, log *zap.Logger, c Criteria, posts []shift.Post) ([]shift.Post, error) {
	return Run(ctx, Deps{Logger: log}, Steps(c), posts)
}
