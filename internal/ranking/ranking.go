package ranking

import (
	"fmt"
	"sort"

	"github.com/spigell/shift-swap/internal/shift"
)

// DefaultLimit is the number of candidates returned to the user.
const DefaultLimit = 3

// Target is the slot candidates are ranked against.
type Target struct {
	Role string
	Date string
}

// Candidate is a ranked post with the signals that placed it.
type Candidate struct {
	Post     shift.Post `json:"post"`
	Reason   string     `json:"reason"`
	DayDiff  int        `json:"dayDiff"`
	SameRole bool       `json:"sameRole"`
}

func (c Candidate) exact() bool { return c.DayDiff == 0 }

// Rank orders posts by exact date first, then same role, then ascending day
// difference, and keeps at most limit of them. Ties keep their input order.
// Posts whose date cannot be parsed are left out. A non-positive limit means
// DefaultLimit.
func Rank(target Target, posts []shift.Post, limit int) ([]Candidate, error) {
	if _, err := shift.ParseDate(target.Date); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates := make([]Candidate, 0, len(posts))
	for _, p := range posts {
		diff, err := shift.DayDiff(target.Date, p.Date)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Post:     p,
			DayDiff:  diff,
			SameRole: p.Role == target.Role,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return less(candidates[i], candidates[j])
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Reason = Reason(target, candidates[i])
	}

	return candidates, nil
}

func less(a, b Candidate) bool {
	if a.exact() != b.exact() {
		return a.exact()
	}
	if a.SameRole != b.SameRole {
		return a.SameRole
	}
	return a.DayDiff < b.DayDiff
}

// Reason explains the placement of c.
func Reason(target Target, c Candidate) string {
	switch {
	case c.exact() && c.SameRole:
		return fmt.Sprintf("Perfect match! Same role (%s) and same date (%s)!", c.Post.Role, c.Post.Date)
	case c.exact():
		return fmt.Sprintf("Same date (%s) but different role (%s vs your %s)", c.Post.Date, c.Post.Role, target.Role)
	}

	role := "Different role"
	if c.SameRole {
		role = "Same role"
	}
	unit := "days"
	if c.DayDiff == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%s, %d %s apart", role, c.DayDiff, unit)
}
