package shift

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a shift post.
type Status string

const (
	StatusOpen      Status = "open"
	StatusMatched   Status = "matched"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusMatched, StatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a post may move from s to next.
// Only open->matched, open->completed and matched->completed are allowed.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusOpen:
		return next == StatusMatched || next == StatusCompleted
	case StatusMatched:
		return next == StatusCompleted
	default:
		return false
	}
}

// Intent is the purpose of a request: seeking coverage or offering it.
type Intent string

const (
	IntentSeeking  Intent = "seeking"
	IntentOffering Intent = "offering"
	IntentUnknown  Intent = "unknown"
	// IntentNone marks posts created without an intent, e.g. through the manual form.
	IntentNone Intent = "none"
)

// Notes tags written by the pipeline. Older stored posts only carry these.
const (
	TagSeeking  = "Seeking coverage"
	TagOffering = "Available to cover"
)

// ParseIntent normalises a raw intent value. Anything other than the two known
// intents is unknown.
func ParseIntent(raw string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(raw))) {
	case IntentSeeking:
		return IntentSeeking
	case IntentOffering:
		return IntentOffering
	default:
		return IntentUnknown
	}
}

// Known reports whether i is seeking or offering.
func (i Intent) Known() bool {
	return i == IntentSeeking || i == IntentOffering
}

// Tag returns the notes tag for i, or an empty string.
func (i Intent) Tag() string {
	switch i {
	case IntentSeeking:
		return TagSeeking
	case IntentOffering:
		return TagOffering
	default:
		return ""
	}
}

// Opposite returns the intent a counterpart post must carry to match i.
func (i Intent) Opposite() Intent {
	switch i {
	case IntentSeeking:
		return IntentOffering
	case IntentOffering:
		return IntentSeeking
	default:
		return IntentNone
	}
}

// TaggedNotes prefixes notes with the tag for i, joined by " | ".
func TaggedNotes(i Intent, notes string) string {
	tag := i.Tag()
	notes = strings.TrimSpace(notes)
	switch {
	case tag == "":
		return notes
	case notes == "":
		return tag
	default:
		return tag + " | " + notes
	}
}

// Post is a request for coverage or an offer to provide it.
type Post struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Role      string    `json:"role"`
	Date      string    `json:"date"`
	Shift     string    `json:"shift"`
	Notes     string    `json:"notes"`
	Origin    Intent    `json:"origin,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Status    Status    `json:"status"`
}

// Intent returns the intent the post was created with. Posts stored before the
// origin field existed are classified by their notes tag.
func (p Post) Intent() Intent {
	if p.Origin.Known() {
		return p.Origin
	}
	switch {
	case strings.Contains(p.Notes, TagSeeking):
		return IntentSeeking
	case strings.Contains(p.Notes, TagOffering):
		return IntentOffering
	default:
		return IntentNone
	}
}

// PostInput carries the fields needed to create a post.
type PostInput struct {
	User   string `json:"user" validate:"required"`
	Role   string `json:"role" validate:"required"`
	Date   string `json:"date" validate:"required,isodate"`
	Shift  string `json:"shift" validate:"required,timerange"`
	Notes  string `json:"notes"`
	Origin Intent `json:"origin,omitempty" validate:"omitempty,oneof=seeking offering none"`
}

// Match links a requesting post to a suggested candidate.
type Match struct {
	ID            string    `json:"id"`
	RequestID     string    `json:"requestId"`
	CandidateUser string    `json:"candidateUser"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MatchInput carries the fields needed to record a match.
type MatchInput struct {
	RequestID     string `json:"requestId" validate:"required"`
	CandidateUser string `json:"candidateUser" validate:"required"`
	Reason        string `json:"reason"`
}

// Slot is the structured shift data extracted from a request.
type Slot struct {
	Date  string `json:"date"`
	Shift string `json:"shift"`
	Role  string `json:"role"`
	Notes string `json:"notes"`
}
