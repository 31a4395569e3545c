package matching

import (
	"fmt"

	"github.com/spigell/shift-swap/internal/shift"
)

// FallbackCause says why the reasoning service could not pick a candidate.
type FallbackCause string

const (
	// CauseUnavailable covers transport and service errors.
	CauseUnavailable FallbackCause = "unavailable"
	// CauseUnclear covers answers without a usable candidate.
	CauseUnclear FallbackCause = "unclear"
)

// Fallback picks the first pool post sharing role, or the first post when none
// does, and explains the choice. pool must not be empty. The choice depends
// only on pool order and role.
func Fallback(pool []shift.Post, role string, cause FallbackCause) (shift.Post, string) {
	for _, p := range pool {
		if p.Role == role {
			return p, fallbackReason(cause, p, true)
		}
	}
	return pool[0], fallbackReason(cause, pool[0], false)
}

func fallbackReason(cause FallbackCause, p shift.Post, roleHit bool) string {
	prefix := "AI unavailable."
	if cause == CauseUnclear {
		prefix = "AI response unclear."
	}

	switch {
	case roleHit:
		return fmt.Sprintf("%s Matched based on role similarity (%s).", prefix, p.Role)
	case cause == CauseUnclear:
		return prefix + " This is the first available candidate."
	default:
		return prefix + " No candidate shares the role; this is the first available candidate."
	}
}
