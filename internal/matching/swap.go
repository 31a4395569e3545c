package matching

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/shift-swap/internal/ai"
	"github.com/spigell/shift-swap/internal/filtering"
	"github.com/spigell/shift-swap/internal/logger"
	"github.com/spigell/shift-swap/internal/shift"
)

const (
	StageMatcher = "matcher"
	FlowSingle   = "single"

	MsgNoCandidates = "There are currently no other open shifts to swap with."
)

var (
	//go:embed prompts/match_system.md
	matchSystem string
	//go:embed prompts/match_request.md
	matchRequest string
)

// SwapSuggestion is the answer to a single-candidate match request.
type SwapSuggestion struct {
	RequestID     string       `json:"requestId"`
	CandidateUser string       `json:"candidateUser,omitempty"`
	Reason        string       `json:"reason"`
	Fallback      bool         `json:"fallback,omitempty"`
	NoCandidates  bool         `json:"noCandidates,omitempty"`
	Match         *shift.Match `json:"match,omitempty"`
}

type matchResponse struct {
	CandidateUser string `mapstructure:"candidateUser"`
	Reason        string `mapstructure:"reason"`
}

// SuggestSwap asks the reasoning service for the single best candidate to
// cover requestID. Service failures fall back to a deterministic pick that is
// not recorded. Store failures are returned.
func (s *Service) SuggestSwap(ctx context.Context, requestID string) (SwapSuggestion, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return SwapSuggestion{}, fmt.Errorf("%w: requestId is required", ErrInvalidRequest)
	}

	var (
		target shift.Post
		open   []shift.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		target, err = s.store.GetPost(gctx, requestID)
		if err != nil {
			return fmt.Errorf("get post: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		open, err = s.store.ListOpenPosts(gctx)
		if err != nil {
			return fmt.Errorf("list open posts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return SwapSuggestion{}, err
	}

	log := logger.ForPost(logger.ForStage(s.logger, StageMatcher), target.ID, target.User)

	pool, err := filtering.BuildPool(ctx, log, filtering.Criteria{User: target.User, SubjectID: target.ID}, open)
	if err != nil {
		return SwapSuggestion{}, fmt.Errorf("build pool: %w", err)
	}

	if len(pool) == 0 {
		log.Info("no candidates in pool")
		s.metrics.RecordMatches(FlowSingle, 0)
		return SwapSuggestion{RequestID: target.ID, Reason: MsgNoCandidates, NoCandidates: true}, nil
	}

	raw, err := s.matcher.Complete(ctx, []ai.Turn{
		ai.System(matchSystem),
		ai.User(matchPrompt(target, pool)),
	}, ai.Options{MaxTokens: 500, Temperature: 0.7})
	if err != nil {
		return s.fallback(log, target, pool, CauseUnavailable, zap.Error(err)), nil
	}

	resp, err := ai.Decode[matchResponse](raw)
	if err != nil {
		return s.fallback(log, target, pool, CauseUnclear, zap.Error(err)), nil
	}

	chosen, ok := findCandidate(pool, resp.CandidateUser)
	if !ok {
		return s.fallback(log, target, pool, CauseUnclear, zap.String("candidate_user", resp.CandidateUser)), nil
	}

	reason := strings.TrimSpace(resp.Reason)
	if reason == "" {
		reason = fmt.Sprintf("%s (%s) is available on %s, %s.", chosen.User, chosen.Role, chosen.Date, chosen.Shift)
	}

	match, err := s.store.RecordMatch(ctx, shift.MatchInput{
		RequestID:     target.ID,
		CandidateUser: chosen.User,
		Reason:        reason,
	})
	if err != nil {
		return SwapSuggestion{}, fmt.Errorf("record match: %w", err)
	}

	log.Info("match recorded", zap.String("candidate_user", chosen.User), zap.String("match_id", match.ID))
	s.metrics.RecordMatches(FlowSingle, 1)

	return SwapSuggestion{
		RequestID:     target.ID,
		CandidateUser: chosen.User,
		Reason:        reason,
		Match:         &match,
	}, nil
}

func (s *Service) fallback(log *zap.Logger, target shift.Post, pool []shift.Post, cause FallbackCause, fields ...zap.Field) SwapSuggestion {
	chosen, reason := Fallback(pool, target.Role, cause)

	log.Warn("falling back", append([]zap.Field{
		zap.String("cause", string(cause)),
		zap.String("candidate_user", chosen.User),
	}, fields...)...)
	s.metrics.RecordFallback(StageMatcher, string(cause))
	s.metrics.RecordMatches(FlowSingle, 1)

	return SwapSuggestion{
		RequestID:     target.ID,
		CandidateUser: chosen.User,
		Reason:        reason,
		Fallback:      true,
	}
}

// findCandidate returns the pool post whose user matches name, ignoring case
// and surrounding space.
func findCandidate(pool []shift.Post, name string) (shift.Post, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return shift.Post{}, false
	}
	for _, p := range pool {
		if strings.EqualFold(strings.TrimSpace(p.User), name) {
			return p, true
		}
	}
	return shift.Post{}, false
}

func matchPrompt(target shift.Post, pool []shift.Post) string {
	entries := make([]string, 0, len(pool))
	for i, p := range pool {
		entries = append(entries, fmt.Sprintf("%d. %s (%s)\n   - Available: %s, %s\n   - Notes: %s",
			i+1, p.User, p.Role, p.Date, p.Shift, orNone(p.Notes)))
	}

	return strings.NewReplacer(
		"{{USER}}", target.User,
		"{{ROLE}}", target.Role,
		"{{DATE}}", target.Date,
		"{{SHIFT}}", target.Shift,
		"{{NOTES}}", orNone(target.Notes),
		"{{CANDIDATES}}", strings.Join(entries, "\n\n"),
	).Replace(matchRequest)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
