package matching

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/assistant"
	"github.com/spigell/shift-swap/internal/filtering"
	"github.com/spigell/shift-swap/internal/logger"
	"github.com/spigell/shift-swap/internal/ranking"
	"github.com/spigell/shift-swap/internal/shift"
)

const (
	FlowIntelligent = "intelligent"

	MsgUnclearIntent = "I'm not sure if you're looking for coverage or offering to cover. Could you be more specific?"
)

// Action tells what the pipeline did with the request.
type Action string

const (
	// ActionCreated is an availability offer that was stored.
	ActionCreated Action = "created"
	// ActionPosted is a coverage request that was stored.
	ActionPosted Action = "posted"
)

// IntelligentRequest is a free-text coverage request or offer.
type IntelligentRequest struct {
	Message string `json:"message" validate:"required"`
	User    string `json:"currentUser" validate:"required"`
	Role    string `json:"currentRole" validate:"required"`
	// Schedule lists the user's own shifts, one per line.
	Schedule string `json:"userSchedule"`
}

// Suggestion is a ranked counterpart shown to the user.
type Suggestion struct {
	PostID string `json:"postId"`
	User   string `json:"user"`
	Role   string `json:"role"`
	Date   string `json:"date"`
	Shift  string `json:"shift"`
	Reason string `json:"reason"`
}

// Outcome is the result of IntelligentMatch. Clarifications only carry
// NeedsMoreInfo and Message.
type Outcome struct {
	NeedsMoreInfo bool         `json:"needsMoreInfo"`
	Action        Action       `json:"action,omitempty"`
	Intent        shift.Intent `json:"intent,omitempty"`
	Message       string       `json:"message"`
	Summary       string       `json:"summary,omitempty"`
	Suggestion    string       `json:"suggestion,omitempty"`
	Matches       []Suggestion `json:"matches"`
	Shift         *shift.Post  `json:"shift,omitempty"`
}

func clarify(message string) Outcome {
	return Outcome{NeedsMoreInfo: true, Message: message, Matches: []Suggestion{}}
}

// IntelligentMatch classifies req, extracts its slot, stores it as a post and
// ranks the open posts of the opposite intent around its date. Reasoning
// failures turn into clarifications; store failures are returned.
func (s *Service) IntelligentMatch(ctx context.Context, req IntelligentRequest) (Outcome, error) {
	req.Message = strings.TrimSpace(req.Message)
	req.User = strings.TrimSpace(req.User)
	req.Role = strings.TrimSpace(req.Role)
	if err := check(req); err != nil {
		return Outcome{}, err
	}

	log := s.logger.With(zap.String(logger.FieldUser, req.User))

	class := s.classifier.Classify(ctx, req.Message)
	if !class.Intent.Known() {
		log.Info("intent unclear, asking for clarification")
		return clarify(MsgUnclearIntent), nil
	}

	ext := s.extractor.Extract(ctx, assistant.ExtractRequest{
		Text:     req.Message,
		Intent:   class.Intent,
		User:     req.User,
		Role:     req.Role,
		Schedule: req.Schedule,
		Now:      s.now(),
	})
	if ext.NeedsInfo() {
		log.Info("slot incomplete, asking for details")
		return clarify(ext.Message), nil
	}
	slot := *ext.Slot

	post, err := s.CreatePost(ctx, shift.PostInput{
		User:   req.User,
		Role:   slot.Role,
		Date:   slot.Date,
		Shift:  slot.Shift,
		Notes:  shift.TaggedNotes(class.Intent, slot.Notes),
		Origin: class.Intent,
	})
	if err != nil {
		return Outcome{}, err
	}

	open, err := s.ListOpenPosts(ctx)
	if err != nil {
		return Outcome{}, err
	}

	postLog := logger.ForPost(s.logger, post.ID, post.User)
	pool, err := filtering.BuildPool(ctx, postLog, filtering.Criteria{
		User:       post.User,
		SubjectID:  post.ID,
		Intent:     class.Intent,
		Date:       post.Date,
		MaxDayDiff: s.maxDayDiff,
	}, open)
	if err != nil {
		return Outcome{}, fmt.Errorf("build pool: %w", err)
	}

	ranked, err := ranking.Rank(ranking.Target{Role: post.Role, Date: post.Date}, pool, ranking.DefaultLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("rank: %w", err)
	}

	postLog.Info("candidates ranked", zap.Int("pool", len(pool)), zap.Int("ranked", len(ranked)))
	s.metrics.RecordMatches(FlowIntelligent, len(ranked))

	out := Outcome{
		Intent:  class.Intent,
		Matches: suggestions(ranked),
		Shift:   &post,
	}
	describeOutcome(&out, post)
	return out, nil
}

func suggestions(ranked []ranking.Candidate) []Suggestion {
	out := make([]Suggestion, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, Suggestion{
			PostID: c.Post.ID,
			User:   c.Post.User,
			Role:   c.Post.Role,
			Date:   c.Post.Date,
			Shift:  c.Post.Shift,
			Reason: c.Reason,
		})
	}
	return out
}

func describeOutcome(out *Outcome, post shift.Post) {
	n := len(out.Matches)

	if out.Intent == shift.IntentOffering {
		out.Action = ActionCreated
		if n == 0 {
			out.Message = fmt.Sprintf("Perfect! I've recorded that you're available to cover shifts on %s from %s.", post.Date, post.Shift)
			out.Suggestion = "When someone needs coverage for that time, they'll be matched with you!"
			return
		}
		out.Message = fmt.Sprintf("Great! I've recorded your availability for %s from %s.", post.Date, post.Shift)
		if n == 1 {
			out.Summary = "Good news! I found 1 person who needs coverage around that time:"
		} else {
			out.Summary = fmt.Sprintf("Good news! I found %d people who need coverage around that time:", n)
		}
		out.Suggestion = "Would you like to cover any of these shifts?"
		return
	}

	out.Action = ActionPosted
	out.Message = fmt.Sprintf("Your coverage request for %s has been posted! I'll let you know when someone offers to cover.", post.Date)
	if n == 0 {
		out.Suggestion = "Your shift is now visible to others. When someone posts availability for that time, you'll see them in the calendar."
		return
	}
	if n == 1 {
		out.Summary = "Great news! I found 1 person available to cover your shift"
	} else {
		out.Summary = fmt.Sprintf("Great news! I found %d people available to cover your shift", n)
	}
}
