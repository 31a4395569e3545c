package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/ai"
	"github.com/spigell/shift-swap/internal/assistant"
	"github.com/spigell/shift-swap/internal/logger"
	"github.com/spigell/shift-swap/internal/metrics"
	"github.com/spigell/shift-swap/internal/shift"
	"github.com/spigell/shift-swap/internal/store"
)

// Deps aggregates the collaborators of the Service.
type Deps struct {
	Store    store.Store
	Reasoner ai.Reasoner
	Logger   *zap.Logger
	Metrics  metrics.Recorder
	// MaxLogLength limits prompt and response previews.
	MaxLogLength int
	// MaxDayDiff is the date window of intent-driven matching.
	MaxDayDiff int
	// Now is replaced in tests.
	Now func() time.Time
}

// Service runs the matching pipeline against a store.
type Service struct {
	store      store.Store
	classifier *assistant.Classifier
	extractor  *assistant.Extractor
	parser     *assistant.Parser
	matcher    ai.Reasoner
	logger     *zap.Logger
	metrics    metrics.Recorder
	maxDayDiff int
	now        func() time.Time
}

func New(deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Reasoner == nil {
		deps.Logger.Warn("no reasoning service configured, every stage will use its fallback")
		deps.Reasoner = ai.Unavailable{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	stageDeps := assistant.Deps{
		Reasoner:     deps.Reasoner,
		Logger:       deps.Logger,
		Metrics:      deps.Metrics,
		MaxLogLength: deps.MaxLogLength,
	}
	matcherLog := logger.ForStage(deps.Logger, StageMatcher)

	return &Service{
		store:      deps.Store,
		classifier: assistant.NewClassifier(stageDeps),
		extractor:  assistant.NewExtractor(stageDeps),
		parser:     assistant.NewParser(stageDeps),
		matcher:    ai.Observe(deps.Reasoner, StageMatcher, deps.Metrics, matcherLog, deps.MaxLogLength),
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		maxDayDiff: deps.MaxDayDiff,
		now:        deps.Now,
	}, nil
}

// CreatePost validates and stores a structured post. The time range is stored
// in its canonical form.
func (s *Service) CreatePost(ctx context.Context, in shift.PostInput) (shift.Post, error) {
	in.User = strings.TrimSpace(in.User)
	in.Role = strings.TrimSpace(in.Role)
	in.Date = strings.TrimSpace(in.Date)
	in.Shift = strings.TrimSpace(in.Shift)
	in.Notes = strings.TrimSpace(in.Notes)

	if err := check(in); err != nil {
		return shift.Post{}, err
	}

	normalized, err := shift.NormalizeShift(in.Shift)
	if err != nil {
		return shift.Post{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	in.Shift = normalized

	post, err := s.store.CreatePost(ctx, in)
	if err != nil {
		return shift.Post{}, fmt.Errorf("create post: %w", err)
	}

	logger.ForPost(s.logger, post.ID, post.User).Info("post created",
		zap.String("date", post.Date),
		zap.String("shift", post.Shift),
		zap.String("origin", string(post.Origin)),
	)
	return post, nil
}

func (s *Service) ListOpenPosts(ctx context.Context) ([]shift.Post, error) {
	posts, err := s.store.ListOpenPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open posts: %w", err)
	}
	return posts, nil
}

func (s *Service) ListMatches(ctx context.Context) ([]shift.Match, error) {
	matches, err := s.store.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// UpdateStatus moves a post forward in its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id string, status shift.Status) (shift.Post, error) {
	if strings.TrimSpace(id) == "" {
		return shift.Post{}, fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	if !status.Valid() {
		return shift.Post{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	post, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return shift.Post{}, fmt.Errorf("update status: %w", err)
	}

	logger.ForPost(s.logger, post.ID, post.User).Info("post status updated", zap.String("status", string(post.Status)))
	return post, nil
}

// Clear removes every post and match.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.logger.Info("room cleared")
	return nil
}

// ParseChat turns a free-form message into post fields or a reply. It never
// creates a post.
func (s *Service) ParseChat(ctx context.Context, message string) (assistant.ParseResult, error) {
	if strings.TrimSpace(message) == "" {
		return assistant.ParseResult{}, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	return s.parser.Parse(ctx, message, s.now()), nil
}
