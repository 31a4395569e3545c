package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/shift"
)

// room is the state owned by the memory store goroutine. Posts are kept
// newest first.
type room struct {
	Posts   []shift.Post  `json:"posts"`
	Matches []shift.Match `json:"matches"`
}

func (r *room) clone() room {
	return room{
		Posts:   append([]shift.Post(nil), r.Posts...),
		Matches: append([]shift.Match(nil), r.Matches...),
	}
}

func (r *room) find(id string) int {
	for i := range r.Posts {
		if r.Posts[i].ID == id {
			return i
		}
	}
	return -1
}

type MemoryOptions struct {
	// SnapshotPath, when set, is loaded on start and rewritten after every
	// mutation.
	SnapshotPath string
	Logger       *zap.Logger
	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

// Memory is a Store whose state is owned by a single goroutine. Requests are
// handed to it over a channel and applied one at a time.
type Memory struct {
	requests  chan func(*room)
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	path   string
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewMemory(opts MemoryOptions) (*Memory, error) {
	m := &Memory{
		requests: make(chan func(*room)),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
		path:     opts.SnapshotPath,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}

	state, err := m.load()
	if err != nil {
		return nil, err
	}

	go m.loop(state)

	return m, nil
}

func (m *Memory) loop(state *room) {
	defer close(m.done)
	for {
		select {
		case req := <-m.requests:
			req(state)
		case <-m.closed:
			return
		}
	}
}

// do runs fn on the owner goroutine and waits for its result. A request the
// owner picks up after ctx is done is dropped without running fn. Once fn
// runs, its result is returned even if ctx ends meanwhile.
func (m *Memory) do(ctx context.Context, fn func(*room) error) error {
	result := make(chan error, 1)
	req := func(r *room) {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		result <- fn(r)
	}

	select {
	case m.requests <- req:
	case <-m.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	return <-result
}

// commit persists next and makes it the current state. On a persist failure
// the current state is left untouched.
func (m *Memory) commit(current *room, next room) error {
	if err := m.persist(next); err != nil {
		return err
	}
	*current = next
	return nil
}

func (m *Memory) CreatePost(ctx context.Context, in shift.PostInput) (shift.Post, error) {
	origin := in.Origin
	if !origin.Known() {
		origin = shift.IntentNone
	}

	var created shift.Post
	err := m.do(ctx, func(r *room) error {
		post := shift.Post{
			ID:        m.newID(),
			User:      in.User,
			Role:      in.Role,
			Date:      in.Date,
			Shift:     in.Shift,
			Notes:     in.Notes,
			Origin:    origin,
			CreatedAt: m.now().UTC(),
			Status:    shift.StatusOpen,
		}

		next := r.clone()
		next.Posts = append([]shift.Post{post}, next.Posts...)
		if err := m.commit(r, next); err != nil {
			return err
		}
		created = post
		return nil
	})

	return created, err
}

func (m *Memory) ListOpenPosts(ctx context.Context) ([]shift.Post, error) {
	var posts []shift.Post
	err := m.do(ctx, func(r *room) error {
		posts = make([]shift.Post, 0, len(r.Posts))
		for _, p := range r.Posts {
			if p.Status == shift.StatusOpen {
				posts = append(posts, p)
			}
		}
		return nil
	})
	return posts, err
}

func (m *Memory) GetPost(ctx context.Context, id string) (shift.Post, error) {
	var post shift.Post
	err := m.do(ctx, func(r *room) error {
		i := r.find(id)
		if i == -1 {
			return fmt.Errorf("post %q: %w", id, ErrNotFound)
		}
		post = r.Posts[i]
		return nil
	})
	return post, err
}

func (m *Memory) UpdateStatus(ctx context.Context, id string, status shift.Status) (shift.Post, error) {
	var post shift.Post
	err := m.do(ctx, func(r *room) error {
		i := r.find(id)
		if i == -1 {
			return fmt.Errorf("post %q: %w", id, ErrNotFound)
		}
		if !r.Posts[i].Status.CanTransition(status) {
			return fmt.Errorf("post %q %s -> %s: %w", id, r.Posts[i].Status, status, ErrInvalidTransition)
		}

		next := r.clone()
		next.Posts[i].Status = status
		if err := m.commit(r, next); err != nil {
			return err
		}
		post = next.Posts[i]
		return nil
	})
	return post, err
}

func (m *Memory) RecordMatch(ctx context.Context, in shift.MatchInput) (shift.Match, error) {
	var match shift.Match
	err := m.do(ctx, func(r *room) error {
		if r.find(in.RequestID) == -1 {
			return fmt.Errorf("post %q: %w", in.RequestID, ErrNotFound)
		}

		created := shift.Match{
			ID:            m.newID(),
			RequestID:     in.RequestID,
			CandidateUser: in.CandidateUser,
			Reason:        in.Reason,
			CreatedAt:     m.now().UTC(),
		}

		next := r.clone()
		next.Matches = append(next.Matches, created)
		if err := m.commit(r, next); err != nil {
			return err
		}
		match = created
		return nil
	})
	return match, err
}

func (m *Memory) ListMatches(ctx context.Context) ([]shift.Match, error) {
	var matches []shift.Match
	err := m.do(ctx, func(r *room) error {
		matches = append(make([]shift.Match, 0, len(r.Matches)), r.Matches...)
		return nil
	})
	return matches, err
}

func (m *Memory) Clear(ctx context.Context) error {
	return m.do(ctx, func(r *room) error {
		return m.commit(r, room{})
	})
}

// Close stops the owner goroutine. Later calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.closed)
		<-m.done
	})
	return nil
}

func (m *Memory) load() (*room, error) {
	state := &room{}
	if m.path == "" {
		return state, nil
	}

	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Info("snapshot not found, starting empty", zap.String("path", m.path))
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", m.path, err)
	}

	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", m.path, err)
	}

	m.logger.Info("snapshot loaded",
		zap.String("path", m.path),
		zap.Int("posts", len(state.Posts)),
		zap.Int("matches", len(state.Matches)),
	)

	return state, nil
}

// persist replaces the snapshot file through a temp file and a rename.
func (m *Memory) persist(r room) error {
	if m.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}
