package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/shift"
	"github.com/spigell/shift-swap/internal/store"
)

const pgForeignKeyViolation = "23503"

const postColumns = `id::text, user_name, role, shift_date, shift, notes, origin, status, created_at`

// Rows sharing a created_at are ordered by id so the pool order is stable.
const (
	listOpenPostsQuery = `
		SELECT ` + postColumns + `
		FROM shift_posts
		WHERE status = $1
		ORDER BY created_at DESC, id DESC`

	listMatchesQuery = `
		SELECT id::text, request_id::text, candidate_user, reason, created_at
		FROM shift_matches
		ORDER BY created_at, id`
)

// Store keeps the room in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New connects, pings and applies pending migrations.
func New(ctx context.Context, connString string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := MigrateUp(connString); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("postgres store ready")

	return &Store{pool: pool, logger: log}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreatePost(ctx context.Context, in shift.PostInput) (shift.Post, error) {
	origin := in.Origin
	if !origin.Known() {
		origin = shift.IntentNone
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO shift_posts (id, user_name, role, shift_date, shift, notes, origin, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+postColumns,
		uuid.New(), in.User, in.Role, in.Date, in.Shift, in.Notes, string(origin), string(shift.StatusOpen),
	)

	post, err := scanPost(row)
	if err != nil {
		return shift.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

func (s *Store) ListOpenPosts(ctx context.Context) ([]shift.Post, error) {
	rows, err := s.pool.Query(ctx, listOpenPostsQuery, string(shift.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("query open posts: %w", err)
	}
	defer rows.Close()

	posts := []shift.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (shift.Post, error) {
	key, err := parseID(id)
	if err != nil {
		return shift.Post{}, err
	}

	row := s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM shift_posts WHERE id = $1`, key)

	post, err := scanPost(row)
	if err != nil {
		return shift.Post{}, mapError(err, fmt.Sprintf("post %q", id))
	}
	return post, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, next shift.Status) (shift.Post, error) {
	key, err := parseID(id)
	if err != nil {
		return shift.Post{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return shift.Post{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM shift_posts WHERE id = $1 FOR UPDATE`, key).Scan(&current)
	if err != nil {
		return shift.Post{}, mapError(err, fmt.Sprintf("post %q", id))
	}

	if !shift.Status(current).CanTransition(next) {
		return shift.Post{}, fmt.Errorf("post %q %s -> %s: %w", id, current, next, store.ErrInvalidTransition)
	}

	row := tx.QueryRow(ctx, `
		UPDATE shift_posts SET status = $2 WHERE id = $1
		RETURNING `+postColumns,
		key, string(next),
	)
	post, err := scanPost(row)
	if err != nil {
		return shift.Post{}, fmt.Errorf("update status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return shift.Post{}, fmt.Errorf("commit status update: %w", err)
	}

	return post, nil
}

func (s *Store) RecordMatch(ctx context.Context, in shift.MatchInput) (shift.Match, error) {
	key, err := parseID(in.RequestID)
	if err != nil {
		return shift.Match{}, err
	}

	var m shift.Match
	err = s.pool.QueryRow(ctx, `
		INSERT INTO shift_matches (id, request_id, candidate_user, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, request_id::text, candidate_user, reason, created_at`,
		uuid.New(), key, in.CandidateUser, in.Reason,
	).Scan(&m.ID, &m.RequestID, &m.CandidateUser, &m.Reason, &m.CreatedAt)
	if err != nil {
		return shift.Match{}, mapError(err, fmt.Sprintf("post %q", in.RequestID))
	}
	return m, nil
}

func (s *Store) ListMatches(ctx context.Context) ([]shift.Match, error) {
	rows, err := s.pool.Query(ctx, listMatchesQuery)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shift.Match, error) {
		var m shift.Match
		err := row.Scan(&m.ID, &m.RequestID, &m.CandidateUser, &m.Reason, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect matches: %w", err)
	}
	return matches, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE shift_matches, shift_posts`); err != nil {
		return fmt.Errorf("clear room: %w", err)
	}
	return nil
}

// parseID rejects ids that cannot exist in the table.
func parseID(id string) (uuid.UUID, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("post %q: %w", id, store.ErrNotFound)
	}
	return key, nil
}

func scanPost(row pgx.Row) (shift.Post, error) {
	var (
		p              shift.Post
		origin, status string
	)
	if err := row.Scan(&p.ID, &p.User, &p.Role, &p.Date, &p.Shift, &p.Notes, &origin, &status, &p.CreatedAt); err != nil {
		return shift.Post{}, err
	}
	p.Origin = shift.Intent(origin)
	p.Status = shift.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// mapError turns missing rows and dangling references into store.ErrNotFound.
func mapError(err error, subject string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", subject, store.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%s: %w", subject, store.ErrNotFound)
	}

	return err
}
