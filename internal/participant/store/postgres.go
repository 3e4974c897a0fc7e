package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stamprally/internal/participant/models"
	"stamprally/pkg/platform/sentinel"
)

// PostgresStore persists participants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed participant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (id, created_at, completed, completed_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.CreatedAt, p.Completed, nullTime(p.CompletedAt))
	if err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, completed, completed_at FROM participants WHERE id = $1`, id)
	return scanParticipant(row.Scan)
}

// Update persists the completion transition. The WHERE clause refuses to
// overwrite an already-set completion timestamp so concurrent evaluators
// cannot move it.
func (s *PostgresStore) Update(ctx context.Context, p *models.Participant) error {
	query := `
		UPDATE participants
		SET completed = $2, completed_at = COALESCE(completed_at, $3)
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, p.ID, p.Completed, nullTime(p.CompletedAt))
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	return s.countWhere(ctx, `SELECT COUNT(*) FROM participants`)
}

func (s *PostgresStore) CountCompleted(ctx context.Context) (int, error) {
	return s.countWhere(ctx, `SELECT COUNT(*) FROM participants WHERE completed`)
}

func (s *PostgresStore) countWhere(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListCompleted(ctx context.Context) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, completed, completed_at
		FROM participants
		WHERE completed
		ORDER BY completed_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list completed participants: %w", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	return s.countWhere(ctx,
		`SELECT COUNT(*) FROM participants WHERE created_at >= $1 AND created_at < $2`, from, to)
}

func scanParticipant(scan func(...any) error) (*models.Participant, error) {
	var p models.Participant
	var completedAt sql.NullTime
	if err := scan(&p.ID, &p.CreatedAt, &p.Completed, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	return &p, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
