package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"stamprally/internal/visit/models"
	"stamprally/pkg/platform/sentinel"
)

// PostgresStore persists the visit ledger in PostgreSQL. The
// visits_participant_booth_key unique constraint is the sole concurrency
// mechanism for duplicate stamps; a conflicting insert comes back as
// sentinel.ErrAlreadyUsed regardless of what any earlier existence check saw.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed visit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, v *models.Visit) error {
	query := `
		INSERT INTO visits (id, participant_id, booth_id, stamped_at, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.ParticipantID, v.BoothID, v.StampedAt, v.ClientIP, v.UserAgent)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create visit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, participantID, boothID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM visits WHERE participant_id = $1 AND booth_id = $2)`,
		participantID, boothID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check visit: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CountByParticipant(ctx context.Context, participantID uuid.UUID) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM visits WHERE participant_id = $1`, participantID)
}

func (s *PostgresStore) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*models.Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, booth_id, stamped_at, client_ip, user_agent
		FROM visits
		WHERE participant_id = $1
		ORDER BY stamped_at ASC
	`, participantID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var out []*models.Visit
	for rows.Next() {
		var v models.Visit
		if err := rows.Scan(&v.ID, &v.ParticipantID, &v.BoothID, &v.StampedAt, &v.ClientIP, &v.UserAgent); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) VisitedBoothIDs(ctx context.Context, participantID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT booth_id FROM visits WHERE participant_id = $1`, participantID)
	if err != nil {
		return nil, fmt.Errorf("visited booth ids: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan booth id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (s *PostgresStore) ParticipantIDsWithAtLeast(ctx context.Context, minCount int) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id FROM visits GROUP BY participant_id HAVING COUNT(*) >= $1`, minCount)
	if err != nil {
		return nil, fmt.Errorf("participants with min stamps: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByBooth(ctx context.Context, boothID uuid.UUID) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM visits WHERE booth_id = $1`, boothID)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM visits`)
}

func (s *PostgresStore) CountStampedBetween(ctx context.Context, from, to time.Time) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM visits WHERE stamped_at >= $1 AND stamped_at < $2`, from, to)
}

func (s *PostgresStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return n, nil
}
