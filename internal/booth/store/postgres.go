package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"stamprally/internal/booth/models"
	"stamprally/pkg/platform/sentinel"
)

// PostgresStore persists booths in PostgreSQL. The booths_code_key unique
// constraint is the arbiter for code collisions under concurrent creates.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed booth store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const boothColumns = "id, code, name, description, active, created_at, updated_at"

func (s *PostgresStore) CreateIfCodeAvailable(ctx context.Context, b *models.Booth) error {
	query := `
		INSERT INTO booths (id, code, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.Code, b.Name, b.Description, b.Active, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create booth: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Booth, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+boothColumns+` FROM booths WHERE id = $1`, id)
	return scanBooth(row)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Booth, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+boothColumns+` FROM booths WHERE code = $1`, code)
	return scanBooth(row)
}

func (s *PostgresStore) FindActiveByCode(ctx context.Context, code string) (*models.Booth, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+boothColumns+` FROM booths WHERE code = $1 AND active`, code)
	return scanBooth(row)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Booth, error) {
	return s.listWhere(ctx, `WHERE active`)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Booth, error) {
	return s.listWhere(ctx, ``)
}

func (s *PostgresStore) listWhere(ctx context.Context, where string) ([]*models.Booth, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+boothColumns+` FROM booths `+where+` ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("list booths: %w", err)
	}
	defer rows.Close()

	var out []*models.Booth
	for rows.Next() {
		var b models.Booth
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan booth: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, b *models.Booth) error {
	query := `
		UPDATE booths
		SET code = $2, name = $3, description = $4, active = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		b.ID, b.Code, b.Name, b.Description, b.Active, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update booth: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booth: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM booths WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booth: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booth: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanBooth(row *sql.Row) (*models.Booth, error) {
	var b models.Booth
	err := row.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan booth: %w", err)
	}
	return &b, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
