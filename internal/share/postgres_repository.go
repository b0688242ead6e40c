package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL share repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const shareColumns = `
	id, company_id, file_id, created_by_user_id, recipient_email,
	otp_hash, max_downloads, remaining_downloads, expires_at, revoked_at,
	created_at
`

func scanShare(row pgx.Row) (*Share, error) {
	var s Share
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.FileID, &s.CreatedByUserID, &s.RecipientEmail,
		&s.OTPHash, &s.MaxDownloads, &s.RemainingDownloads, &s.ExpiresAt,
		&s.RevokedAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create stores a new share.
func (r *PostgresRepository) Create(ctx context.Context, s *Share) error {
	query := `
		INSERT INTO file_shares (
			id, company_id, file_id, created_by_user_id, recipient_email,
			otp_hash, max_downloads, remaining_downloads, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, query,
		s.ID, s.CompanyID, s.FileID, s.CreatedByUserID, s.RecipientEmail,
		s.OTPHash, s.MaxDownloads, s.RemainingDownloads, s.ExpiresAt,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	return nil
}

// Get retrieves a share by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM file_shares WHERE id = $1`
	return scanShare(r.pool.QueryRow(ctx, query, id))
}

// ListByFile returns a file's shares.
func (r *PostgresRepository) ListByFile(ctx context.Context, companyID, fileID int64) ([]Share, error) {
	query := `SELECT ` + shareColumns + ` FROM file_shares WHERE company_id = $1 AND file_id = $2 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, companyID, fileID)
	if err != nil {
		return nil, fmt.Errorf("query shares: %w", err)
	}
	defer rows.Close()

	var out []Share
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Revoke marks a company's share revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, companyID int64, id string, revokedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE file_shares SET revoked_at = $3
		WHERE id = $1 AND company_id = $2 AND revoked_at IS NULL
	`, id, companyID, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke share: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrShareNotFound
	}
	return nil
}

// ConsumeDownload atomically decrements remaining downloads. The WHERE
// guard keeps concurrent accesses from going below zero.
func (r *PostgresRepository) ConsumeDownload(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE file_shares SET remaining_downloads = remaining_downloads - 1
		WHERE id = $1 AND remaining_downloads > 0
	`, id)
	if err != nil {
		return fmt.Errorf("consume share download: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM file_shares WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrShareNotFound
		}
		return ErrExhausted
	}
	return nil
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
