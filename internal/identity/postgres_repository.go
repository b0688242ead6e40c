package identity

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

// NewPostgresRepository creates a new PostgreSQL identity repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `
	id, company_id, department_id, email, name, role, active,
	created_at, updated_at
`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.CompanyID, &u.DepartmentID, &u.Email, &u.Name, &u.Role,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by ID.
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// CreateUser creates a new user.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (
			id, company_id, department_id, email, name, role, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := r.pool.Exec(ctx, query,
		u.ID, u.CompanyID, u.DepartmentID, u.Email, u.Name, u.Role,
		u.Active, now,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const apiKeyColumns = `
	id, company_id, department_id, name, key_hash, role,
	created_by_user_id, expires_at, last_used_at, revoked_at, created_at
`

func scanAPIKey(row pgx.Row) (*APIKey, error) {
	var k APIKey
	err := row.Scan(
		&k.ID, &k.CompanyID, &k.DepartmentID, &k.Name, &k.KeyHash, &k.Role,
		&k.CreatedByUserID, &k.ExpiresAt, &k.LastUsedAt, &k.RevokedAt,
		&k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &k, nil
}

// CreateAPIKey creates a new API key row.
func (r *PostgresRepository) CreateAPIKey(ctx context.Context, k *APIKey) error {
	query := `
		INSERT INTO api_keys (
			company_id, department_id, name, key_hash, role,
			created_by_user_id, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, query,
		k.CompanyID, k.DepartmentID, k.Name, k.KeyHash, k.Role,
		k.CreatedByUserID, k.ExpiresAt, k.CreatedAt,
	).Scan(&k.ID)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKeyByHash retrieves a key by its storage hash.
func (r *PostgresRepository) GetAPIKeyByHash(ctx context.Context, hash string) (*APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`
	return scanAPIKey(r.pool.QueryRow(ctx, query, hash))
}

// ListAPIKeys returns a company's keys.
func (r *PostgresRepository) ListAPIKeys(ctx context.Context, companyID int64) ([]APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE company_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var out []APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

// TouchAPIKey updates the key's last-used timestamp.
func (r *PostgresRepository) TouchAPIKey(ctx context.Context, id int64, usedAt time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, usedAt)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// RevokeAPIKey marks a company's key revoked.
func (r *PostgresRepository) RevokeAPIKey(ctx context.Context, companyID, id int64, revokedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE api_keys SET revoked_at = $3
		WHERE id = $1 AND company_id = $2 AND revoked_at IS NULL
	`, id, companyID, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
