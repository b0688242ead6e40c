package retention

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filegrid/filegrid/internal/audit"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL retention repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const policyColumns = `
	id, company_id, name, description, duration_days, auto_delete,
	legal_hold_allowed, created_at, updated_at
`

func scanPolicy(row pgx.Row) (*Policy, error) {
	var p Policy
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.DurationDays,
		&p.AutoDelete, &p.LegalHoldAllowed, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreatePolicy creates a policy.
func (r *PostgresRepository) CreatePolicy(ctx context.Context, p *Policy) error {
	query := `
		INSERT INTO retention_policies (
			company_id, name, description, duration_days, auto_delete,
			legal_hold_allowed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	err := r.pool.QueryRow(ctx, query,
		p.CompanyID, p.Name, p.Description, p.DurationDays, p.AutoDelete,
		p.LegalHoldAllowed, now,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert retention policy: %w", err)
	}
	return nil
}

// GetPolicy retrieves a company's policy.
func (r *PostgresRepository) GetPolicy(ctx context.Context, companyID, id int64) (*Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM retention_policies WHERE id = $1 AND company_id = $2`
	return scanPolicy(r.pool.QueryRow(ctx, query, id, companyID))
}

// ListPolicies returns a company's policies.
func (r *PostgresRepository) ListPolicies(ctx context.Context, companyID int64) ([]Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM retention_policies WHERE company_id = $1 ORDER BY name`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("query retention policies: %w", err)
	}
	defer rows.Close()

	var out []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdatePolicy persists changed policy fields.
func (r *PostgresRepository) UpdatePolicy(ctx context.Context, p *Policy) error {
	query := `
		UPDATE retention_policies SET
			name = $3, description = $4, duration_days = $5,
			auto_delete = $6, legal_hold_allowed = $7, updated_at = $8
		WHERE id = $1 AND company_id = $2
	`

	p.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx, query,
		p.ID, p.CompanyID, p.Name, p.Description, p.DurationDays,
		p.AutoDelete, p.LegalHoldAllowed, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update retention policy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

// DeletePolicy removes an unreferenced policy.
func (r *PostgresRepository) DeletePolicy(ctx context.Context, companyID, id int64) error {
	var refs int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM file_retentions WHERE policy_id = $1`, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count policy assignments: %w", err)
	}
	if refs > 0 {
		return ErrPolicyInUse
	}

	result, err := r.pool.Exec(ctx,
		`DELETE FROM retention_policies WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("delete retention policy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

// Assign creates a new FileRetention row.
func (r *PostgresRepository) Assign(ctx context.Context, fr *FileRetention) error {
	query := `
		INSERT INTO file_retentions (file_id, policy_id, under_legal_hold, assigned_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if fr.AssignedAt.IsZero() {
		fr.AssignedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, query,
		fr.FileID, fr.PolicyID, fr.UnderLegalHold, fr.AssignedAt).Scan(&fr.ID)
	if err != nil {
		return fmt.Errorf("insert file retention: %w", err)
	}
	return nil
}

// ListForFile returns every retention row linked to a file.
func (r *PostgresRepository) ListForFile(ctx context.Context, fileID int64) ([]FileRetention, error) {
	query := `
		SELECT id, file_id, policy_id, under_legal_hold, assigned_at
		FROM file_retentions
		WHERE file_id = $1
		ORDER BY assigned_at
	`

	rows, err := r.pool.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("query file retentions: %w", err)
	}
	defer rows.Close()

	var out []FileRetention
	for rows.Next() {
		var fr FileRetention
		if err := rows.Scan(&fr.ID, &fr.FileID, &fr.PolicyID, &fr.UnderLegalHold, &fr.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan file retention: %w", err)
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

// SetLegalHold flips the legal-hold flag on one retention row.
func (r *PostgresRepository) SetLegalHold(ctx context.Context, retentionID int64, hold bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE file_retentions SET under_legal_hold = $2 WHERE id = $1`,
		retentionID, hold)
	if err != nil {
		return fmt.Errorf("set legal hold: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRetentionNotFound
	}
	return nil
}

// ListExpired returns ids of ACTIVE files past their auto-delete window,
// excluding files with any legal hold.
func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT f.id
		FROM files f
		JOIN file_retentions fr ON fr.file_id = f.id
		JOIN retention_policies p ON p.id = fr.policy_id
		WHERE f.deletion_status = 'ACTIVE'
			AND p.auto_delete
			AND p.duration_days IS NOT NULL
			AND fr.assigned_at + make_interval(days => p.duration_days) < $1
			AND NOT EXISTS (
				SELECT 1 FROM file_retentions h
				WHERE h.file_id = f.id AND h.under_legal_hold
			)
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query expired files: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired file id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Erase creates the proof, flips the file to ERASED, and appends the
// audit entry in one transaction. The status flip is guarded on
// PENDING_ERASURE so a concurrent batch that already erased the file
// rolls the proof back instead of double-proving.
func (r *PostgresRepository) Erase(ctx context.Context, proof *ErasureProof, entry *audit.Entry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin erase transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if proof.CreatedAt.IsZero() {
		proof.CreatedAt = proof.ErasedAt
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO erasure_proofs (
			company_id, file_id, policy_id, erased_at,
			erased_by_system_user_id, method, hash_before_delete, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		proof.CompanyID, proof.FileID, proof.PolicyID, proof.ErasedAt,
		proof.ErasedBySystemUserID, proof.Method, proof.HashBeforeDelete,
		proof.CreatedAt,
	).Scan(&proof.ID)
	if err != nil {
		return fmt.Errorf("insert erasure proof: %w", err)
	}

	result, err := tx.Exec(ctx, `
		UPDATE files
		SET deletion_status = 'ERASED', deletion_proof_id = $2, updated_at = $3
		WHERE id = $1 AND deletion_status = 'PENDING_ERASURE'
	`, proof.FileID, proof.ID, proof.ErasedAt)
	if err != nil {
		return fmt.Errorf("mark file erased: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFileNotPending
	}

	if entry != nil {
		var metadata []byte
		if entry.Metadata != nil {
			metadata, err = json.Marshal(entry.Metadata)
			if err != nil {
				return fmt.Errorf("marshal erasure audit metadata: %w", err)
			}
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = proof.ErasedAt
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO audit_logs (
				company_id, actor_user_id, event_type, target_type, target_id,
				metadata, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			entry.CompanyID, entry.ActorUserID, string(entry.EventType),
			string(entry.TargetType), entry.TargetID, metadata, entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert erasure audit entry: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListProofs returns a company's erasure proofs, newest first.
func (r *PostgresRepository) ListProofs(ctx context.Context, companyID int64) ([]ErasureProof, error) {
	query := `
		SELECT id, company_id, file_id, policy_id, erased_at,
			erased_by_system_user_id, method, hash_before_delete, created_at
		FROM erasure_proofs
		WHERE company_id = $1
		ORDER BY id DESC
	`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("query erasure proofs: %w", err)
	}
	defer rows.Close()

	var out []ErasureProof
	for rows.Next() {
		var p ErasureProof
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.FileID, &p.PolicyID, &p.ErasedAt,
			&p.ErasedBySystemUserID, &p.Method, &p.HashBeforeDelete, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan erasure proof: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
