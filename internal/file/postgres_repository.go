package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filegrid/filegrid/internal/gdpr"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL file repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const fileColumns = `
	id, company_id, department_id, folder_id, name, extension, size_bytes,
	content_type, storage_path, created_by_user_id, gdpr_risk_level,
	malware_status, deletion_status, deletion_proof_id, created_at, updated_at
`

func scanFile(row pgx.Row) (*File, error) {
	var (
		f              File
		risk           string
		malwareStatus  string
		deletionStatus string
	)
	err := row.Scan(
		&f.ID, &f.CompanyID, &f.DepartmentID, &f.FolderID, &f.Name,
		&f.Extension, &f.SizeBytes, &f.ContentType, &f.StoragePath,
		&f.CreatedByUserID, &risk, &malwareStatus, &deletionStatus,
		&f.DeletionProofID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	f.GdprRiskLevel = gdpr.RiskLevel(risk)
	f.MalwareStatus = MalwareStatus(malwareStatus)
	f.DeletionStatus = DeletionStatus(deletionStatus)
	return &f, nil
}

// Get retrieves a file by ID.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return scanFile(r.pool.QueryRow(ctx, query, id))
}

// Create creates a new file row.
func (r *PostgresRepository) Create(ctx context.Context, f *File) error {
	query := `
		INSERT INTO files (
			company_id, department_id, folder_id, name, extension, size_bytes,
			content_type, storage_path, created_by_user_id, gdpr_risk_level,
			malware_status, deletion_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	err := r.pool.QueryRow(ctx, query,
		f.CompanyID, f.DepartmentID, f.FolderID, f.Name, f.Extension,
		f.SizeBytes, f.ContentType, f.StoragePath, f.CreatedByUserID,
		string(f.GdprRiskLevel), string(f.MalwareStatus),
		string(f.DeletionStatus), f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// Rename updates the file's name.
func (r *PostgresRepository) Rename(ctx context.Context, id int64, name string) error {
	return r.exec(ctx,
		`UPDATE files SET name = $2, updated_at = $3 WHERE id = $1`,
		id, name, time.Now())
}

// Move reparents the file and records the inherited department scope.
func (r *PostgresRepository) Move(ctx context.Context, id, folderID int64, departmentID *int64) error {
	return r.exec(ctx,
		`UPDATE files SET folder_id = $2, department_id = $3, updated_at = $4 WHERE id = $1`,
		id, folderID, departmentID, time.Now())
}

// SetDeletionStatus updates the lifecycle state.
func (r *PostgresRepository) SetDeletionStatus(ctx context.Context, id int64, status DeletionStatus) error {
	return r.exec(ctx,
		`UPDATE files SET deletion_status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now())
}

// SetRiskLevel updates the PII classification.
func (r *PostgresRepository) SetRiskLevel(ctx context.Context, id int64, level gdpr.RiskLevel) error {
	return r.exec(ctx,
		`UPDATE files SET gdpr_risk_level = $2, updated_at = $3 WHERE id = $1`,
		id, string(level), time.Now())
}

// SetMalwareStatus updates the malware scan state.
func (r *PostgresRepository) SetMalwareStatus(ctx context.Context, id int64, status MalwareStatus) error {
	return r.exec(ctx,
		`UPDATE files SET malware_status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now())
}

// CountInFolder returns the number of files directly in a folder.
func (r *PostgresRepository) CountInFolder(ctx context.Context, folderID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM files WHERE folder_id = $1`, folderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count folder files: %w", err)
	}
	return n, nil
}

// MarkAllConfirmedPII bulk-sets folder files to CONFIRMED_PII.
func (r *PostgresRepository) MarkAllConfirmedPII(ctx context.Context, folderID int64) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE files SET gdpr_risk_level = $2, updated_at = $3 WHERE folder_id = $1`,
		folderID, string(gdpr.RiskConfirmedPII), time.Now())
	if err != nil {
		return 0, fmt.Errorf("mark folder files confirmed pii: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListIDsInFolder returns ids of ACTIVE files directly in the folder.
func (r *PostgresRepository) ListIDsInFolder(ctx context.Context, companyID, folderID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM files WHERE company_id = $1 AND folder_id = $2 AND deletion_status = $3`,
		companyID, folderID, string(DeletionActive))
	if err != nil {
		return nil, fmt.Errorf("query folder file ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan file id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByDeletionStatus returns a company's files in the given state.
func (r *PostgresRepository) ListByDeletionStatus(ctx context.Context, companyID int64, status DeletionStatus) ([]File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE company_id = $1 AND deletion_status = $2 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, companyID, string(status))
	if err != nil {
		return nil, fmt.Errorf("query files by deletion status: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
