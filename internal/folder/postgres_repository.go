package folder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filegrid/filegrid/internal/access"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL folder repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const folderColumns = `
	id, company_id, department_id, parent_folder_id, name, path,
	created_by_user_id, is_department_root, contains_personal_data,
	created_at, updated_at
`

func scanFolder(row pgx.Row) (*Folder, error) {
	var f Folder
	err := row.Scan(
		&f.ID, &f.CompanyID, &f.DepartmentID, &f.ParentFolderID, &f.Name,
		&f.Path, &f.CreatedByUserID, &f.IsDepartmentRoot,
		&f.ContainsPersonalData, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Get retrieves a folder by ID.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`
	return scanFolder(r.pool.QueryRow(ctx, query, id))
}

// Create creates a new folder.
func (r *PostgresRepository) Create(ctx context.Context, f *Folder) error {
	query := `
		INSERT INTO folders (
			company_id, department_id, parent_folder_id, name, path,
			created_by_user_id, is_department_root, contains_personal_data,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	err := r.pool.QueryRow(ctx, query,
		f.CompanyID, f.DepartmentID, f.ParentFolderID, f.Name, f.Path,
		f.CreatedByUserID, f.IsDepartmentRoot, f.ContainsPersonalData,
		f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

// Delete removes a folder.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFolderNotFound
	}
	return nil
}

func (r *PostgresRepository) listFolders(ctx context.Context, query string, args ...any) ([]Folder, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var out []Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// ListByCompany returns all folders of a company.
func (r *PostgresRepository) ListByCompany(ctx context.Context, companyID int64) ([]Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE company_id = $1 ORDER BY path`
	return r.listFolders(ctx, query, companyID)
}

// ListChildren returns the direct subfolders of a folder.
func (r *PostgresRepository) ListChildren(ctx context.Context, folderID int64) ([]Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE parent_folder_id = $1 ORDER BY name`
	return r.listFolders(ctx, query, folderID)
}

// CountChildren returns the number of direct subfolders.
func (r *PostgresRepository) CountChildren(ctx context.Context, folderID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM folders WHERE parent_folder_id = $1`, folderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count subfolders: %w", err)
	}
	return n, nil
}

// SetContainsPersonalData updates the folder's PII marking.
func (r *PostgresRepository) SetContainsPersonalData(ctx context.Context, id int64, contains bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE folders SET contains_personal_data = $2, updated_at = $3 WHERE id = $1`,
		id, contains, time.Now())
	if err != nil {
		return fmt.Errorf("update folder pii marking: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// ListPermissions returns all overlay grants on a folder.
func (r *PostgresRepository) ListPermissions(ctx context.Context, folderID int64) ([]Permission, error) {
	query := `
		SELECT id, folder_id, subject_type, subject_id,
			can_read, can_write, can_share, can_manage, created_at, updated_at
		FROM folder_permissions
		WHERE folder_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("query folder permissions: %w", err)
	}
	defer rows.Close()

	var out []Permission
	for rows.Next() {
		var (
			p           Permission
			subjectType string
		)
		if err := rows.Scan(
			&p.ID, &p.FolderID, &subjectType, &p.SubjectID,
			&p.CanRead, &p.CanWrite, &p.CanShare, &p.CanManage,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan folder permission: %w", err)
		}
		p.SubjectType = access.SubjectType(subjectType)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPermission retrieves one overlay grant by ID.
func (r *PostgresRepository) GetPermission(ctx context.Context, permID int64) (*Permission, error) {
	query := `
		SELECT id, folder_id, subject_type, subject_id,
			can_read, can_write, can_share, can_manage, created_at, updated_at
		FROM folder_permissions
		WHERE id = $1
	`

	var (
		p           Permission
		subjectType string
	)
	err := r.pool.QueryRow(ctx, query, permID).Scan(
		&p.ID, &p.FolderID, &subjectType, &p.SubjectID,
		&p.CanRead, &p.CanWrite, &p.CanShare, &p.CanManage,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPermissionNotFound
		}
		return nil, err
	}
	p.SubjectType = access.SubjectType(subjectType)
	return &p, nil
}

// UpsertPermission replaces or creates the grant for the permission's
// (folder, subject) key.
func (r *PostgresRepository) UpsertPermission(ctx context.Context, p *Permission) error {
	query := `
		INSERT INTO folder_permissions (
			folder_id, subject_type, subject_id,
			can_read, can_write, can_share, can_manage, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (folder_id, subject_type, subject_id) DO UPDATE SET
			can_read = EXCLUDED.can_read,
			can_write = EXCLUDED.can_write,
			can_share = EXCLUDED.can_share,
			can_manage = EXCLUDED.can_manage,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := r.pool.QueryRow(ctx, query,
		p.FolderID, string(p.SubjectType), p.SubjectID,
		p.CanRead, p.CanWrite, p.CanShare, p.CanManage, now,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert folder permission: %w", err)
	}
	return nil
}

// DeletePermission removes one overlay grant.
func (r *PostgresRepository) DeletePermission(ctx context.Context, permID int64) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM folder_permissions WHERE id = $1`, permID)
	if err != nil {
		return fmt.Errorf("delete folder permission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
