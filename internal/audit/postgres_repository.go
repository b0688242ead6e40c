package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append stores a new entry.
func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO audit_logs (
			company_id, actor_user_id, event_type, target_type, target_id,
			ip_address, user_agent, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	err := r.pool.QueryRow(ctx, query,
		entry.CompanyID,
		entry.ActorUserID,
		string(entry.EventType),
		string(entry.TargetType),
		entry.TargetID,
		entry.IPAddress,
		entry.UserAgent,
		metadata,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// List returns entries matching the query, newest first.
func (r *PostgresRepository) List(ctx context.Context, q Query) ([]Entry, error) {
	query := `
		SELECT id, company_id, actor_user_id, event_type, target_type,
			target_id, ip_address, user_agent, metadata, created_at
		FROM audit_logs
		WHERE company_id = $1
			AND ($2::text IS NULL OR actor_user_id = $2)
			AND ($3::text IS NULL OR event_type = $3)
			AND ($4::text IS NULL OR target_type = $4)
			AND ($5::bigint IS NULL OR target_id = $5)
		ORDER BY id DESC
		LIMIT $6
	`

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var eventType, targetType *string
	if q.EventType != nil {
		s := string(*q.EventType)
		eventType = &s
	}
	if q.TargetType != nil {
		s := string(*q.TargetType)
		targetType = &s
	}

	rows, err := r.pool.Query(ctx, query,
		q.CompanyID, q.ActorUserID, eventType, targetType, q.TargetID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			eventType string
			tgtType   string
			metadata  []byte
		)
		if err := rows.Scan(
			&e.ID, &e.CompanyID, &e.ActorUserID, &eventType, &tgtType,
			&e.TargetID, &e.IPAddress, &e.UserAgent, &metadata, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		e.EventType = EventType(eventType)
		e.TargetType = TargetType(tgtType)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
