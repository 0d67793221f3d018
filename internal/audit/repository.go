package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed audit repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert writes one denial event.
func (r *PGRepository) Insert(ctx context.Context, e Event) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO authz_audit_events
		 (at, principal_kind, user_id, wallet_address, resource_kind, resource_id, level, outcome)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.At, e.PrincipalKind, e.UserID, e.WalletAddress, e.ResourceKind, e.ResourceID, e.Level, e.Outcome,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// Window fetches a page of events, newest first.
func (r *PGRepository) Window(ctx context.Context, f TimelineFilters, offset, limit int) ([]Event, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !f.From.IsZero() {
		add("at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("at < $%d", f.To)
	}
	if f.ResourceKind != "" {
		add("resource_kind = $%d", f.ResourceKind)
	}
	if f.Outcome != "" {
		add("outcome = $%d", f.Outcome)
	}
	query := `SELECT id, at, principal_kind, user_id, wallet_address, resource_kind, resource_id, level, outcome
		FROM authz_audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline window: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DeleteOlderThan removes events before the cutoff and reports the count.
func (r *PGRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM authz_audit_events WHERE at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: prune events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.At, &e.PrincipalKind, &e.UserID, &e.WalletAddress,
			&e.ResourceKind, &e.ResourceID, &e.Level, &e.Outcome); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return events, nil
}

var _ Repository = (*PGRepository)(nil)
