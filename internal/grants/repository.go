package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/shared"
)

// Repository provides PostgreSQL backed persistence for ownership facts and
// explicit grants. It implements authz.GrantStore and the ownership lookup
// the role classifier uses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OwnerOf returns the owning principal of a collection.
func (r *Repository) OwnerOf(ctx context.Context, collectionID uuid.UUID) (int64, error) {
	var ownerID int64
	err := r.pool.QueryRow(ctx,
		`SELECT owner_id FROM collections WHERE id = $1`, collectionID,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("grants: owner lookup: %w", err)
	}
	return ownerID, nil
}

// GrantFor returns the explicit grant level for a principal on a collection.
func (r *Repository) GrantFor(ctx context.Context, principalID int64, collectionID uuid.UUID) (authz.Level, bool, error) {
	var level string
	err := r.pool.QueryRow(ctx,
		`SELECT level FROM collection_grants WHERE principal_id = $1 AND collection_id = $2`,
		principalID, collectionID,
	).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("grants: grant lookup: %w", err)
	}
	return authz.ParseLevel(level), true, nil
}

// OwnsAnyCollection reports whether the user owns at least one collection.
func (r *Repository) OwnsAnyCollection(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM collections WHERE owner_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("grants: ownership scan: %w", err)
	}
	return exists, nil
}

// Upsert stores or replaces a grant.
func (r *Repository) Upsert(ctx context.Context, g Grant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO collection_grants (principal_id, collection_id, level, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (principal_id, collection_id) DO UPDATE SET level = EXCLUDED.level`,
		g.PrincipalID, g.CollectionID, g.Level.String(),
	)
	if err != nil {
		return fmt.Errorf("grants: upsert: %w", err)
	}
	return nil
}

// Delete removes a grant. Returns shared.ErrNotFound when nothing matched.
func (r *Repository) Delete(ctx context.Context, principalID int64, collectionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM collection_grants WHERE principal_id = $1 AND collection_id = $2`,
		principalID, collectionID,
	)
	if err != nil {
		return fmt.Errorf("grants: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListForCollection returns all grants on a collection.
func (r *Repository) ListForCollection(ctx context.Context, collectionID uuid.UUID) ([]Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT principal_id, collection_id, level, created_at
		 FROM collection_grants WHERE collection_id = $1 ORDER BY created_at`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("grants: list: %w", err)
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var g Grant
		var level string
		if err := rows.Scan(&g.PrincipalID, &g.CollectionID, &level, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Level = authz.ParseLevel(level)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

var (
	_ authz.GrantStore = (*Repository)(nil)
)
