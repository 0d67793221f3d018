package catalog

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

// Repository provides PostgreSQL backed persistence for the catalog and
// implements the hierarchy and visibility lookups the authorization engine
// consumes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AncestorCollection resolves any resource reference to its owning
// collection. The join chains require every intermediate row to exist, so an
// orphaned row surfaces as shared.ErrNotFound and the decision fails closed.
func (r *Repository) AncestorCollection(ctx context.Context, ref authz.ResourceRef) (uuid.UUID, error) {
	var query string
	switch ref.Kind {
	case authz.KindCollection:
		query = `SELECT id FROM collections WHERE id = $1`
	case authz.KindCategory:
		query = `SELECT c.id FROM collections c
		         JOIN categories cat ON cat.collection_id = c.id
		         WHERE cat.id = $1`
	case authz.KindProduct:
		query = `SELECT c.id FROM collections c
		         JOIN categories cat ON cat.collection_id = c.id
		         JOIN products p ON p.category_id = cat.id
		         WHERE p.id = $1`
	case authz.KindOrder:
		query = `SELECT c.id FROM collections c
		         JOIN categories cat ON cat.collection_id = c.id
		         JOIN products p ON p.category_id = cat.id
		         JOIN orders o ON o.product_id = p.id
		         WHERE o.id = $1`
	default:
		return uuid.Nil, shared.ErrNotFound
	}
	var collectionID uuid.UUID
	if err := r.pool.QueryRow(ctx, query, ref.ID).Scan(&collectionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("catalog: ancestor lookup: %w", err)
	}
	return collectionID, nil
}

// CollectionVisible reports the collection's public visibility flag.
func (r *Repository) CollectionVisible(ctx context.Context, collectionID uuid.UUID) (bool, error) {
	var visible bool
	err := r.pool.QueryRow(ctx,
		`SELECT visible FROM collections WHERE id = $1`, collectionID,
	).Scan(&visible)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, shared.ErrNotFound
		}
		return false, fmt.Errorf("catalog: visibility lookup: %w", err)
	}
	return visible, nil
}

// CreateCollection inserts a collection.
func (r *Repository) CreateCollection(ctx context.Context, c Collection) (Collection, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO collections (id, owner_id, name, slug, visible, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING created_at, updated_at`,
		c.ID, c.OwnerID, c.Name, c.Slug, c.Visible,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Collection{}, fmt.Errorf("catalog: create collection: %w", err)
	}
	return c, nil
}

// GetCollection fetches a collection by ID.
func (r *Repository) GetCollection(ctx context.Context, id uuid.UUID) (Collection, error) {
	var c Collection
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, slug, visible, created_at, updated_at
		 FROM collections WHERE id = $1`, id,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Slug, &c.Visible, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Collection{}, shared.ErrNotFound
		}
		return Collection{}, fmt.Errorf("catalog: get collection: %w", err)
	}
	return c, nil
}

// UpdateCollection persists name, slug and visibility changes.
func (r *Repository) UpdateCollection(ctx context.Context, c Collection) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE collections SET name = $2, slug = $3, visible = $4, updated_at = now()
		 WHERE id = $1`,
		c.ID, c.Name, c.Slug, c.Visible,
	)
	if err != nil {
		return fmt.Errorf("catalog: update collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListCollections returns all collections, newest first.
func (r *Repository) ListCollections(ctx context.Context) ([]Collection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, name, slug, visible, created_at, updated_at
		 FROM collections ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: list collections: %w", err)
	}
	defer rows.Close()
	var collections []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Slug, &c.Visible, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// CreateCategory inserts a category under a collection.
func (r *Repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (id, collection_id, name, position, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING created_at`,
		c.ID, c.CollectionID, c.Name, c.Position,
	).Scan(&c.CreatedAt)
	if err != nil {
		return Category{}, fmt.Errorf("catalog: create category: %w", err)
	}
	return c, nil
}

// GetCategory fetches a category by ID.
func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, collection_id, name, position, created_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.CollectionID, &c.Name, &c.Position, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, shared.ErrNotFound
		}
		return Category{}, fmt.Errorf("catalog: get category: %w", err)
	}
	return c, nil
}

// ListCategories returns the categories of a collection in display order.
func (r *Repository) ListCategories(ctx context.Context, collectionID uuid.UUID) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, collection_id, name, position, created_at
		 FROM categories WHERE collection_id = $1 ORDER BY position, created_at`, collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.CollectionID, &c.Name, &c.Position, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateProduct inserts a product under a category.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (id, category_id, name, price_cents, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING created_at, updated_at`,
		p.ID, p.CategoryID, p.Name, p.PriceCents, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	return p, nil
}

// GetProduct fetches a product by ID.
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, category_id, name, price_cents, active, created_at, updated_at
		 FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.CategoryID, &p.Name, &p.PriceCents, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: get product: %w", err)
	}
	return p, nil
}

// UpdateProduct persists product changes.
func (r *Repository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $2, price_cents = $3, active = $4, updated_at = now()
		 WHERE id = $1`,
		p.ID, p.Name, p.PriceCents, p.Active,
	)
	if err != nil {
		return fmt.Errorf("catalog: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListProducts returns the products of a category.
func (r *Repository) ListProducts(ctx context.Context, categoryID uuid.UUID) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, name, price_cents, active, created_at, updated_at
		 FROM products WHERE category_id = $1 ORDER BY created_at`, categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.PriceCents, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

var (
	_ authz.HierarchyLookup = (*Repository)(nil)
	_ authz.Visibility      = (*Repository)(nil)
)
