package orders

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

// Repository provides PostgreSQL backed persistence for orders and exposes
// the wallet snapshot lookup the authorization engine consumes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WalletForOrder returns the wallet address recorded on the order.
func (r *Repository) WalletForOrder(ctx context.Context, orderID uuid.UUID) (string, error) {
	var address string
	err := r.pool.QueryRow(ctx,
		`SELECT wallet_address FROM orders WHERE id = $1`, orderID,
	).Scan(&address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("orders: wallet lookup: %w", err)
	}
	return address, nil
}

// Create inserts an order.
func (r *Repository) Create(ctx context.Context, o Order) (Order, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (id, product_id, wallet_address, amount_cents, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING created_at`,
		o.ID, o.ProductID, o.WalletAddress, o.AmountCents, string(o.Status),
	).Scan(&o.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("orders: create: %w", err)
	}
	return o, nil
}

// Get fetches an order by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, product_id, wallet_address, amount_cents, status, created_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.ProductID, &o.WalletAddress, &o.AmountCents, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, fmt.Errorf("orders: get: %w", err)
	}
	o.Status = Status(status)
	return o, nil
}

// ListByWallet returns the orders recorded for a wallet address.
func (r *Repository) ListByWallet(ctx context.Context, walletAddress string) ([]Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, wallet_address, amount_cents, status, created_at
		 FROM orders WHERE lower(wallet_address) = lower($1) ORDER BY created_at DESC`,
		walletAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("orders: list by wallet: %w", err)
	}
	return scanOrders(rows)
}

// ListByCollection returns the orders placed on products of a collection.
func (r *Repository) ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.product_id, o.wallet_address, o.amount_cents, o.status, o.created_at
		 FROM orders o
		 JOIN products p ON p.id = o.product_id
		 JOIN categories cat ON cat.id = p.category_id
		 WHERE cat.collection_id = $1
		 ORDER BY o.created_at DESC`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("orders: list by collection: %w", err)
	}
	return scanOrders(rows)
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.ID, &o.ProductID, &o.WalletAddress, &o.AmountCents, &status, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

var _ authz.OrderWallets = (*Repository)(nil)
