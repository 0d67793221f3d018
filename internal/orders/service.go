package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
)

// Store defines persistence operations for the orders module.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	ListByWallet(ctx context.Context, walletAddress string) ([]Order, error)
	ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]Order, error)
}

// ProductCatalog is the slice of the catalog the checkout path needs.
type ProductCatalog interface {
	GetProduct(ctx context.Context, p identity.Principal, id uuid.UUID) (Product, error)
}

// Product mirrors the catalog fields checkout reads.
type Product struct {
	ID         uuid.UUID
	PriceCents int64
	Active     bool
}

// Enforcer is the slice of the policy enforcement point orders need.
type Enforcer interface {
	Enforce(ctx context.Context, p identity.Principal, ref authz.ResourceRef, required authz.Level) error
	Filter(ctx context.Context, p identity.Principal, candidates []authz.ResourceRef, required authz.Level) []authz.ResourceRef
}

// IdempotencyStore guards checkout retries.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service wraps order business rules.
type Service struct {
	store       Store
	products    ProductCatalog
	pep         Enforcer
	idempotency IdempotencyStore
}

// NewService constructs a Service.
func NewService(store Store, products ProductCatalog, pep Enforcer, idempotency IdempotencyStore) *Service {
	return &Service{store: store, products: products, pep: pep, idempotency: idempotency}
}

// Checkout records an order for the caller's verified wallet. The wallet
// address is snapshotted onto the order; it never tracks later account
// changes. The caller must be able to view the product being bought.
func (s *Service) Checkout(ctx context.Context, p identity.Principal, productID uuid.UUID, idempotencyKey string) (Order, error) {
	if p.WalletAddress == "" {
		return Order{}, ErrWalletRequired
	}
	product, err := s.products.GetProduct(ctx, p, productID)
	if err != nil {
		return Order{}, err
	}
	if !product.Active {
		return Order{}, fmt.Errorf("orders: product %s not for sale: %w", productID, shared.ErrNotFound)
	}
	if s.idempotency != nil && idempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "orders"); err != nil {
			return Order{}, err
		}
	}
	created, err := s.store.Create(ctx, Order{
		ID:            uuid.New(),
		ProductID:     productID,
		WalletAddress: p.WalletAddress,
		AmountCents:   product.PriceCents,
		Status:        StatusPending,
	})
	if err != nil {
		if s.idempotency != nil && idempotencyKey != "" {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return Order{}, err
	}
	return created, nil
}

// Get fetches an order the caller may view: the buyer via wallet match, the
// collection owner, grantees, or an admin.
func (s *Service) Get(ctx context.Context, p identity.Principal, id uuid.UUID) (Order, error) {
	if err := s.pep.Enforce(ctx, p, authz.OrderRef(id), authz.LevelView); err != nil {
		return Order{}, err
	}
	return s.store.Get(ctx, id)
}

// ListMine returns the caller's own orders, keyed by verified wallet.
func (s *Service) ListMine(ctx context.Context, p identity.Principal) ([]Order, error) {
	if p.WalletAddress == "" {
		return nil, ErrWalletRequired
	}
	return s.store.ListByWallet(ctx, p.WalletAddress)
}

// ListForCollection returns the orders under a collection that the caller
// may view, filtered row by row through the enforcement point.
func (s *Service) ListForCollection(ctx context.Context, p identity.Principal, collectionID uuid.UUID) ([]Order, error) {
	all, err := s.store.ListByCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	refs := make([]authz.ResourceRef, len(all))
	byID := make(map[uuid.UUID]Order, len(all))
	for i, o := range all {
		refs[i] = authz.OrderRef(o.ID)
		byID[o.ID] = o
	}
	permitted := s.pep.Filter(ctx, p, refs, authz.LevelView)
	out := make([]Order, 0, len(permitted))
	for _, ref := range permitted {
		out = append(out, byID[ref.ID])
	}
	return out, nil
}
