package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
)

// Store defines persistence operations for the catalog module.
type Store interface {
	CreateCollection(ctx context.Context, c Collection) (Collection, error)
	GetCollection(ctx context.Context, id uuid.UUID) (Collection, error)
	UpdateCollection(ctx context.Context, c Collection) error
	ListCollections(ctx context.Context) ([]Collection, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (Category, error)
	ListCategories(ctx context.Context, collectionID uuid.UUID) ([]Category, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	ListProducts(ctx context.Context, categoryID uuid.UUID) ([]Product, error)
}

// Enforcer is the slice of the policy enforcement point the catalog needs.
type Enforcer interface {
	Enforce(ctx context.Context, p identity.Principal, ref authz.ResourceRef, required authz.Level) error
	Filter(ctx context.Context, p identity.Principal, candidates []authz.ResourceRef, required authz.Level) []authz.ResourceRef
}

// Service wraps catalog business rules. Every mutating operation calls the
// enforcement point explicitly before touching storage; there are no hidden
// persistence-time hooks.
type Service struct {
	store Store
	pep   Enforcer
}

// NewService constructs a Service.
func NewService(store Store, pep Enforcer) *Service {
	return &Service{store: store, pep: pep}
}

// CollectionInput carries collection creation and update fields.
type CollectionInput struct {
	Name    string
	Slug    string
	Visible bool
}

// CreateCollection registers a new collection owned by the caller. Only
// merchants and admins may create collections.
func (s *Service) CreateCollection(ctx context.Context, p identity.Principal, in CollectionInput) (Collection, error) {
	if p.Role != identity.RoleMerchant && !p.IsAdmin() {
		return Collection{}, shared.ErrPermissionDenied
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Collection{}, fmt.Errorf("catalog: collection name required")
	}
	return s.store.CreateCollection(ctx, Collection{
		ID:      uuid.New(),
		OwnerID: p.UserID,
		Name:    name,
		Slug:    slugify(in.Slug, name),
		Visible: in.Visible,
	})
}

// GetCollection fetches a collection the caller may view.
func (s *Service) GetCollection(ctx context.Context, p identity.Principal, id uuid.UUID) (Collection, error) {
	if err := s.pep.Enforce(ctx, p, authz.CollectionRef(id), authz.LevelView); err != nil {
		return Collection{}, err
	}
	return s.store.GetCollection(ctx, id)
}

// UpdateCollection persists changes to a collection the caller may edit.
func (s *Service) UpdateCollection(ctx context.Context, p identity.Principal, id uuid.UUID, in CollectionInput) (Collection, error) {
	if err := s.pep.Enforce(ctx, p, authz.CollectionRef(id), authz.LevelEdit); err != nil {
		return Collection{}, err
	}
	current, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return Collection{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		current.Name = name
	}
	current.Slug = slugify(in.Slug, current.Name)
	current.Visible = in.Visible
	if err := s.store.UpdateCollection(ctx, current); err != nil {
		return Collection{}, err
	}
	return current, nil
}

// ListCollections returns the collections the caller may view.
func (s *Service) ListCollections(ctx context.Context, p identity.Principal) ([]Collection, error) {
	all, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]authz.ResourceRef, len(all))
	byID := make(map[uuid.UUID]Collection, len(all))
	for i, c := range all {
		refs[i] = authz.CollectionRef(c.ID)
		byID[c.ID] = c
	}
	permitted := s.pep.Filter(ctx, p, refs, authz.LevelView)
	out := make([]Collection, 0, len(permitted))
	for _, ref := range permitted {
		out = append(out, byID[ref.ID])
	}
	return out, nil
}

// CreateCategory adds a category to a collection the caller may edit.
func (s *Service) CreateCategory(ctx context.Context, p identity.Principal, collectionID uuid.UUID, name string, position int) (Category, error) {
	if err := s.pep.Enforce(ctx, p, authz.CollectionRef(collectionID), authz.LevelEdit); err != nil {
		return Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, fmt.Errorf("catalog: category name required")
	}
	return s.store.CreateCategory(ctx, Category{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Name:         name,
		Position:     position,
	})
}

// ListCategories returns the categories of a collection the caller may view.
func (s *Service) ListCategories(ctx context.Context, p identity.Principal, collectionID uuid.UUID) ([]Category, error) {
	if err := s.pep.Enforce(ctx, p, authz.CollectionRef(collectionID), authz.LevelView); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, collectionID)
}

// CreateProduct adds a product to a category whose collection the caller may
// edit.
func (s *Service) CreateProduct(ctx context.Context, p identity.Principal, categoryID uuid.UUID, name string, priceCents int64) (Product, error) {
	if err := s.pep.Enforce(ctx, p, authz.CategoryRef(categoryID), authz.LevelEdit); err != nil {
		return Product{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, fmt.Errorf("catalog: product name required")
	}
	if priceCents < 0 {
		return Product{}, fmt.Errorf("catalog: price must not be negative")
	}
	return s.store.CreateProduct(ctx, Product{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Name:       name,
		PriceCents: priceCents,
		Active:     true,
	})
}

// GetProduct fetches a product the caller may view.
func (s *Service) GetProduct(ctx context.Context, p identity.Principal, id uuid.UUID) (Product, error) {
	if err := s.pep.Enforce(ctx, p, authz.ProductRef(id), authz.LevelView); err != nil {
		return Product{}, err
	}
	return s.store.GetProduct(ctx, id)
}

// UpdateProduct persists changes to a product the caller may edit.
func (s *Service) UpdateProduct(ctx context.Context, p identity.Principal, product Product) error {
	if err := s.pep.Enforce(ctx, p, authz.ProductRef(product.ID), authz.LevelEdit); err != nil {
		return err
	}
	return s.store.UpdateProduct(ctx, product)
}

// ListProducts returns the products of a category the caller may view.
func (s *Service) ListProducts(ctx context.Context, p identity.Principal, categoryID uuid.UUID) ([]Product, error) {
	if err := s.pep.Enforce(ctx, p, authz.CategoryRef(categoryID), authz.LevelView); err != nil {
		return nil, err
	}
	return s.store.ListProducts(ctx, categoryID)
}

func slugify(slug, fallback string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = fallback
	}
	slug = strings.ToLower(slug)
	return strings.ReplaceAll(slug, " ", "-")
}
