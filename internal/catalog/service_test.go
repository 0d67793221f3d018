package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
)

// ============================================================================
// MOCK STORE AND ENFORCER
// ============================================================================

type mockStore struct {
	collections map[uuid.UUID]Collection
	categories  map[uuid.UUID]Category
	products    map[uuid.UUID]Product
}

func newMockStore() *mockStore {
	return &mockStore{
		collections: make(map[uuid.UUID]Collection),
		categories:  make(map[uuid.UUID]Category),
		products:    make(map[uuid.UUID]Product),
	}
}

func (m *mockStore) CreateCollection(ctx context.Context, c Collection) (Collection, error) {
	m.collections[c.ID] = c
	return c, nil
}

func (m *mockStore) GetCollection(ctx context.Context, id uuid.UUID) (Collection, error) {
	c, ok := m.collections[id]
	if !ok {
		return Collection{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockStore) UpdateCollection(ctx context.Context, c Collection) error {
	if _, ok := m.collections[c.ID]; !ok {
		return shared.ErrNotFound
	}
	m.collections[c.ID] = c
	return nil
}

func (m *mockStore) ListCollections(ctx context.Context) ([]Collection, error) {
	out := make([]Collection, 0, len(m.collections))
	for _, c := range m.collections {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockStore) CreateCategory(ctx context.Context, c Category) (Category, error) {
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockStore) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockStore) ListCategories(ctx context.Context, collectionID uuid.UUID) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		if c.CollectionID == collectionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) CreateProduct(ctx context.Context, p Product) (Product, error) {
	m.products[p.ID] = p
	return p, nil
}

func (m *mockStore) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) UpdateProduct(ctx context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return shared.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockStore) ListProducts(ctx context.Context, categoryID uuid.UUID) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockEnforcer allows references listed in allow; everything else is denied.
type mockEnforcer struct {
	allow map[authz.ResourceRef]authz.Level
}

func (m *mockEnforcer) Enforce(ctx context.Context, p identity.Principal, ref authz.ResourceRef, required authz.Level) error {
	if granted, ok := m.allow[ref]; ok && granted.Covers(required) {
		return nil
	}
	return shared.ErrPermissionDenied
}

func (m *mockEnforcer) Filter(ctx context.Context, p identity.Principal, candidates []authz.ResourceRef, required authz.Level) []authz.ResourceRef {
	var out []authz.ResourceRef
	for _, ref := range candidates {
		if m.Enforce(ctx, p, ref, required) == nil {
			out = append(out, ref)
		}
	}
	return out
}

// ============================================================================
// TESTS
// ============================================================================

func merchant(id int64) identity.Principal {
	return identity.Principal{Kind: identity.KindSessionUser, UserID: id, Role: identity.RoleMerchant}
}

func TestCreateCollectionRequiresMerchant(t *testing.T) {
	service := NewService(newMockStore(), &mockEnforcer{})
	ctx := context.Background()

	_, err := service.CreateCollection(ctx, identity.Anonymous(), CollectionInput{Name: "Atelier Nord"})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	plain := identity.Principal{Kind: identity.KindSessionUser, UserID: 30, Role: identity.RoleUser}
	_, err = service.CreateCollection(ctx, plain, CollectionInput{Name: "Atelier Nord"})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	created, err := service.CreateCollection(ctx, merchant(10), CollectionInput{Name: "Atelier Nord", Visible: true})
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.OwnerID)
	assert.Equal(t, "atelier-nord", created.Slug)
	assert.True(t, created.Visible)
}

func TestCreateCollectionRequiresName(t *testing.T) {
	service := NewService(newMockStore(), &mockEnforcer{})

	_, err := service.CreateCollection(context.Background(), merchant(10), CollectionInput{Name: "   "})
	assert.Error(t, err)
}

func TestUpdateCollectionEnforcesEdit(t *testing.T) {
	store := newMockStore()
	id := uuid.New()
	store.collections[id] = Collection{ID: id, OwnerID: 10, Name: "Old", Slug: "old"}

	denied := NewService(store, &mockEnforcer{})
	_, err := denied.UpdateCollection(context.Background(), merchant(10), id, CollectionInput{Name: "New"})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	allowed := NewService(store, &mockEnforcer{allow: map[authz.ResourceRef]authz.Level{
		authz.CollectionRef(id): authz.LevelEdit,
	}})
	updated, err := allowed.UpdateCollection(context.Background(), merchant(10), id, CollectionInput{Name: "New", Visible: true})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "new", updated.Slug)
	assert.True(t, store.collections[id].Visible)
}

func TestListCollectionsFiltersByPermission(t *testing.T) {
	store := newMockStore()
	mine := uuid.New()
	other := uuid.New()
	store.collections[mine] = Collection{ID: mine, OwnerID: 10, Name: "Mine"}
	store.collections[other] = Collection{ID: other, OwnerID: 40, Name: "Other"}

	service := NewService(store, &mockEnforcer{allow: map[authz.ResourceRef]authz.Level{
		authz.CollectionRef(mine): authz.LevelView,
	}})

	visible, err := service.ListCollections(context.Background(), merchant(10))
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine, visible[0].ID)
}

func TestCreateCategoryEnforcesCollectionEdit(t *testing.T) {
	store := newMockStore()
	collectionID := uuid.New()
	store.collections[collectionID] = Collection{ID: collectionID, OwnerID: 10}

	service := NewService(store, &mockEnforcer{allow: map[authz.ResourceRef]authz.Level{
		authz.CollectionRef(collectionID): authz.LevelEdit,
	}})

	created, err := service.CreateCategory(context.Background(), merchant(10), collectionID, "Prints", 1)
	require.NoError(t, err)
	assert.Equal(t, collectionID, created.CollectionID)

	_, err = service.CreateCategory(context.Background(), merchant(10), uuid.New(), "Prints", 1)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestCreateProductEnforcesCategoryEdit(t *testing.T) {
	store := newMockStore()
	categoryID := uuid.New()
	store.categories[categoryID] = Category{ID: categoryID}

	service := NewService(store, &mockEnforcer{allow: map[authz.ResourceRef]authz.Level{
		authz.CategoryRef(categoryID): authz.LevelEdit,
	}})

	created, err := service.CreateProduct(context.Background(), merchant(10), categoryID, "Harbor Linocut", 4500)
	require.NoError(t, err)
	assert.Equal(t, categoryID, created.CategoryID)
	assert.Equal(t, int64(4500), created.PriceCents)
	assert.True(t, created.Active)

	_, err = service.CreateProduct(context.Background(), merchant(10), categoryID, "Backwards", -1)
	assert.Error(t, err)
}

func TestGetProductEnforcesView(t *testing.T) {
	store := newMockStore()
	productID := uuid.New()
	store.products[productID] = Product{ID: productID, Name: "Harbor Linocut"}

	denied := NewService(store, &mockEnforcer{})
	_, err := denied.GetProduct(context.Background(), identity.Anonymous(), productID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	allowed := NewService(store, &mockEnforcer{allow: map[authz.ResourceRef]authz.Level{
		authz.ProductRef(productID): authz.LevelView,
	}})
	got, err := allowed.GetProduct(context.Background(), identity.Anonymous(), productID)
	require.NoError(t, err)
	assert.Equal(t, "Harbor Linocut", got.Name)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "atelier-nord", slugify("", "Atelier Nord"))
	assert.Equal(t, "given-slug", slugify("Given Slug", "ignored"))
}
