package grants

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/identity"
)

// Store defines persistence operations for the grants module.
type Store interface {
	OwnerOf(ctx context.Context, collectionID uuid.UUID) (int64, error)
	Upsert(ctx context.Context, g Grant) error
	Delete(ctx context.Context, principalID int64, collectionID uuid.UUID) error
	ListForCollection(ctx context.Context, collectionID uuid.UUID) ([]Grant, error)
}

// Service wraps grant administration rules. Unlike decision-path errors,
// these rejections carry their reason to the caller.
type Service struct {
	store  Store
	admins identity.AdminSet
}

// NewService constructs a Service.
func NewService(store Store, admins identity.AdminSet) *Service {
	return &Service{store: store, admins: admins}
}

// Grant records an explicit grant on a collection.
func (s *Service) Grant(ctx context.Context, principalID int64, collectionID uuid.UUID, level authz.Level) (Grant, error) {
	if level != authz.LevelView && level != authz.LevelEdit {
		return Grant{}, ErrUnknownLevel
	}
	if s.admins.ContainsID(principalID) {
		return Grant{}, ErrAdminImmutable
	}
	ownerID, err := s.store.OwnerOf(ctx, collectionID)
	if err != nil {
		return Grant{}, fmt.Errorf("grant on collection %s: %w", collectionID, err)
	}
	if ownerID == principalID {
		return Grant{}, ErrGrantToOwner
	}
	g := Grant{PrincipalID: principalID, CollectionID: collectionID, Level: level}
	if err := s.store.Upsert(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Revoke removes an explicit grant.
func (s *Service) Revoke(ctx context.Context, principalID int64, collectionID uuid.UUID) error {
	if s.admins.ContainsID(principalID) {
		return ErrAdminImmutable
	}
	return s.store.Delete(ctx, principalID, collectionID)
}

// List returns all grants on a collection.
func (s *Service) List(ctx context.Context, collectionID uuid.UUID) ([]Grant, error) {
	if _, err := s.store.OwnerOf(ctx, collectionID); err != nil {
		return nil, fmt.Errorf("list grants on collection %s: %w", collectionID, err)
	}
	return s.store.ListForCollection(ctx, collectionID)
}
