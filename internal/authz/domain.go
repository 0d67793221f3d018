// Package authz decides whether a principal may perform an operation on a
// node of the collection → category → product → order hierarchy. Decisions
// are stateless per call; the only dependencies are read-only lookups.
package authz

import (
	"context"

	"github.com/google/uuid"
)

// Level is the permission strength required by, or granted for, an
// operation. Higher levels imply lower ones.
type Level int

const (
	LevelView Level = iota + 1
	LevelEdit
	LevelManage
)

// Covers reports whether a granted level satisfies a required one.
func (l Level) Covers(required Level) bool {
	return l >= required
}

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelView:
		return "view"
	case LevelEdit:
		return "edit"
	case LevelManage:
		return "manage"
	default:
		return "unknown"
	}
}

// ParseLevel maps a stored level name to a Level. Unknown names map to zero,
// which covers nothing.
func ParseLevel(name string) Level {
	switch name {
	case "view":
		return LevelView
	case "edit":
		return LevelEdit
	case "manage":
		return LevelManage
	default:
		return 0
	}
}

// ResourceKind identifies the hierarchy level of a resource reference.
type ResourceKind string

const (
	KindCollection ResourceKind = "collection"
	KindCategory   ResourceKind = "category"
	KindProduct    ResourceKind = "product"
	KindOrder      ResourceKind = "order"
)

// ResourceRef identifies one node in the hierarchy.
type ResourceRef struct {
	Kind ResourceKind
	ID   uuid.UUID
}

// CollectionRef builds a reference to a collection.
func CollectionRef(id uuid.UUID) ResourceRef { return ResourceRef{Kind: KindCollection, ID: id} }

// CategoryRef builds a reference to a category.
func CategoryRef(id uuid.UUID) ResourceRef { return ResourceRef{Kind: KindCategory, ID: id} }

// ProductRef builds a reference to a product.
func ProductRef(id uuid.UUID) ResourceRef { return ResourceRef{Kind: KindProduct, ID: id} }

// OrderRef builds a reference to an order.
func OrderRef(id uuid.UUID) ResourceRef { return ResourceRef{Kind: KindOrder, ID: id} }

// HierarchyLookup resolves a resource reference to its owning collection.
// A broken ancestor chain surfaces as shared.ErrNotFound.
type HierarchyLookup interface {
	AncestorCollection(ctx context.Context, ref ResourceRef) (uuid.UUID, error)
}

// GrantStore exposes ownership facts and explicit grants. Grants are
// anchored at the collection level.
type GrantStore interface {
	OwnerOf(ctx context.Context, collectionID uuid.UUID) (int64, error)
	GrantFor(ctx context.Context, principalID int64, collectionID uuid.UUID) (Level, bool, error)
}

// OrderWallets exposes the wallet address snapshot recorded on an order at
// checkout.
type OrderWallets interface {
	WalletForOrder(ctx context.Context, orderID uuid.UUID) (string, error)
}

// Visibility reports whether a collection is publicly browsable. Visibility
// is an attribute of the collection, not an access-control fact.
type Visibility interface {
	CollectionVisible(ctx context.Context, collectionID uuid.UUID) (bool, error)
}

// Outcome names why a decision went the way it did. Outcomes are for
// operational logging and metrics only; callers see a boolean.
type Outcome string

const (
	OutcomeAdminBypass   Outcome = "admin_bypass"
	OutcomeOwner         Outcome = "owner"
	OutcomeGrant         Outcome = "grant"
	OutcomeWalletMatch   Outcome = "wallet_match"
	OutcomePublic        Outcome = "public"
	OutcomeDenied        Outcome = "denied"
	OutcomeBrokenChain   Outcome = "broken_chain"
	OutcomeStoreFailure  Outcome = "store_failure"
	OutcomeOwnerViewOnly Outcome = "owner_view_only"
)

// Allowed reports whether the outcome represents a permitted operation.
func (o Outcome) Allowed() bool {
	switch o {
	case OutcomeAdminBypass, OutcomeOwner, OutcomeGrant, OutcomeWalletMatch, OutcomePublic:
		return true
	default:
		return false
	}
}
