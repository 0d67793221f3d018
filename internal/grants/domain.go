package grants

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/authz"
)

// Grant links a principal to a collection at a permission level. Grants are
// anchored at the collection; access to categories, products and orders
// beneath it follows from the hierarchy walk.
type Grant struct {
	PrincipalID  int64
	CollectionID uuid.UUID
	Level        authz.Level
	CreatedAt    time.Time
}

// Administrative mutation rejections. These are surfaced to the caller with
// their reason, since they originate from a trusted administrative caller.
var (
	// ErrGrantToOwner rejects granting access to the collection's own owner.
	ErrGrantToOwner = errors.New("grants: principal already owns the collection")
	// ErrAdminImmutable rejects grant mutations targeting a designated
	// administrator identity.
	ErrAdminImmutable = errors.New("grants: cannot modify the designated administrator")
	// ErrUnknownLevel rejects levels outside view/edit.
	ErrUnknownLevel = errors.New("grants: level must be view or edit")
)
