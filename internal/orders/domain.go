package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/identity"
)

// Status tracks an order through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Order records a purchase. WalletAddress is the buyer's address captured at
// checkout; it is an immutable snapshot, not a reference to a user account,
// and it is the sole key for buyer access to the record.
type Order struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	WalletAddress string
	AmountCents   int64
	Status        Status
	CreatedAt     time.Time
}

// ErrWalletRequired rejects wallet-keyed operations without a verified
// wallet address. It carries identity.ErrNoCredential so transport layers
// can treat it as a missing credential.
var ErrWalletRequired = fmt.Errorf("orders: verified wallet address required: %w", identity.ErrNoCredential)
