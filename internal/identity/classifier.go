package identity

import (
	"context"
	"fmt"
)

// CollectionOwnership reports whether a user owns at least one collection.
// Implemented by the grants repository.
type CollectionOwnership interface {
	OwnsAnyCollection(ctx context.Context, userID int64) (bool, error)
}

// Classifier maps a resolved principal to its coarse role.
type Classifier struct {
	admins    AdminSet
	ownership CollectionOwnership
}

// NewClassifier constructs a Classifier.
func NewClassifier(admins AdminSet, ownership CollectionOwnership) *Classifier {
	return &Classifier{admins: admins, ownership: ownership}
}

// Classify returns the effective role: admin for the configured
// administrator identities, merchant for collection owners or principals
// whose stored role says so, user otherwise. Anonymous and wallet-only
// principals are plain users.
func (c *Classifier) Classify(ctx context.Context, p Principal) (Role, error) {
	if c.admins.Matches(p) {
		return RoleAdmin, nil
	}
	if p.IsAnonymous() || p.Kind == KindWalletHolder {
		return RoleUser, nil
	}
	if p.Role == RoleMerchant {
		return RoleMerchant, nil
	}
	if c.ownership != nil && p.UserID != 0 {
		owns, err := c.ownership.OwnsAnyCollection(ctx, p.UserID)
		if err != nil {
			return RoleUser, fmt.Errorf("identity: classify: %w", err)
		}
		if owns {
			return RoleMerchant, nil
		}
	}
	return RoleUser, nil
}
