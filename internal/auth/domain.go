package auth

import "time"

// User represents an authenticated user account. Role holds the stored role
// attribute ("merchant" or "user"); administrators are designated through
// configuration, not a column. WalletAddress, when linked, is embedded into
// issued session tokens.
type User struct {
	ID            int64
	Email         string
	PasswordHash  string
	Role          string
	WalletAddress string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
