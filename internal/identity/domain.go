package identity

import "errors"

// Kind distinguishes how the caller was identified.
type Kind string

const (
	// KindSessionUser is a caller with a valid session token.
	KindSessionUser Kind = "session_user"
	// KindWalletHolder is a caller who proved ownership of a wallet address
	// without a session.
	KindWalletHolder Kind = "wallet_holder"
	// KindAnonymous is an unauthenticated public visitor.
	KindAnonymous Kind = "anonymous"
)

// Role is the coarse role assigned to a resolved principal.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMerchant Role = "merchant"
	RoleUser     Role = "user"
)

var (
	// ErrNoCredential indicates the bundle contained no usable credential.
	// Anonymous access is an ordinary outcome, not a failure; this sentinel
	// exists for callers that require an identity.
	ErrNoCredential = errors.New("identity: no credential")
	// ErrMalformedToken indicates a session or wallet token whose shape was
	// never recognized.
	ErrMalformedToken = errors.New("identity: malformed token")
	// ErrConflictingIdentity indicates two credential channels disagree about
	// the wallet address.
	ErrConflictingIdentity = errors.New("identity: conflicting identity")
	// ErrTokenRevoked indicates a session token that has been logged out.
	ErrTokenRevoked = errors.New("identity: token revoked")
)

// Principal is the resolved caller for a single request. It is constructed
// per request and never stored.
type Principal struct {
	Kind          Kind
	UserID        int64
	Email         string
	WalletAddress string
	Role          Role
}

// Anonymous returns the principal representing an unauthenticated visitor.
func Anonymous() Principal {
	return Principal{Kind: KindAnonymous, Role: RoleUser}
}

// IsAnonymous reports whether no identity was resolved.
func (p Principal) IsAnonymous() bool {
	return p.Kind == KindAnonymous || p.Kind == ""
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CredentialBundle carries the raw credential material of one request. Any
// subset of the fields may be present.
type CredentialBundle struct {
	SessionToken  string
	WalletAddress string
	WalletToken   string
}

// Empty reports whether the bundle carries no credential at all.
func (b CredentialBundle) Empty() bool {
	return b.SessionToken == "" && b.WalletAddress == "" && b.WalletToken == ""
}
