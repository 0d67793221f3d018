package identity

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Resolver turns the raw credential material of a request into a Principal.
// It supports two channels: a session token and a wallet header pair. Both
// may be present; when their wallet addresses disagree resolution fails
// closed.
type Resolver struct {
	tokens *TokenService
	wallet *WalletVerifier
	admins AdminSet
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(tokens *TokenService, wallet *WalletVerifier, admins AdminSet, logger *slog.Logger) *Resolver {
	return &Resolver{tokens: tokens, wallet: wallet, admins: admins, logger: logger}
}

// Resolve produces the Principal for the request. An empty bundle resolves
// to the anonymous principal without error. Malformed credentials and
// conflicting channels return the anonymous principal together with the
// distinguishing error; callers collapse these to anonymous or deny per the
// boundary they serve.
func (r *Resolver) Resolve(ctx context.Context, bundle CredentialBundle) (Principal, error) {
	if bundle.Empty() {
		return Anonymous(), nil
	}

	var claims *Claims
	if bundle.SessionToken != "" {
		parsed, err := r.tokens.Parse(ctx, bundle.SessionToken)
		if err != nil {
			r.warn("session token rejected", err)
			return Anonymous(), ErrMalformedToken
		}
		claims = parsed
	}

	headerAddress := ""
	if bundle.WalletAddress != "" || bundle.WalletToken != "" {
		if bundle.WalletAddress == "" || bundle.WalletToken == "" {
			r.warn("wallet header pair incomplete", ErrMalformedToken)
			return Anonymous(), ErrMalformedToken
		}
		verified, err := r.wallet.Verify(bundle.WalletAddress, bundle.WalletToken)
		if err != nil {
			r.warn("wallet proof rejected", err)
			return Anonymous(), ErrMalformedToken
		}
		headerAddress = verified
	}

	claimAddress := ""
	if claims != nil {
		if raw := walletFromClaims(claims); raw != "" {
			normalized, err := NormalizeAddress(raw)
			if err != nil {
				r.warn("claim wallet address rejected", err)
				return Anonymous(), ErrMalformedToken
			}
			claimAddress = normalized
		}
	}

	if headerAddress != "" && claimAddress != "" && headerAddress != claimAddress {
		r.warn("credential channels disagree", ErrConflictingIdentity)
		return Anonymous(), ErrConflictingIdentity
	}

	if claims == nil {
		if headerAddress == "" {
			return Anonymous(), nil
		}
		return Principal{
			Kind:          KindWalletHolder,
			WalletAddress: headerAddress,
			Role:          RoleUser,
		}, nil
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		r.warn("session subject rejected", err)
		return Anonymous(), ErrMalformedToken
	}

	address := claimAddress
	if address == "" {
		address = headerAddress
	}
	principal := Principal{
		Kind:          KindSessionUser,
		UserID:        userID,
		Email:         claims.Email,
		WalletAddress: address,
		Role:          roleFromHint(claims.Role),
	}
	// The session channel decides admin status regardless of other channels.
	if r.admins.Matches(principal) {
		principal.Role = RoleAdmin
	}
	return principal, nil
}

func roleFromHint(hint string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(hint))) {
	case RoleMerchant:
		return RoleMerchant
	case RoleAdmin:
		// Admin is never taken from a token hint alone; the configured set
		// decides. A stale "admin" hint downgrades to user.
		return RoleUser
	default:
		return RoleUser
	}
}

func (r *Resolver) warn(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, slog.Any("error", err))
	}
}
