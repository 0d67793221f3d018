package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(admins AdminSet) (*Resolver, *TokenService, *WalletVerifier) {
	tokens := NewTokenService("token-secret", nil, TokenConfig{}, nil)
	wallet := NewWalletVerifier("proof-secret")
	return NewResolver(tokens, wallet, admins, nil), tokens, wallet
}

func issueWith(t *testing.T, tokens *TokenService, claims Claims) string {
	t.Helper()
	raw, err := tokens.Issue(context.Background(), 42, claims.Email, claims.Role, claims.WalletAddress)
	require.NoError(t, err)
	return raw
}

func TestResolveEmptyBundleIsAnonymous(t *testing.T) {
	resolver, _, _ := newTestResolver(NewAdminSet(nil, ""))

	p, err := resolver.Resolve(context.Background(), CredentialBundle{})
	require.NoError(t, err)
	assert.True(t, p.IsAnonymous())
	assert.Equal(t, RoleUser, p.Role)
}

func TestResolveWalletOnly(t *testing.T) {
	resolver, _, wallet := newTestResolver(NewAdminSet(nil, ""))

	proof, err := wallet.ProofToken(testAddress)
	require.NoError(t, err)

	p, err := resolver.Resolve(context.Background(), CredentialBundle{
		WalletAddress: testAddress,
		WalletToken:   proof,
	})
	require.NoError(t, err)
	assert.Equal(t, KindWalletHolder, p.Kind)
	assert.Equal(t, strings.ToLower(testAddress), p.WalletAddress)
	assert.Equal(t, RoleUser, p.Role)
	assert.Zero(t, p.UserID)
}

func TestResolveIncompleteWalletPair(t *testing.T) {
	resolver, _, wallet := newTestResolver(NewAdminSet(nil, ""))

	proof, err := wallet.ProofToken(testAddress)
	require.NoError(t, err)

	for name, bundle := range map[string]CredentialBundle{
		"address without token": {WalletAddress: testAddress},
		"token without address": {WalletToken: proof},
	} {
		p, err := resolver.Resolve(context.Background(), bundle)
		assert.ErrorIs(t, err, ErrMalformedToken, name)
		assert.True(t, p.IsAnonymous(), name)
	}
}

func TestResolveGarbageSessionToken(t *testing.T) {
	resolver, _, _ := newTestResolver(NewAdminSet(nil, ""))

	p, err := resolver.Resolve(context.Background(), CredentialBundle{SessionToken: "garbage"})
	assert.ErrorIs(t, err, ErrMalformedToken)
	assert.True(t, p.IsAnonymous())
}

func TestResolveSessionUser(t *testing.T) {
	resolver, tokens, _ := newTestResolver(NewAdminSet(nil, ""))
	raw := issueWith(t, tokens, Claims{Email: "user@atelier.local", Role: "user"})

	p, err := resolver.Resolve(context.Background(), CredentialBundle{SessionToken: raw})
	require.NoError(t, err)
	assert.Equal(t, KindSessionUser, p.Kind)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, "user@atelier.local", p.Email)
	assert.Equal(t, RoleUser, p.Role)
	assert.Empty(t, p.WalletAddress)
}

func TestResolveSessionWalletClaim(t *testing.T) {
	resolver, tokens, _ := newTestResolver(NewAdminSet(nil, ""))
	raw := issueWith(t, tokens, Claims{WalletAddress: testAddress})

	p, err := resolver.Resolve(context.Background(), CredentialBundle{SessionToken: raw})
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(testAddress), p.WalletAddress)
}

func TestResolveMatchingChannelsAgree(t *testing.T) {
	resolver, tokens, wallet := newTestResolver(NewAdminSet(nil, ""))
	raw := issueWith(t, tokens, Claims{WalletAddress: testAddress})
	proof, err := wallet.ProofToken(testAddress)
	require.NoError(t, err)

	p, err := resolver.Resolve(context.Background(), CredentialBundle{
		SessionToken:  raw,
		WalletAddress: testAddress,
		WalletToken:   proof,
	})
	require.NoError(t, err)
	assert.Equal(t, KindSessionUser, p.Kind)
	assert.Equal(t, strings.ToLower(testAddress), p.WalletAddress)
}

func TestResolveConflictingChannels(t *testing.T) {
	resolver, tokens, wallet := newTestResolver(NewAdminSet(nil, ""))

	otherAddress := "0x0000000000000000000000000000000000000001"
	raw := issueWith(t, tokens, Claims{WalletAddress: testAddress})
	proof, err := wallet.ProofToken(otherAddress)
	require.NoError(t, err)

	p, err := resolver.Resolve(context.Background(), CredentialBundle{
		SessionToken:  raw,
		WalletAddress: otherAddress,
		WalletToken:   proof,
	})
	assert.ErrorIs(t, err, ErrConflictingIdentity)
	assert.True(t, p.IsAnonymous())
}

func TestResolveAdminComesFromConfiguration(t *testing.T) {
	t.Run("configured id", func(t *testing.T) {
		resolver, tokens, _ := newTestResolver(NewAdminSet([]int64{42}, ""))
		raw := issueWith(t, tokens, Claims{Role: "user"})

		p, err := resolver.Resolve(context.Background(), CredentialBundle{SessionToken: raw})
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, p.Role)
		assert.True(t, p.IsAdmin())
	})

	t.Run("configured email", func(t *testing.T) {
		resolver, tokens, _ := newTestResolver(NewAdminSet(nil, "root@atelier.local"))
		raw := issueWith(t, tokens, Claims{Email: "Root@Atelier.Local"})

		p, err := resolver.Resolve(context.Background(), CredentialBundle{SessionToken: raw})
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, p.Role)
	})

	t.Run("token hint alone never grants admin", func(t *testing.T) {
		resolver, tokens, _ := newTestResolver(NewAdminSet(nil, ""))
		raw := issueWith(t, tokens, Claims{Role: "admin"})

		p, err := resolver.Resolve(context.Background(), CredentialBundle{SessionToken: raw})
		require.NoError(t, err)
		assert.Equal(t, RoleUser, p.Role)
	})
}

func TestResolveMerchantHintIsKept(t *testing.T) {
	resolver, tokens, _ := newTestResolver(NewAdminSet(nil, ""))
	raw := issueWith(t, tokens, Claims{Role: "Merchant"})

	p, err := resolver.Resolve(context.Background(), CredentialBundle{SessionToken: raw})
	require.NoError(t, err)
	assert.Equal(t, RoleMerchant, p.Role)
}

func TestWalletFromClaimsPrecedence(t *testing.T) {
	root := "0x1111111111111111111111111111111111111111"
	userMeta := "0x2222222222222222222222222222222222222222"
	appMeta := "0x3333333333333333333333333333333333333333"

	tests := []struct {
		name   string
		claims Claims
		want   string
	}{
		{
			name: "root claim wins",
			claims: Claims{
				WalletAddress: root,
				UserMetadata:  map[string]any{"wallet_address": userMeta},
				AppMetadata:   map[string]any{"wallet_address": appMeta},
			},
			want: root,
		},
		{
			name: "user metadata beats app metadata",
			claims: Claims{
				UserMetadata: map[string]any{"wallet_address": userMeta},
				AppMetadata:  map[string]any{"wallet_address": appMeta},
			},
			want: userMeta,
		},
		{
			name:   "app metadata as last resort",
			claims: Claims{AppMetadata: map[string]any{"wallet_address": appMeta}},
			want:   appMeta,
		},
		{
			name:   "non-string metadata ignored",
			claims: Claims{UserMetadata: map[string]any{"wallet_address": 7}},
			want:   "",
		},
		{
			name:   "none present",
			claims: Claims{},
			want:   "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, walletFromClaims(&tc.claims))
		})
	}
}
