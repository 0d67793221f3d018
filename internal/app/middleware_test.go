package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-markets/atelier/internal/identity"
	_ "github.com/atelier-markets/atelier/testing"
)

type staticOwnership struct {
	owns bool
	err  error
}

func (s staticOwnership) OwnsAnyCollection(ctx context.Context, userID int64) (bool, error) {
	return s.owns, s.err
}

type identityFixture struct {
	tokens     *identity.TokenService
	resolver   *identity.Resolver
	classifier *identity.Classifier
	logger     *slog.Logger
}

func newIdentityFixture(t *testing.T, ownership identity.CollectionOwnership) identityFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	admins := identity.NewAdminSet(nil, "")
	tokens := identity.NewTokenService("middleware-secret", client, identity.TokenConfig{}, logger)
	return identityFixture{
		tokens:     tokens,
		resolver:   identity.NewResolver(tokens, identity.NewWalletVerifier("wallet-secret"), admins, logger),
		classifier: identity.NewClassifier(admins, ownership),
		logger:     logger,
	}
}

func (f identityFixture) serve(t *testing.T, token string) identity.Principal {
	t.Helper()
	var got identity.Principal
	handler := identityMiddleware(MiddlewareConfig{
		Logger:     f.logger,
		Resolver:   f.resolver,
		Classifier: f.classifier,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = identity.PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/collections", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestIdentityMiddlewareClassifiesCollectionOwnersAsMerchants(t *testing.T) {
	fx := newIdentityFixture(t, staticOwnership{owns: true})

	// The stored role says plain user; owning a collection is what makes a
	// merchant.
	raw, err := fx.tokens.Issue(context.Background(), 77, "owner@atelier.local", "user", "")
	require.NoError(t, err)

	got := fx.serve(t, raw)
	assert.Equal(t, int64(77), got.UserID)
	assert.Equal(t, identity.RoleMerchant, got.Role)
}

func TestIdentityMiddlewareKeepsPlainUsersPlain(t *testing.T) {
	fx := newIdentityFixture(t, staticOwnership{owns: false})

	raw, err := fx.tokens.Issue(context.Background(), 78, "shopper@atelier.local", "user", "")
	require.NoError(t, err)

	got := fx.serve(t, raw)
	assert.Equal(t, identity.RoleUser, got.Role)
}

func TestIdentityMiddlewareKeepsStoredRoleOnClassifierFailure(t *testing.T) {
	fx := newIdentityFixture(t, staticOwnership{err: errors.New("connection reset")})

	raw, err := fx.tokens.Issue(context.Background(), 79, "merchant@atelier.local", "merchant", "")
	require.NoError(t, err)

	got := fx.serve(t, raw)
	assert.Equal(t, identity.RoleMerchant, got.Role)
}
