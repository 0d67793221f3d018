package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-markets/atelier/internal/auth"
	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
	_ "github.com/atelier-markets/atelier/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, user *auth.User) (http.Handler, *identity.TokenService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tokens := identity.NewTokenService("token-secret", client, identity.TokenConfig{}, nil)

	service := auth.NewService(&stubRepo{user: user}, tokens)
	handler := auth.NewHandler(newTestLogger(), service)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r, tokens
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{
		ID:           42,
		Email:        "merchant@atelier.local",
		PasswordHash: string(hash),
		Role:         "merchant",
		IsActive:     true,
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestLoginIssuesToken(t *testing.T) {
	handler, tokens := newTestHandler(t, activeUser(t, "opensesame"))

	rr := postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "merchant@atelier.local",
		"password": "opensesame",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.User.ID)
	assert.Equal(t, "merchant", resp.User.Role)

	claims, err := tokens.Parse(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "merchant", claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	handler, _ := newTestHandler(t, activeUser(t, "opensesame"))

	rr := postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "merchant@atelier.local",
		"password": "wrongwrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	rr := postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "nobody@atelier.local",
		"password": "irrelevant",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := activeUser(t, "opensesame")
	user.IsActive = false
	handler, _ := newTestHandler(t, user)

	rr := postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "merchant@atelier.local",
		"password": "opensesame",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginValidatesForm(t *testing.T) {
	handler, _ := newTestHandler(t, activeUser(t, "opensesame"))

	rr := postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	handler, tokens := newTestHandler(t, activeUser(t, "opensesame"))

	rr := postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "merchant@atelier.local",
		"password": "opensesame",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	out := httptest.NewRecorder()
	handler.ServeHTTP(out, req)
	require.Equal(t, http.StatusNoContent, out.Code)

	_, err := tokens.Parse(context.Background(), resp.Token)
	assert.ErrorIs(t, err, identity.ErrTokenRevoked)
}

func TestLogoutWithoutToken(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
