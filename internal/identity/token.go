package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Claims is the session token payload. The wallet address moved between
// claim locations over the life of the platform, so all three locations are
// kept and read in order of precedence (see walletFromClaims).
type Claims struct {
	Email         string         `json:"email,omitempty"`
	Role          string         `json:"role,omitempty"`
	WalletAddress string         `json:"wallet_address,omitempty"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
	AppMetadata   map[string]any `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig holds session token issuance parameters.
type TokenConfig struct {
	Issuer string
	TTL    time.Duration
}

// TokenService issues and validates HS256 session tokens. Revoked token IDs
// are kept in Redis until their natural expiry.
type TokenService struct {
	secret []byte
	redis  *redis.Client
	config TokenConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewTokenService constructs a TokenService. The Redis client may be nil, in
// which case revocation checks are skipped.
func NewTokenService(secret string, client *redis.Client, config TokenConfig, logger *slog.Logger) *TokenService {
	if config.TTL <= 0 {
		config.TTL = 12 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "atelier"
	}
	return &TokenService{
		secret: []byte(secret),
		redis:  client,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Issue creates a session token for the given user.
func (ts *TokenService) Issue(ctx context.Context, userID int64, email, role, walletAddress string) (string, error) {
	now := ts.now().UTC()
	claims := Claims{
		Email:         email,
		Role:          role,
		WalletAddress: walletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", userID),
			Issuer:    ts.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.config.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a session token and returns its claims. Revoked and
// expired tokens are rejected.
func (ts *TokenService) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ts.secret, nil
	}, jwt.WithIssuer(ts.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if !token.Valid {
		return nil, ErrMalformedToken
	}
	if ts.redis != nil && claims.ID != "" {
		revoked, err := ts.redis.Exists(ctx, revocationKey(claims.ID)).Result()
		if err != nil {
			// Fail closed: an unreachable revocation registry means the
			// token cannot be trusted.
			if ts.logger != nil {
				ts.logger.Error("revocation lookup failed", slog.Any("error", err))
			}
			return nil, ErrTokenRevoked
		}
		if revoked > 0 {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Revoke invalidates a previously issued token until its expiry.
func (ts *TokenService) Revoke(ctx context.Context, raw string) error {
	if ts.redis == nil {
		return errors.New("identity: revocation registry not configured")
	}
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if claims.ID == "" {
		return ErrMalformedToken
	}
	ttl := ts.config.TTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	return ts.redis.Set(ctx, revocationKey(claims.ID), "1", ttl).Err()
}

func revocationKey(jti string) string {
	return "auth:revoked:" + jti
}
