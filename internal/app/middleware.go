package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/observability"
	"github.com/atelier-markets/atelier/internal/shared"
)

// Wallet proof headers. The pair must be presented together.
const (
	HeaderWalletAddress = "X-Wallet-Address"
	HeaderWalletToken   = "X-Wallet-Token"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger     *slog.Logger
	Config     *Config
	Resolver   *identity.Resolver
	Classifier *identity.Classifier
	Metrics    *observability.Metrics
}

// MiddlewareStack installs the Atelier middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		identityMiddleware(cfg),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}

// identityMiddleware resolves the request's credential bundle into a
// Principal and stores it in context. Malformed credentials degrade to
// anonymous; conflicting channels terminate the request, since proceeding
// under either identity would honor a spoofed channel.
func identityMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bundle := identity.CredentialBundle{
				SessionToken:  sessionTokenFromRequest(r),
				WalletAddress: r.Header.Get(HeaderWalletAddress),
				WalletToken:   r.Header.Get(HeaderWalletToken),
			}
			principal, err := cfg.Resolver.Resolve(r.Context(), bundle)
			if err != nil {
				if errors.Is(err, identity.ErrConflictingIdentity) {
					shared.WriteError(w, http.StatusUnauthorized, "conflicting credentials")
					return
				}
				// Malformed or revoked credentials proceed anonymously; the
				// resolver has already logged the reason.
				principal = identity.Anonymous()
			}
			if cfg.Classifier != nil {
				role, cerr := cfg.Classifier.Classify(r.Context(), principal)
				if cerr != nil {
					// A failed ownership lookup keeps the token's stored
					// role rather than degrading it.
					cfg.Logger.Warn("role classification failed", slog.Any("error", cerr))
				} else {
					principal.Role = role
				}
			}
			ctx := identity.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionTokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
