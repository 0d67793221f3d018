package authz

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
)

// DecisionMetrics records decision outcomes. Implemented by the
// observability package; a nil implementation is skipped.
type DecisionMetrics interface {
	ObserveDecision(kind ResourceKind, level Level, outcome Outcome, elapsed time.Duration)
}

// Resolver walks the hierarchy and applies ownership, grant and wallet rules
// to produce a single allow/deny answer. It holds no mutable state and is
// safe for concurrent use.
type Resolver struct {
	hierarchy HierarchyLookup
	grants    GrantStore
	orders    OrderWallets
	logger    *slog.Logger
	metrics   DecisionMetrics

	// storeTimeout caps each decision's store lookups; on expiry the
	// decision fails closed.
	storeTimeout time.Duration
}

// ResolverConfig groups the resolver dependencies.
type ResolverConfig struct {
	Hierarchy    HierarchyLookup
	Grants       GrantStore
	Orders       OrderWallets
	Logger       *slog.Logger
	Metrics      DecisionMetrics
	StoreTimeout time.Duration
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	return &Resolver{
		hierarchy:    cfg.Hierarchy,
		grants:       cfg.Grants,
		orders:       cfg.Orders,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		storeTimeout: cfg.StoreTimeout,
	}
}

// Authorize reports whether the principal may operate on the resource at the
// required level. Every failure mode is a deny; the distinguishing reason is
// visible only to operational logging and metrics.
func (r *Resolver) Authorize(ctx context.Context, p identity.Principal, ref ResourceRef, required Level) bool {
	start := time.Now()
	outcome := r.decide(ctx, p, ref, required)
	if r.metrics != nil {
		r.metrics.ObserveDecision(ref.Kind, required, outcome, time.Since(start))
	}
	return outcome.Allowed()
}

// Decide exposes the decision outcome for enforcement points that record
// audit detail.
func (r *Resolver) Decide(ctx context.Context, p identity.Principal, ref ResourceRef, required Level) Outcome {
	start := time.Now()
	outcome := r.decide(ctx, p, ref, required)
	if r.metrics != nil {
		r.metrics.ObserveDecision(ref.Kind, required, outcome, time.Since(start))
	}
	return outcome
}

func (r *Resolver) decide(ctx context.Context, p identity.Principal, ref ResourceRef, required Level) Outcome {
	if p.IsAdmin() {
		return OutcomeAdminBypass
	}

	ctx, cancel := r.storeContext(ctx)
	defer cancel()

	collectionID, err := r.hierarchy.AncestorCollection(ctx, ref)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			r.warn("ancestor chain broken", ref, err)
			return OutcomeBrokenChain
		}
		r.warn("hierarchy lookup failed", ref, err)
		return OutcomeStoreFailure
	}

	ownerID, err := r.grants.OwnerOf(ctx, collectionID)
	switch {
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		r.warn("ownership lookup failed", ref, err)
		return OutcomeStoreFailure
	case err == nil && p.UserID != 0 && p.UserID == ownerID:
		if ref.Kind != KindOrder {
			return OutcomeOwner
		}
		// Buyer records are protected: collection owners read orders under
		// their collections but never edit them.
		if required == LevelView {
			return OutcomeOwner
		}
		return OutcomeOwnerViewOnly
	}

	if p.UserID != 0 {
		granted, found, err := r.grants.GrantFor(ctx, p.UserID, collectionID)
		if err != nil {
			r.warn("grant lookup failed", ref, err)
			return OutcomeStoreFailure
		}
		if found && granted.Covers(required) {
			return OutcomeGrant
		}
	}

	if ref.Kind == KindOrder && p.WalletAddress != "" && required == LevelView {
		orderWallet, err := r.orders.WalletForOrder(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				r.warn("order wallet missing", ref, err)
				return OutcomeBrokenChain
			}
			r.warn("order wallet lookup failed", ref, err)
			return OutcomeStoreFailure
		}
		if strings.EqualFold(orderWallet, p.WalletAddress) {
			return OutcomeWalletMatch
		}
	}

	return OutcomeDenied
}

// storeContext bounds a decision's store lookups with the configured
// timeout.
func (r *Resolver) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.storeTimeout)
}

func (r *Resolver) warn(msg string, ref ResourceRef, err error) {
	if r.logger != nil {
		r.logger.Warn(msg,
			slog.String("resource_kind", string(ref.Kind)),
			slog.String("resource_id", ref.ID.String()),
			slog.Any("error", err),
		)
	}
}
