package authz

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
)

// filterConcurrency bounds parallel decisions during batch filtering.
const filterConcurrency = 4

// DenialRecorder receives denied decisions for the audit trail. A nil
// recorder is skipped.
type DenialRecorder interface {
	RecordDenial(ctx context.Context, p identity.Principal, ref ResourceRef, required Level, outcome Outcome)
}

// PEP is the policy enforcement point: the single place services call to
// allow, deny, or filter resource-bearing operations.
type PEP struct {
	resolver   *Resolver
	hierarchy  HierarchyLookup
	visibility Visibility
	denials    DenialRecorder
	logger     *slog.Logger
}

// NewPEP constructs a PEP.
func NewPEP(resolver *Resolver, hierarchy HierarchyLookup, visibility Visibility, denials DenialRecorder, logger *slog.Logger) *PEP {
	return &PEP{
		resolver:   resolver,
		hierarchy:  hierarchy,
		visibility: visibility,
		denials:    denials,
		logger:     logger,
	}
}

// Enforce allows or denies a single-resource operation. Denials surface as
// shared.ErrPermissionDenied regardless of the underlying reason and are
// reported to the denial recorder.
func (e *PEP) Enforce(ctx context.Context, p identity.Principal, ref ResourceRef, required Level) error {
	ok, outcome := e.decide(ctx, p, ref, required)
	if ok {
		return nil
	}
	if e.denials != nil {
		e.denials.RecordDenial(ctx, p, ref, required, outcome)
	}
	return shared.ErrPermissionDenied
}

// Filter reduces candidates to the references the principal may access at
// the required level, preserving input order. Candidates are evaluated with
// bounded concurrency; every decision is independent and read-only. Dropped
// rows are not denials of an attempted operation, so they never reach the
// denial recorder.
func (e *PEP) Filter(ctx context.Context, p identity.Principal, candidates []ResourceRef, required Level) []ResourceRef {
	if len(candidates) == 0 {
		return nil
	}
	allowed := make([]bool, len(candidates))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(filterConcurrency)
	for i, ref := range candidates {
		g.Go(func() error {
			ok, _ := e.decide(gctx, p, ref, required)
			mu.Lock()
			allowed[i] = ok
			mu.Unlock()
			return nil
		})
	}
	// Decisions never return errors; denied rows are simply dropped.
	_ = g.Wait()

	filtered := make([]ResourceRef, 0, len(candidates))
	for i, ref := range candidates {
		if allowed[i] {
			filtered = append(filtered, ref)
		}
	}
	return filtered
}

// decide applies the public-browsing short-circuit before the resolver.
// View access to catalog nodes under a publicly visible collection needs no
// ownership or grant lookup; orders are never public.
func (e *PEP) decide(ctx context.Context, p identity.Principal, ref ResourceRef, required Level) (bool, Outcome) {
	if required == LevelView && ref.Kind != KindOrder && !p.IsAdmin() {
		if visible, ok := e.publiclyVisible(ctx, ref); ok && visible {
			return true, OutcomePublic
		}
	}
	outcome := e.resolver.Decide(ctx, p, ref, required)
	return outcome.Allowed(), outcome
}

// publiclyVisible runs under the same store timeout as resolver decisions,
// so an unresponsive store degrades the public path in bounded time too.
func (e *PEP) publiclyVisible(ctx context.Context, ref ResourceRef) (visible, ok bool) {
	if e.visibility == nil || e.hierarchy == nil {
		return false, false
	}
	ctx, cancel := e.resolver.storeContext(ctx)
	defer cancel()
	collectionID, err := e.hierarchy.AncestorCollection(ctx, ref)
	if err != nil {
		// Broken chains fall through to the resolver, which denies and
		// logs the integrity problem.
		if !errors.Is(err, shared.ErrNotFound) && e.logger != nil {
			e.logger.Warn("visibility ancestor lookup failed", slog.Any("error", err))
		}
		return false, false
	}
	v, err := e.visibility.CollectionVisible(ctx, collectionID)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("visibility lookup failed", slog.Any("error", err))
		}
		return false, false
	}
	return v, true
}
