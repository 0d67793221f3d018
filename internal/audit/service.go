package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/identity"
)

// Event is one operator-facing record of a denied decision. Callers never
// see this detail; the boundary answer stays a plain deny.
type Event struct {
	ID            int64
	At            time.Time
	PrincipalKind string
	UserID        int64
	WalletAddress string
	ResourceKind  string
	ResourceID    string
	Level         string
	Outcome       string
}

// TimelineFilters narrows the denial timeline.
type TimelineFilters struct {
	From         time.Time
	To           time.Time
	ResourceKind string
	Outcome      string
	Page         int
	PageSize     int
}

// PagingInfo carries pagination state for timeline responses.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []Event
	Paging PagingInfo
}

// Repository defines persistence for audit events.
type Repository interface {
	Insert(ctx context.Context, e Event) error
	Window(ctx context.Context, f TimelineFilters, offset, limit int) ([]Event, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service records authorization denials and serves the operator timeline.
// Recording failures never fail the guarded request; they are logged and
// dropped.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates the audit service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// RecordDenial persists one denied decision.
func (s *Service) RecordDenial(ctx context.Context, p identity.Principal, ref authz.ResourceRef, required authz.Level, outcome authz.Outcome) {
	if s == nil || s.repo == nil {
		return
	}
	e := Event{
		At:            s.now().UTC(),
		PrincipalKind: string(p.Kind),
		UserID:        p.UserID,
		WalletAddress: p.WalletAddress,
		ResourceKind:  string(ref.Kind),
		ResourceID:    ref.ID.String(),
		Level:         required.String(),
		Outcome:       string(outcome),
	}
	if err := s.repo.Insert(ctx, e); err != nil && s.logger != nil {
		s.logger.Error("audit record failed", slog.Any("error", err))
	}
}

// Timeline fetches denial events with paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	rows, err := s.repo.Window(ctx, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Prune removes events older than the retention window and reports the count.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.DeleteOlderThan(ctx, s.now().Add(-retention))
}

var _ authz.DenialRecorder = (*Service)(nil)
