package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atelier-markets/atelier/internal/shared"
)

// Handler serves the operator denial timeline.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates the audit HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers audit routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit/denials", h.timeline)
}

type timelineResponse struct {
	Rows   []eventView `json:"rows"`
	Paging PagingInfo  `json:"paging"`
}

type eventView struct {
	ID            int64     `json:"id"`
	At            time.Time `json:"at"`
	PrincipalKind string    `json:"principal_kind"`
	UserID        int64     `json:"user_id,omitempty"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	ResourceKind  string    `json:"resource_kind"`
	ResourceID    string    `json:"resource_id"`
	Level         string    `json:"level"`
	Outcome       string    `json:"outcome"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := TimelineFilters{
		ResourceKind: q.Get("resource_kind"),
		Outcome:      q.Get("outcome"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			shared.WriteError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		filters.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			shared.WriteError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		filters.To = t
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	resp := timelineResponse{Rows: make([]eventView, 0, len(result.Rows)), Paging: result.Paging}
	for _, e := range result.Rows {
		resp.Rows = append(resp.Rows, eventView(e))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
