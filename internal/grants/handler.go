package grants

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/authz"
	"github.com/atelier-markets/atelier/internal/shared"
)

// Handler wires the administrative grant API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers grant routes on the provided router. Callers gate
// the whole subtree on the admin role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/collections/{collectionID}/grants", h.list)
	r.Post("/collections/{collectionID}/grants", h.create)
	r.Delete("/collections/{collectionID}/grants/{principalID}", h.remove)
}

type grantRequest struct {
	PrincipalID int64  `json:"principal_id" validate:"required,gt=0"`
	Level       string `json:"level" validate:"required,oneof=view edit"`
}

type grantResponse struct {
	PrincipalID  int64     `json:"principal_id"`
	CollectionID uuid.UUID `json:"collection_id"`
	Level        string    `json:"level"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	collectionID, err := uuid.Parse(chi.URLParam(r, "collectionID"))
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, "unknown collection")
		return
	}
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := h.service.Grant(r.Context(), req.PrincipalID, collectionID, authz.ParseLevel(req.Level))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toGrantResponse(g))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	collectionID, err := uuid.Parse(chi.URLParam(r, "collectionID"))
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, "unknown collection")
		return
	}
	principalID, err := parsePrincipalID(chi.URLParam(r, "principalID"))
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid principal id")
		return
	}
	if err := h.service.Revoke(r.Context(), principalID, collectionID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	collectionID, err := uuid.Parse(chi.URLParam(r, "collectionID"))
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, "unknown collection")
		return
	}
	listed, err := h.service.List(r.Context(), collectionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(listed))
	for _, g := range listed {
		out = append(out, toGrantResponse(g))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

// writeServiceError keeps administrative rejection reasons visible: the
// admin API is a trusted surface that needs the detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrGrantToOwner), errors.Is(err, ErrAdminImmutable), errors.Is(err, ErrUnknownLevel):
		shared.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		shared.WriteDomainError(w, h.logger, err)
	}
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		PrincipalID:  g.PrincipalID,
		CollectionID: g.CollectionID,
		Level:        g.Level.String(),
		CreatedAt:    g.CreatedAt,
	}
}

func parsePrincipalID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
