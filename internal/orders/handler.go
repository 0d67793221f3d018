package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
)

// Handler wires HTTP endpoints for orders.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers order routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.checkout)
	r.Get("/orders/mine", h.listMine)
	r.Get("/orders/{orderID}", h.get)
	r.Get("/collections/{collectionID}/orders", h.listForCollection)
}

type checkoutForm struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var form checkoutForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		shared.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	created, err := h.service.Checkout(r.Context(), p, form.ProductID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	order, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, order)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	p := identity.PrincipalFromContext(r.Context())
	listed, err := h.service.ListMine(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listed)
}

func (h *Handler) listForCollection(w http.ResponseWriter, r *http.Request) {
	collectionID, err := uuid.Parse(chi.URLParam(r, "collectionID"))
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	listed, err := h.service.ListForCollection(r.Context(), p, collectionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listed)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWalletRequired):
		shared.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		shared.WriteError(w, http.StatusConflict, err.Error())
	default:
		shared.WriteDomainError(w, h.logger, err)
	}
}
