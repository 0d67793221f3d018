package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelier-markets/atelier/internal/identity"
	"github.com/atelier-markets/atelier/internal/shared"
)

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers catalog routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/collections", h.listCollections)
	r.Post("/collections", h.createCollection)
	r.Get("/collections/{collectionID}", h.getCollection)
	r.Put("/collections/{collectionID}", h.updateCollection)
	r.Get("/collections/{collectionID}/categories", h.listCategories)
	r.Post("/collections/{collectionID}/categories", h.createCategory)
	r.Get("/categories/{categoryID}/products", h.listProducts)
	r.Post("/categories/{categoryID}/products", h.createProduct)
	r.Get("/products/{productID}", h.getProduct)
	r.Put("/products/{productID}", h.updateProduct)
}

type collectionForm struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Slug    string `json:"slug" validate:"omitempty,max=120"`
	Visible bool   `json:"visible"`
}

type categoryForm struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Position int    `json:"position" validate:"gte=0"`
}

type productForm struct {
	Name       string `json:"name" validate:"required,min=2,max=160"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
	Active     bool   `json:"active"`
}

type collectionResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) createCollection(w http.ResponseWriter, r *http.Request) {
	var form collectionForm
	if !h.decode(w, r, &form) {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	created, err := h.service.CreateCollection(r.Context(), p, CollectionInput(form))
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toCollectionResponse(created))
}

func (h *Handler) getCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "collectionID")
	if !ok {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	c, err := h.service.GetCollection(r.Context(), p, id)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCollectionResponse(c))
}

func (h *Handler) updateCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidParam(w, r, "collectionID")
	if !ok {
		return
	}
	var form collectionForm
	if !h.decode(w, r, &form) {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	updated, err := h.service.UpdateCollection(r.Context(), p, id, CollectionInput(form))
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCollectionResponse(updated))
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	p := identity.PrincipalFromContext(r.Context())
	listed, err := h.service.ListCollections(r.Context(), p)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	out := make([]collectionResponse, 0, len(listed))
	for _, c := range listed {
		out = append(out, toCollectionResponse(c))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.uuidParam(w, r, "collectionID")
	if !ok {
		return
	}
	var form categoryForm
	if !h.decode(w, r, &form) {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	created, err := h.service.CreateCategory(r.Context(), p, collectionID, form.Name, form.Position)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := h.uuidParam(w, r, "collectionID")
	if !ok {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	listed, err := h.service.ListCategories(r.Context(), p, collectionID)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listed)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.uuidParam(w, r, "categoryID")
	if !ok {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	listed, err := h.service.ListProducts(r.Context(), p, categoryID)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listed)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.uuidParam(w, r, "categoryID")
	if !ok {
		return
	}
	var form productForm
	if !h.decode(w, r, &form) {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	created, err := h.service.CreateProduct(r.Context(), p, categoryID, form.Name, form.PriceCents)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.uuidParam(w, r, "productID")
	if !ok {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	product, err := h.service.GetProduct(r.Context(), p, productID)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.uuidParam(w, r, "productID")
	if !ok {
		return
	}
	var form productForm
	if !h.decode(w, r, &form) {
		return
	}
	p := identity.PrincipalFromContext(r.Context())
	product, err := h.service.GetProduct(r.Context(), p, productID)
	if err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	product.Name = form.Name
	product.PriceCents = form.PriceCents
	product.Active = form.Active
	if err := h.service.UpdateProduct(r.Context(), p, product); err != nil {
		shared.WriteDomainError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, form any) bool {
	if err := json.NewDecoder(r.Body).Decode(form); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid body")
		return false
	}
	if err := h.validator.Struct(form); err != nil {
		shared.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}
	return id, true
}

func toCollectionResponse(c Collection) collectionResponse {
	return collectionResponse{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Name:      c.Name,
		Slug:      c.Slug,
		Visible:   c.Visible,
		CreatedAt: c.CreatedAt,
	}
}
