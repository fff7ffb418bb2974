package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// Handler wires HTTP endpoints for product locations.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/locations", func(r chi.Router) {
		r.Post("/", h.assign)
		r.Get("/available-bins", h.availableBins)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if !h.decode(w, r, &req) {
		return
	}
	loc, err := h.service.Assign(r.Context(), actor, req)
	h.respond(w, http.StatusCreated, loc, err)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	loc, err := h.service.Get(r.Context(), actor, id)
	h.respond(w, http.StatusOK, loc, err)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	loc, err := h.service.Update(r.Context(), actor, id, req)
	h.respond(w, http.StatusOK, loc, err)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) availableBins(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	warehouseID, err := httpx.OptionalIDQuery(r, "warehouseId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	productID, err := httpx.OptionalIDQuery(r, "productId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	variantID, err := httpx.OptionalIDQuery(r, "productVariantId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	query := AvailableBinsQuery{WarehouseID: warehouseID, ProductID: productID, ProductVariantID: variantID}
	bins, err := h.service.GetAvailableBins(r.Context(), actor, query)
	h.respond(w, http.StatusOK, map[string]any{"bins": bins}, err)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.Forbidden("Seller access requires a verified seller profile"))
		return shared.Actor{}, false
	}
	return actor, true
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (shared.Actor, int64, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return shared.Actor{}, 0, false
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return shared.Actor{}, 0, false
	}
	return actor, id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	if err := httpx.Validate(target); err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, out any, err error) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, status, out)
}
