package warehouse

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// Handler exposes the warehouse hierarchy as JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers warehouse routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/warehouses", h.createWarehouse)
	r.Post("/floors", h.createFloorPlan)
	r.Post("/areas", h.createArea)
	r.Post("/racks", h.createRack)
	r.Post("/shelves", h.createShelf)
	r.Post("/bins", h.createBin)
	r.Get("/bins", h.listBins)
	r.Get("/bins/{id}/location-code", h.getLocationCode)
	r.Get("/locations/{code}", h.decodeLocation)
	r.Delete("/levels/{level}/{id}", h.deleteLevel)
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req CreateWarehouseRequest
	create(h, w, r, &req, func(actor shared.Actor) (any, error) {
		return h.service.CreateWarehouse(r.Context(), actor, req)
	})
}

func (h *Handler) createFloorPlan(w http.ResponseWriter, r *http.Request) {
	var req CreateFloorPlanRequest
	create(h, w, r, &req, func(actor shared.Actor) (any, error) {
		return h.service.CreateFloorPlan(r.Context(), actor, req)
	})
}

func (h *Handler) createArea(w http.ResponseWriter, r *http.Request) {
	var req CreateAreaRequest
	create(h, w, r, &req, func(actor shared.Actor) (any, error) {
		return h.service.CreateArea(r.Context(), actor, req)
	})
}

func (h *Handler) createRack(w http.ResponseWriter, r *http.Request) {
	var req CreateRackRequest
	create(h, w, r, &req, func(actor shared.Actor) (any, error) {
		return h.service.CreateRack(r.Context(), actor, req)
	})
}

func (h *Handler) createShelf(w http.ResponseWriter, r *http.Request) {
	var req CreateShelfRequest
	create(h, w, r, &req, func(actor shared.Actor) (any, error) {
		return h.service.CreateShelf(r.Context(), actor, req)
	})
}

func (h *Handler) createBin(w http.ResponseWriter, r *http.Request) {
	var req CreateBinRequest
	create(h, w, r, &req, func(actor shared.Actor) (any, error) {
		return h.service.CreateBin(r.Context(), actor, req)
	})
}

func (h *Handler) listBins(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	warehouseID, err := httpx.OptionalIDQuery(r, "warehouseId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	bins, err := h.service.ListBins(r.Context(), actor, BinFilter{WarehouseID: warehouseID})
	h.respond(w, http.StatusOK, map[string]any{"bins": bins}, err)
}

func (h *Handler) getLocationCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	code, err := h.service.GetLocationCode(r.Context(), actor, id)
	h.respond(w, http.StatusOK, map[string]any{"binId": id, "locationCode": code}, err)
}

func (h *Handler) decodeLocation(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	loc, err := h.service.DecodeLocation(chi.URLParam(r, "code"))
	h.respond(w, http.StatusOK, loc, err)
}

func (h *Handler) deleteLevel(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteLevel(r.Context(), actor, Level(chi.URLParam(r, "level")), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func create(h *Handler, w http.ResponseWriter, r *http.Request, req any, fn func(shared.Actor) (any, error)) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out, err := fn(actor)
	h.respond(w, http.StatusCreated, out, err)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.Forbidden("Seller access requires a verified seller profile"))
		return shared.Actor{}, false
	}
	return actor, true
}

func (h *Handler) respond(w http.ResponseWriter, status int, out any, err error) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, status, out)
}
