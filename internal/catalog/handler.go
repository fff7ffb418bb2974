package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// Handler exposes identifier allocation.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/identifiers", h.allocate)
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.Forbidden("Seller access requires a verified seller profile"))
		return
	}
	var req AllocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := httpx.Validate(&req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ids, err := h.service.AllocateIdentifiers(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ids)
}
