package procurement

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// Handler exposes procurement operations as JSON endpoints. Routes expect the
// seller actor to be resolved by middleware.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/pis", func(r chi.Router) {
		r.Post("/", h.createPI)
		r.Get("/{id}", h.getPI)
		r.Patch("/{id}", h.updatePI)
		r.Delete("/{id}", h.deletePI)
		r.Post("/{id}/send", h.sendPI)
		r.Post("/{id}/cancel", h.cancelPI)
		r.Post("/{id}/reopen", h.reopenPI)
	})
	r.Route("/pos", func(r chi.Router) {
		r.Get("/{id}", h.getPO)
		r.Post("/{id}/acknowledge", h.acknowledgePO)
		r.Post("/{id}/status", h.updatePOStatus)
		r.Post("/{id}/items", h.updatePOItems)
		r.Post("/{id}/cancel", h.cancelPO)
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.generateInvoice)
		r.Get("/{id}", h.getInvoice)
		r.Post("/{id}/send", h.sendInvoice)
		r.Post("/{id}/viewed", h.markInvoiceViewed)
		r.Post("/{id}/mark-unpaid", h.markUnpaid)
		r.Post("/{id}/payments", h.recordPayment)
		r.Post("/{id}/cancel", h.cancelInvoice)
	})
}

func (h *Handler) createPI(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreatePIRequest
	if !h.decode(w, r, &req) {
		return
	}
	pi, err := h.service.CreatePI(r.Context(), actor, idempotencyKey(r), req)
	h.respond(w, http.StatusCreated, pi, err)
}

func (h *Handler) getPI(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.GetPI(r.Context(), actor, id)
	})
}

func (h *Handler) updatePI(w http.ResponseWriter, r *http.Request) {
	var req UpdatePIRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.UpdatePI(r.Context(), actor, id, req)
	})
}

func (h *Handler) deletePI(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		if err := h.service.DeletePI(r.Context(), actor, id); err != nil {
			return nil, err
		}
		return map[string]bool{"success": true}, nil
	})
}

func (h *Handler) sendPI(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.SendPI(r.Context(), actor, id)
	})
}

func (h *Handler) cancelPI(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.CancelPI(r.Context(), actor, id)
	})
}

func (h *Handler) reopenPI(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.ReopenPI(r.Context(), actor, id)
	})
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.GetPO(r.Context(), actor, id)
	})
}

func (h *Handler) acknowledgePO(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgePORequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.AcknowledgePO(r.Context(), actor, id, req)
	})
}

func (h *Handler) updatePOStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePOStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.UpdatePOStatus(r.Context(), actor, id, req)
	})
}

func (h *Handler) updatePOItems(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemQuantitiesRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.UpdateItemQuantities(r.Context(), actor, id, req)
	})
}

func (h *Handler) cancelPO(w http.ResponseWriter, r *http.Request) {
	var req CancelPORequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.CancelPO(r.Context(), actor, id, req)
	})
}

func (h *Handler) generateInvoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req GenerateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.GenerateInvoice(r.Context(), actor, req)
	h.respond(w, http.StatusCreated, inv, err)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.GetInvoice(r.Context(), actor, id)
	})
}

func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.SendInvoice(r.Context(), actor, id)
	})
}

func (h *Handler) markInvoiceViewed(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.MarkInvoiceViewed(r.Context(), actor, id)
	})
}

func (h *Handler) markUnpaid(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.MarkUnpaid(r.Context(), actor, id)
	})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.RecordPayment(r.Context(), actor, idempotencyKey(r), id, req)
	})
}

func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(actor shared.Actor, id int64) (any, error) {
		return h.service.CancelInvoice(r.Context(), actor, id)
	})
}

func (h *Handler) withID(w http.ResponseWriter, r *http.Request, fn func(actor shared.Actor, id int64) (any, error)) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out, err := fn(actor, id)
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.Forbidden("Seller access requires a verified seller profile"))
		return shared.Actor{}, false
	}
	return actor, true
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

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(shared.IdempotencyHeader))
}
