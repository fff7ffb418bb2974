package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/sellerdesk/internal/jobs"
	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/procurement"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// ProcurementService is the slice of the procurement service the worker drives.
type ProcurementService interface {
	Sweep(ctx context.Context, batch int) (procurement.SweepResult, error)
	IntakePO(ctx context.Context, req procurement.IntakePORequest) (procurement.PurchaseOrder, error)
	ReviewPI(ctx context.Context, req procurement.ReviewPIRequest) (procurement.ProformaInvoice, error)
}

// KeyJanitor prunes stale idempotency keys.
type KeyJanitor interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ProcurementJobs handles the procurement task types.
type ProcurementJobs struct {
	service   ProcurementService
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
	janitor   KeyJanitor
	retention time.Duration
}

// NewProcurementJobs wires the handlers. A nil metrics disables instrumentation.
func NewProcurementJobs(service ProcurementService, logger *slog.Logger, metrics *jobmetrics.Metrics) *ProcurementJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcurementJobs{service: service, logger: logger, metrics: metrics}
}

// WithKeyJanitor makes every sweep also drop idempotency keys older than retention.
func (j *ProcurementJobs) WithKeyJanitor(janitor KeyJanitor, retention time.Duration) *ProcurementJobs {
	j.janitor = janitor
	j.retention = retention
	return j
}

// Handlers lists the task registrations for the worker.
func (j *ProcurementJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskProcurementSweep, Handler: j.HandleSweep},
		{Type: TaskPOIntake, Handler: j.HandlePOIntake},
		{Type: TaskPIReview, Handler: j.HandlePIReview},
	}
}

// HandleSweep runs one sweep.
func (j *ProcurementJobs) HandleSweep(ctx context.Context, t *asynq.Task) error {
	var payload SweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.metrics.Track(TaskProcurementSweep)
	result, err := j.service.Sweep(ctx, payload.Batch)
	j.metrics.AddSwept("pi", result.ExpiredPIs)
	j.metrics.AddSwept("invoice", result.OverdueInvoices)
	if err != nil {
		return tracker.End(err)
	}
	if j.janitor != nil && j.retention > 0 {
		removed, err := j.janitor.Cleanup(ctx, j.retention)
		if err != nil {
			j.logger.Warn("idempotency cleanup", slog.Any("error", err))
		}
		j.metrics.AddSwept("idempotency_key", int(removed))
	}
	return tracker.End(nil)
}

// HandlePOIntake stores a buyer purchase order.
func (j *ProcurementJobs) HandlePOIntake(ctx context.Context, t *asynq.Task) error {
	var req procurement.IntakePORequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track(TaskPOIntake)
	if err := httpx.Validate(req); err != nil {
		return tracker.End(j.reject(TaskPOIntake, req.SellerID, err))
	}
	po, err := j.service.IntakePO(ctx, req)
	if err != nil {
		return tracker.End(j.reject(TaskPOIntake, req.SellerID, err))
	}
	j.logger.Info("purchase order received", slog.Int64("seller_id", po.SellerID), slog.String("number", po.Number))
	return tracker.End(nil)
}

// HandlePIReview applies a buyer decision.
func (j *ProcurementJobs) HandlePIReview(ctx context.Context, t *asynq.Task) error {
	var req procurement.ReviewPIRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track(TaskPIReview)
	if err := httpx.Validate(req); err != nil {
		return tracker.End(j.reject(TaskPIReview, req.SellerID, err))
	}
	pi, err := j.service.ReviewPI(ctx, req)
	if err != nil {
		return tracker.End(j.reject(TaskPIReview, req.SellerID, err))
	}
	j.logger.Info("proforma invoice reviewed", slog.Int64("seller_id", pi.SellerID), slog.String("number", pi.Number), slog.String("status", string(pi.Status)))
	return tracker.End(nil)
}

// reject stops retries for classified domain errors; replaying the same
// payload cannot succeed. Anything else is returned for asynq to retry.
func (j *ProcurementJobs) reject(task string, sellerID int64, err error) error {
	if shared.KindOf(err) == nil {
		return err
	}
	j.logger.Warn("task rejected", slog.String("task", task), slog.Int64("seller_id", sellerID), slog.String("reason", shared.UserMessage(err)))
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}
