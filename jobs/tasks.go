package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/sellerdesk/internal/procurement"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueIntake carries buyer-side documents and is drained first.
	QueueIntake = "intake"

	// TaskProcurementSweep persists EXPIRED PIs and OVERDUE invoices.
	TaskProcurementSweep = "procurement:sweep"
	// TaskPOIntake stores a buyer purchase order.
	TaskPOIntake = "procurement:po-intake"
	// TaskPIReview applies a buyer decision to a proforma invoice.
	TaskPIReview = "procurement:pi-review"
)

// SweepPayload bounds a sweep run. Zero uses the service default.
type SweepPayload struct {
	Batch int `json:"batch"`
}

// NewSweepTask builds a sweep task.
func NewSweepTask(batch int) (*asynq.Task, error) {
	body, err := json.Marshal(SweepPayload{Batch: batch})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcurementSweep, body, asynq.Queue(QueueDefault)), nil
}

// NewPOIntakeTask wraps a buyer purchase order.
func NewPOIntakeTask(req procurement.IntakePORequest) (*asynq.Task, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPOIntake, body, asynq.Queue(QueueIntake)), nil
}

// NewPIReviewTask wraps a buyer review decision.
func NewPIReviewTask(req procurement.ReviewPIRequest) (*asynq.Task, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPIReview, body, asynq.Queue(QueueIntake)), nil
}
