package jobs

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueMail carries outbound email so a slow SMTP server cannot starve
	// maintenance work.
	QueueMail = "mail"

	TaskInvoicesRecompute  = "invoices:recompute"
	TaskInvoicesReceipt    = "invoices:receipt"
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
	TaskSettingsWarmup     = "settings:warmup"
)

// DefaultRetention is how long idempotency keys are kept.
const DefaultRetention = 72 * time.Hour

// receiptNamespace derives stable task ids so an invoice gets at most one
// pending receipt.
var receiptNamespace = uuid.MustParse("6f1c3c1e-5b7a-4d0e-9a51-2f8a6c0e4b11")

// Triggerable lists the tasks that run without a caller-supplied payload.
func Triggerable() []string {
	return []string{TaskInvoicesRecompute, TaskIdempotencyCleanup, TaskSettingsWarmup}
}

// RecomputePayload selects one invoice, or every invoice when InvoiceID is 0.
type RecomputePayload struct {
	InvoiceID int64 `json:"invoice_id,omitempty"`
}

// NewRecomputeTask builds an invoices:recompute task.
func NewRecomputeTask(invoiceID int64) (*asynq.Task, error) {
	data, err := json.Marshal(RecomputePayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicesRecompute, data, asynq.MaxRetry(3)), nil
}

// ReceiptPayload names the settled invoice to email.
type ReceiptPayload struct {
	InvoiceID int64 `json:"invoice_id"`
}

// NewReceiptTask builds an invoices:receipt task.
func NewReceiptTask(invoiceID int64) (*asynq.Task, error) {
	data, err := json.Marshal(ReceiptPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicesReceipt, data,
		asynq.TaskID(ReceiptTaskID(invoiceID)),
		asynq.Queue(QueueMail),
		asynq.MaxRetry(5),
	), nil
}

// ReceiptTaskID is the task id of the receipt of invoiceID.
func ReceiptTaskID(invoiceID int64) string {
	return uuid.NewSHA1(receiptNamespace, []byte(strconv.FormatInt(invoiceID, 10))).String()
}

// CleanupPayload configures idempotency key retention in hours.
type CleanupPayload struct {
	RetentionHours int `json:"retention_hours,omitempty"`
}

func (p CleanupPayload) retention() time.Duration {
	if p.RetentionHours <= 0 {
		return DefaultRetention
	}
	return time.Duration(p.RetentionHours) * time.Hour
}

// NewCleanupTask builds a maintenance:idempotency_cleanup task.
func NewCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(CleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// WarmupPayload controls which caches the warmup fills.
type WarmupPayload struct {
	Reports bool `json:"reports"`
}

// NewWarmupTask builds a settings:warmup task.
func NewWarmupTask(reports bool) (*asynq.Task, error) {
	data, err := json.Marshal(WarmupPayload{Reports: reports})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSettingsWarmup, data), nil
}
