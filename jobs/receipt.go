package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/hibiken/asynq"

	"github.com/kudibooks/kudibooks/internal/customers"
	"github.com/kudibooks/kudibooks/internal/invoices"
	jobmetrics "github.com/kudibooks/kudibooks/internal/jobs"
	"github.com/kudibooks/kudibooks/internal/settings"
)

// InvoiceReader loads an invoice with its lines and payments.
type InvoiceReader interface {
	Get(ctx context.Context, id int64) (*invoices.Invoice, error)
}

// CustomerReader loads a customer.
type CustomerReader interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

// ReceiptJob emails a receipt once an invoice is fully paid.
type ReceiptJob struct {
	Invoices  InvoiceReader
	Customers CustomerReader
	Settings  settings.Reader
	Mailer    Mailer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`Hello {{.Customer}},

Thank you for your payment. Invoice {{.Code}} dated {{.Date}} is now settled.

{{range .Lines}}{{.Description}}  x{{.Quantity}}  {{.Amount}}
{{end}}
Subtotal:  {{.Subtotal}}
{{- if .Discount}}
Discount:  {{.Discount}}{{end}}
{{- if .RoundOff}}
Round off: {{.RoundOff}}{{end}}
Total:     {{.Total}}
Paid:      {{.Paid}}

{{.Business}}
`))

type receiptLine struct {
	Description string
	Quantity    int64
	Amount      string
}

type receiptView struct {
	Business string
	Customer string
	Code     string
	Date     string
	Lines    []receiptLine
	Subtotal string
	Discount string
	RoundOff string
	Total    string
	Paid     string
}

// Handle processes invoices:receipt tasks. Invoices that are no longer paid,
// or whose customer has no email address, are skipped.
func (j *ReceiptJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Invoices == nil || j.Customers == nil || j.Mailer == nil {
		return errors.New("invoice receipt: handler not configured")
	}
	var payload ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.InvoiceID <= 0 {
		return asynq.SkipRetry
	}

	metrics := metricsOr(j.Metrics)
	tracker := metrics.Track(TaskInvoicesReceipt)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	logger := jobLogger(j.Logger, TaskInvoicesReceipt).With(slog.Int64("invoice_id", payload.InvoiceID))

	inv, err := j.Invoices.Get(ctx, payload.InvoiceID)
	if errors.Is(err, invoices.ErrNotFound) {
		logger.Warn("invoice vanished before receipt")
		return nil
	}
	if err != nil {
		return err
	}
	if inv.Status != invoices.StatusPaid {
		logger.Info("invoice no longer paid, receipt skipped", slog.String("status", string(inv.Status)))
		return nil
	}
	customer, err := j.Customers.Get(ctx, inv.CustomerID)
	if errors.Is(err, customers.ErrNotFound) {
		logger.Warn("customer vanished before receipt")
		return nil
	}
	if err != nil {
		return err
	}
	if customer.Email == "" {
		logger.Info("customer has no email, receipt skipped", slog.String("customer", customer.Code))
		return nil
	}

	snap := settings.NewSnapshot(nil)
	if j.Settings != nil {
		if snap, err = j.Settings.Snapshot(ctx); err != nil {
			return err
		}
	}
	body, err := renderReceipt(snap, inv, customer)
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	msg := Message{
		From:    snap.Get(settings.KeyBusinessEmail, ""),
		To:      customer.Email,
		Subject: fmt.Sprintf("Receipt for invoice %s", inv.Code),
		Text:    body,
	}
	if err := j.Mailer.Send(ctx, msg); err != nil {
		logger.Error("send receipt", slog.Any("error", err))
		return err
	}
	metrics.ReceiptSent()
	logger.Info("receipt sent", slog.String("to", customer.Email))
	return nil
}

func renderReceipt(snap settings.Snapshot, inv *invoices.Invoice, customer *customers.Customer) (string, error) {
	view := receiptView{
		Business: snap.Get(settings.KeyBusinessName, ""),
		Customer: customer.Name,
		Code:     inv.Code,
		Date:     inv.Date.Format("2 Jan 2006"),
		Subtotal: snap.FormatMoney(inv.Subtotal),
		Total:    snap.FormatMoney(inv.Total),
		Paid:     snap.FormatMoney(inv.Paid),
	}
	if !inv.Discount.IsZero() {
		view.Discount = snap.FormatMoney(inv.Discount)
	}
	if !inv.RoundOff.IsZero() {
		view.RoundOff = snap.FormatMoney(inv.RoundOff)
	}
	for _, item := range inv.Items {
		view.Lines = append(view.Lines, receiptLine{
			Description: item.Description,
			Quantity:    item.Quantity,
			Amount:      snap.FormatMoney(item.Amount),
		})
	}
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
