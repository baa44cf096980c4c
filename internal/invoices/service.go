package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kudibooks/kudibooks/internal/customers"
	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/products"
	"github.com/kudibooks/kudibooks/internal/sequence"
	"github.com/kudibooks/kudibooks/internal/settings"
	"github.com/kudibooks/kudibooks/internal/shared"
)

const idempotencyModule = "invoices.create"

// CustomerDirectory resolves invoice customers. *customers.Service implements it.
type CustomerDirectory interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

// Catalog resolves the products priced on invoice lines. *products.Service
// implements it.
type Catalog interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]products.Product, error)
}

// ReceiptQueue schedules the receipt email of a settled invoice.
type ReceiptQueue interface {
	EnqueueReceipt(ctx context.Context, invoiceID int64) error
}

// IdempotencyStore remembers which invoice a client request key produced.
// *shared.IdempotencyStore implements it.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Complete(ctx context.Context, key, refID string) error
	Lookup(ctx context.Context, key, module string) (string, error)
	Delete(ctx context.Context, key string) error
}

// SaveRecorder counts save outcomes. *observability.Metrics implements it.
type SaveRecorder interface {
	InvoiceSave(result string)
}

// Dependencies groups the collaborators of Service. Repo, Codes, Settings,
// Customers and Catalog are required.
type Dependencies struct {
	Repo        Repository
	Codes       *sequence.Generator
	Settings    settings.Reader
	Customers   CustomerDirectory
	Catalog     Catalog
	Audit       shared.Auditor
	Reports     shared.Bumper
	Receipts    ReceiptQueue
	Idempotency IdempotencyStore
	Metrics     SaveRecorder
	Logger      *slog.Logger
}

type Service struct {
	Dependencies
	logger *slog.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Dependencies: deps, logger: logger}
}

// Preview computes an invoice from req without storing it.
func (s *Service) Preview(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	snap, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	inv, _, err := s.draft(ctx, snap, req)
	return inv, err
}

// Create computes, validates and stores a new invoice under the next
// invoice code.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	snap, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	inv, customer, err := s.draft(ctx, snap, req)
	if err != nil {
		s.observe(err)
		return nil, err
	}

	_, err = sequence.Claim(ctx, s.Codes, snap.Scope(sequence.KindInvoice), s.Repo.WithTx, func(ctx context.Context, repo Repository, code string) error {
		inv.Code = code
		resetIDs(inv)
		return repo.Create(ctx, inv)
	})
	s.observe(err)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.logger.Info("invoice created",
		slog.String("code", inv.Code),
		slog.String("customer", customer.Code),
		slog.Int64("total", inv.Total.Minor()),
		slog.String("status", string(inv.Status)))
	s.changed(ctx, "invoice.create", inv, map[string]any{"code": inv.Code, "total": inv.Total, "status": inv.Status})
	if inv.Status == StatusPaid {
		s.queueReceipt(ctx, inv)
	}
	return s.Repo.Get(ctx, inv.ID)
}

// CreateIdempotent is Create guarded by a client supplied key. A repeated
// key returns the invoice the first request produced and replayed is true.
func (s *Service) CreateIdempotent(ctx context.Context, key string, req CreateInvoiceRequest) (inv *Invoice, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || s.Idempotency == nil {
		inv, err = s.Create(ctx, req)
		return inv, false, err
	}

	ref, err := s.Idempotency.Lookup(ctx, key, idempotencyModule)
	switch {
	case err == nil:
		return s.replay(ctx, ref)
	case errors.Is(err, shared.ErrIdempotencyKeyReused):
		return nil, false, ErrKeyReused
	case !errors.Is(err, shared.ErrNotFound):
		return nil, false, err
	}

	if err := s.Idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
		if !errors.Is(err, shared.ErrIdempotencyConflict) {
			return nil, false, err
		}
		ref, err := s.Idempotency.Lookup(ctx, key, idempotencyModule)
		if err != nil {
			return nil, false, ErrRequestInProgress
		}
		return s.replay(ctx, ref)
	}

	inv, err = s.Create(ctx, req)
	if err != nil {
		if derr := s.Idempotency.Delete(ctx, key); derr != nil {
			s.logger.Warn("release idempotency key failed", slog.String("key", key), slog.Any("error", derr))
		}
		return nil, false, err
	}
	if err := s.Idempotency.Complete(ctx, key, strconv.FormatInt(inv.ID, 10)); err != nil {
		s.logger.Warn("complete idempotency key failed", slog.String("key", key), slog.Any("error", err))
	}
	return inv, false, nil
}

func (s *Service) replay(ctx context.Context, ref string) (*Invoice, bool, error) {
	if ref == "" {
		return nil, false, ErrRequestInProgress
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("idempotency reference %q: %w", ref, err)
	}
	inv, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return inv, true, nil
}

// Update applies req to a stored invoice. Recorded payments are kept and
// new ones are appended.
func (s *Service) Update(ctx context.Context, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	snap, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var items []LineItem
	if req.Items != nil {
		if items, err = s.buildItems(ctx, req.Items); err != nil {
			return nil, err
		}
	}

	var customer *customers.Customer
	if req.CustomerID != nil {
		if customer, err = s.customer(ctx, *req.CustomerID); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, id, snap, "invoice.update", func(inv *Invoice) (bool, error) {
		if customer != nil {
			inv.CustomerID = customer.ID
		}
		if req.Date != nil {
			date, err := parseDate("date", *req.Date)
			if err != nil {
				return false, err
			}
			inv.Date = date
		}
		if req.Discount != nil {
			inv.Discount = *req.Discount
		}
		if req.Note != nil {
			inv.Note = strings.TrimSpace(*req.Note)
		}
		if items != nil {
			inv.Items = items
		}
		for i, in := range req.Payments {
			p, err := in.toPayment(i, inv.Date)
			if err != nil {
				return false, err
			}
			inv.AddPayment(p)
		}
		return items != nil, nil
	})
}

// AddPayment records a payment against a stored invoice.
func (s *Service) AddPayment(ctx context.Context, id int64, in PaymentInput) (*Invoice, error) {
	snap, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, snap, "invoice.payment", func(inv *Invoice) (bool, error) {
		p, err := in.toPayment(0, inv.Date)
		if err != nil {
			return false, err
		}
		inv.AddPayment(p)
		return false, nil
	})
}

// RemovePayment refuses to drop a recorded payment. Payments are only
// removable before they are stored, which an API caller never sees.
func (s *Service) RemovePayment(ctx context.Context, invoiceID, paymentID int64) error {
	inv, err := s.Repo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	for i, p := range inv.Payments {
		if p.ID == paymentID {
			return inv.RemovePayment(i)
		}
	}
	return ErrPaymentNotFound
}

// mutate loads and locks an invoice, applies fn, recomputes, validates and
// saves it in one transaction.
func (s *Service) mutate(ctx context.Context, id int64, snap settings.Snapshot, action string, fn func(*Invoice) (bool, error)) (*Invoice, error) {
	var (
		saved     *Invoice
		wasStatus Status
	)
	err := s.Repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		wasStatus = inv.Status
		replaceItems, err := fn(inv)
		if err != nil {
			return err
		}
		customer, err := s.customer(ctx, inv.CustomerID)
		if err != nil {
			return err
		}
		before := lineAmounts(inv)
		Recompute(inv, snap.RoundingGranularity())
		if err := Validate(inv, s.isWalkIn(customer, snap)); err != nil {
			return err
		}
		// Stored lines whose amount drifted are rewritten with the totals.
		if !replaceItems && !slices.Equal(before, lineAmounts(inv)) {
			replaceItems = true
		}
		if replaceItems {
			for i := range inv.Items {
				inv.Items[i].ID = 0
			}
		}
		if err := repo.Save(ctx, inv, replaceItems); err != nil {
			if paymentLocked(err) {
				return ErrPaymentImmutable
			}
			return err
		}
		saved = inv
		return nil
	})
	s.observe(err)
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	s.changed(ctx, action, saved, map[string]any{"total": saved.Total, "paid": saved.Paid, "status": saved.Status})
	if saved.Status == StatusPaid && wasStatus != StatusPaid {
		s.queueReceipt(ctx, saved)
	}
	return s.Repo.Get(ctx, id)
}

// Recalculate recomputes the stored derived fields of an invoice and saves
// them when they drifted. It reports whether anything changed. A repaired
// invoice that no longer validates is still saved, and is counted and
// audited as such.
func (s *Service) Recalculate(ctx context.Context, id int64) (bool, error) {
	snap, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	var (
		repaired *Invoice
		invalid  error
	)
	err = s.Repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before := derivedOf(inv)
		Recompute(inv, snap.RoundingGranularity())
		if derivedOf(inv) == before {
			return nil
		}
		walkIn := false
		if customer, err := s.customer(ctx, inv.CustomerID); err == nil {
			walkIn = s.isWalkIn(customer, snap)
		} else if _, ok := AsValidation(err); !ok {
			return err
		}
		invalid = Validate(inv, walkIn)
		for i := range inv.Items {
			inv.Items[i].ID = 0
		}
		if err := repo.Save(ctx, inv, true); err != nil {
			return err
		}
		repaired = inv
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("recalculate invoice %d: %w", id, err)
	}
	if repaired == nil {
		return false, nil
	}

	meta := map[string]any{"total": repaired.Total, "paid": repaired.Paid, "status": repaired.Status}
	if invalid != nil {
		s.logger.Warn("repaired invoice fails validation",
			slog.String("code", repaired.Code), slog.Any("error", invalid))
		meta["invalid"] = invalid.Error()
		if s.Metrics != nil {
			s.Metrics.InvoiceSave("repaired_invalid")
		}
	} else {
		s.logger.Info("invoice totals repaired", slog.Int64("id", id))
	}
	s.changed(ctx, "invoice.recalculate", repaired, meta)
	return true, nil
}

// RecalculateAll runs Recalculate over every invoice and returns how many
// were checked and how many changed.
func (s *Service) RecalculateAll(ctx context.Context) (checked, changed int, err error) {
	const page = 200
	var after int64
	for {
		ids, err := s.Repo.IDs(ctx, after, page)
		if err != nil {
			return checked, changed, err
		}
		for _, id := range ids {
			ok, err := s.Recalculate(ctx, id)
			if err != nil {
				return checked, changed, err
			}
			checked++
			if ok {
				changed++
			}
			after = id
		}
		if len(ids) < page {
			return checked, changed, nil
		}
	}
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	inv, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	s.changed(ctx, "invoice.delete", inv, map[string]any{"code": inv.Code})
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.Repo.List(ctx, req)
}

// NextCode reserves the next invoice code.
func (s *Service) NextCode(ctx context.Context) (string, error) {
	snap, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return s.Codes.Generate(ctx, snap.Scope(sequence.KindInvoice))
}

// draft turns a create request into a recomputed, validated invoice.
func (s *Service) draft(ctx context.Context, snap settings.Snapshot, req CreateInvoiceRequest) (*Invoice, *customers.Customer, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, nil, err
	}
	customer, err := s.customer(ctx, req.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, nil, err
	}

	inv := &Invoice{
		CustomerID:   customer.ID,
		CustomerCode: customer.Code,
		CustomerName: customer.Name,
		Date:         date,
		Discount:     req.Discount,
		Note:         strings.TrimSpace(req.Note),
		Items:        items,
		Payments:     make([]Payment, 0, len(req.Payments)),
	}
	for i, in := range req.Payments {
		p, err := in.toPayment(i, date)
		if err != nil {
			return nil, nil, err
		}
		inv.Payments = append(inv.Payments, p)
	}

	Recompute(inv, snap.RoundingGranularity())
	if err := Validate(inv, s.isWalkIn(customer, snap)); err != nil {
		return nil, nil, err
	}
	return inv, customer, nil
}

// buildItems prices the requested lines, snapshotting product prices that
// the caller did not override.
func (s *Service) buildItems(ctx context.Context, inputs []ItemInput) ([]LineItem, error) {
	if len(inputs) == 0 {
		return []LineItem{}, nil
	}
	ids := make([]int64, 0, len(inputs))
	seen := make(map[int64]bool, len(inputs))
	for _, in := range inputs {
		if !seen[in.ProductID] {
			seen[in.ProductID] = true
			ids = append(ids, in.ProductID)
		}
	}
	catalog, err := s.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	one := decimal.NewFromInt(1)
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		product, ok := catalog[in.ProductID]
		if !ok {
			return nil, &ValidationError{Field: itemField(i, "product_id"), Message: MsgUnknownProduct}
		}
		width, err := in.Width.Decimal(itemField(i, "width"), one)
		if err != nil {
			return nil, err
		}
		height, err := in.Height.Decimal(itemField(i, "height"), one)
		if err != nil {
			return nil, err
		}
		li := LineItem{
			ProductID:     product.ID,
			Description:   strings.TrimSpace(in.Description),
			Width:         width,
			Height:        height,
			UnitPrice:     product.UnitPrice,
			Quantity:      in.Quantity,
			MinimumAmount: product.MinimumAmount,
		}
		if li.Description == "" {
			li.Description = product.Name
		}
		if in.UnitPrice != nil {
			li.UnitPrice = *in.UnitPrice
		}
		if in.MinimumAmount != nil {
			li.MinimumAmount = *in.MinimumAmount
		}
		items = append(items, li)
	}
	return items, nil
}

func (s *Service) customer(ctx context.Context, id int64) (*customers.Customer, error) {
	c, err := s.Customers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, customers.ErrNotFound) {
			return nil, &ValidationError{Field: "customer_id", Message: MsgUnknownCustomer}
		}
		return nil, err
	}
	return c, nil
}

// isWalkIn matches the walk-in customer by type or by its configured code.
func (s *Service) isWalkIn(c *customers.Customer, snap settings.Snapshot) bool {
	return c.IsWalkIn() || c.Code == snap.WalkInCustomerCode()
}

func (s *Service) observe(err error) {
	if s.Metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.Metrics.InvoiceSave("ok")
	case errors.Is(err, sequence.ErrCodeGenerationExhausted):
		s.Metrics.InvoiceSave("exhausted")
	default:
		if _, ok := AsValidation(err); ok {
			s.Metrics.InvoiceSave("invalid")
			return
		}
		s.Metrics.InvoiceSave("error")
	}
}

func (s *Service) changed(ctx context.Context, action string, inv *Invoice, meta map[string]any) {
	s.bumpReports(ctx)
	if s.Audit == nil {
		return
	}
	err := s.Audit.Record(ctx, shared.AuditLog{Action: action, Entity: "invoice", EntityID: strconv.FormatInt(inv.ID, 10), Meta: meta})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) bumpReports(ctx context.Context) {
	if s.Reports == nil {
		return
	}
	if err := s.Reports.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) queueReceipt(ctx context.Context, inv *Invoice) {
	if s.Receipts == nil {
		return
	}
	if err := s.Receipts.EnqueueReceipt(ctx, inv.ID); err != nil {
		s.logger.Warn("enqueue receipt failed", slog.String("code", inv.Code), slog.Any("error", err))
	}
}

func lineAmounts(inv *Invoice) []money.Money {
	out := make([]money.Money, len(inv.Items))
	for i, item := range inv.Items {
		out[i] = item.Amount
	}
	return out
}

type derived struct {
	subtotal money.Money
	roundOff money.Money
	total    money.Money
	paid     money.Money
	due      money.Money
	status   Status
	amounts  string
}

func derivedOf(inv *Invoice) derived {
	var b strings.Builder
	for _, li := range inv.Items {
		b.WriteString(strconv.FormatInt(li.Amount.Minor(), 10))
		b.WriteByte(',')
	}
	return derived{
		subtotal: inv.Subtotal,
		roundOff: inv.RoundOff,
		total:    inv.Total,
		paid:     inv.Paid,
		due:      inv.Due,
		status:   inv.Status,
		amounts:  b.String(),
	}
}

func resetIDs(inv *Invoice) {
	inv.ID = 0
	for i := range inv.Items {
		inv.Items[i].ID = 0
	}
	for i := range inv.Payments {
		inv.Payments[i].ID = 0
	}
}
