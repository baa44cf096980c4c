package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudibooks/kudibooks/internal/platform/db"
	"github.com/kudibooks/kudibooks/internal/sequence"
)

// Repository persists invoices together with their items and payments.
// Inside WithTx it is also the code source for the invoice sequence.
type Repository interface {
	sequence.Source
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	// GetForUpdate loads the invoice and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	// IDs pages through invoice ids in ascending order.
	IDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	Create(ctx context.Context, inv *Invoice) error
	// Save writes the header, replaces the items when replaceItems is set and
	// inserts payments that have no id yet.
	Save(ctx context.Context, inv *Invoice, replaceItems bool) error
	Delete(ctx context.Context, id int64) error
}

type querier interface {
	db.DBTX
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type repository struct {
	*sequence.PGSource
	db   querier
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{PGSource: sequence.NewPGSource(pool), db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{PGSource: sequence.NewPGSource(tx), db: tx, pool: r.pool})
	})
}

const invoiceColumns = `i.id, i.code, i.customer_id, c.code, c.name, i.invoice_date, i.subtotal, i.discount,
	i.round_off, i.total, i.paid, i.due, i.status, i.note, i.created_at, i.updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Code, &inv.CustomerID, &inv.CustomerCode, &inv.CustomerName, &inv.Date,
		&inv.Subtotal, &inv.Discount, &inv.RoundOff, &inv.Total, &inv.Paid, &inv.Due, &inv.Status, &inv.Note,
		&inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	return r.load(ctx, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return r.load(ctx, id, " FOR UPDATE OF i")
}

func (r *repository) load(ctx context.Context, id int64, lock string) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices i JOIN customers c ON c.id = i.customer_id WHERE i.id = $1` + lock
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	if inv.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	if inv.Payments, err = r.payments(ctx, id); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) items(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, product_id, description, width, height, unit_price, quantity, minimum_amount, amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LineItem, error) {
		var li LineItem
		err := row.Scan(&li.ID, &li.ProductID, &li.Description, &li.Width, &li.Height, &li.UnitPrice, &li.Quantity, &li.MinimumAmount, &li.Amount)
		return li, err
	})
}

func (r *repository) payments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, amount, method, paid_on, reference, note, created_at
		FROM invoice_payments WHERE invoice_id = $1 ORDER BY paid_on, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice payments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		var p Payment
		err := row.Scan(&p.ID, &p.Amount, &p.Method, &p.PaidOn, &p.Reference, &p.Note, &p.CreatedAt)
		return p, err
	})
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.CustomerID > 0 {
		conditions = append(conditions, fmt.Sprintf("i.customer_id = $%d", argPos))
		args = append(args, req.CustomerID)
		argPos++
	}
	if req.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argPos))
		args = append(args, req.Status)
		argPos++
	}
	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(i.code ILIKE $%d OR c.name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if !req.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("i.invoice_date >= $%d", argPos))
		args = append(args, req.From)
		argPos++
	}
	if !req.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("i.invoice_date <= $%d", argPos))
		args = append(args, req.To)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM invoices i JOIN customers c ON c.id = i.customer_id " + whereClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices i JOIN customers c ON c.id = i.customer_id %s
		ORDER BY i.invoice_date DESC, i.code DESC LIMIT $%d OFFSET $%d`, invoiceColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) {
		return scanInvoice(row)
	})
	return list, total, err
}

func (r *repository) IDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM invoices WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *repository) Create(ctx context.Context, inv *Invoice) error {
	err := r.db.QueryRow(ctx, `INSERT INTO invoices
		(code, customer_id, invoice_date, subtotal, discount, round_off, total, paid, due, status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		inv.Code, inv.CustomerID, inv.Date, inv.Subtotal, inv.Discount, inv.RoundOff, inv.Total,
		inv.Paid, inv.Due, inv.Status, inv.Note,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return err
	}
	return r.writeChildren(ctx, inv, true)
}

func (r *repository) Save(ctx context.Context, inv *Invoice, replaceItems bool) error {
	err := r.db.QueryRow(ctx, `UPDATE invoices SET customer_id = $2, invoice_date = $3, subtotal = $4,
		discount = $5, round_off = $6, total = $7, paid = $8, due = $9, status = $10, note = $11, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		inv.ID, inv.CustomerID, inv.Date, inv.Subtotal, inv.Discount, inv.RoundOff, inv.Total,
		inv.Paid, inv.Due, inv.Status, inv.Note,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if replaceItems {
		if _, err := r.db.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
	}
	return r.writeChildren(ctx, inv, replaceItems)
}

// writeChildren inserts items (when withItems) and unsaved payments in one
// round trip, filling in the generated ids.
func (r *repository) writeChildren(ctx context.Context, inv *Invoice, withItems bool) error {
	batch := &pgx.Batch{}
	var targets []*int64
	if withItems {
		for i := range inv.Items {
			li := &inv.Items[i]
			batch.Queue(`INSERT INTO invoice_items
				(invoice_id, product_id, description, width, height, unit_price, quantity, minimum_amount, amount, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
				inv.ID, li.ProductID, li.Description, li.Width, li.Height, li.UnitPrice, li.Quantity, li.MinimumAmount, li.Amount, i)
			targets = append(targets, &li.ID)
		}
	}
	for i := range inv.Payments {
		p := &inv.Payments[i]
		if p.Persisted() {
			continue
		}
		batch.Queue(`INSERT INTO invoice_payments (invoice_id, amount, method, paid_on, reference, note)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			inv.ID, p.Amount, p.Method, p.PaidOn, p.Reference, p.Note)
		targets = append(targets, &p.ID)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := r.db.SendBatch(ctx, batch)
	for _, target := range targets {
		if err := results.QueryRow().Scan(target); err != nil {
			_ = results.Close()
			return fmt.Errorf("write invoice lines: %w", err)
		}
	}
	return results.Close()
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// paymentLocked reports the error raised by the trigger guarding recorded
// payments.
func paymentLocked(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55000" && strings.Contains(pgErr.Message, "payments are immutable")
}
