package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the Postgres implementation of Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) InvoiceTotals(ctx context.Context, rg Range) (InvoiceTotals, error) {
	var t InvoiceTotals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
		COALESCE(SUM(total), 0)::bigint, COALESCE(SUM(paid), 0)::bigint, COALESCE(SUM(due), 0)::bigint
		FROM invoices WHERE invoice_date BETWEEN $1 AND $2`, rg.From, rg.To,
	).Scan(&t.Count, &t.Invoiced, &t.Paid, &t.Due)
	return t, err
}

func (r *repository) ExpenseTotal(ctx context.Context, rg Range) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::bigint FROM expenses
		WHERE expense_date BETWEEN $1 AND $2`, rg.From, rg.To).Scan(&total)
	return total, err
}

func (r *repository) StatusBreakdown(ctx context.Context, rg Range) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(total), 0)::bigint
		FROM invoices WHERE invoice_date BETWEEN $1 AND $2 GROUP BY status`, rg.From, rg.To)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatusCount, error) {
		var sc StatusCount
		err := row.Scan(&sc.Status, &sc.Count, &sc.Total)
		return sc, err
	})
}

func (r *repository) Aging(ctx context.Context, asOf time.Time) ([]AgingBucket, error) {
	rows, err := r.pool.Query(ctx, `SELECT bucket, COUNT(*), SUM(due)::bigint FROM (
			SELECT due, CASE
				WHEN $1::date - invoice_date <= 0 THEN 'current'
				WHEN $1::date - invoice_date <= 30 THEN '1-30'
				WHEN $1::date - invoice_date <= 60 THEN '31-60'
				WHEN $1::date - invoice_date <= 90 THEN '61-90'
				ELSE '90+'
			END AS bucket
			FROM invoices WHERE due > 0 AND invoice_date <= $1::date
		) aged GROUP BY bucket`, asOf)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AgingBucket, error) {
		var b AgingBucket
		err := row.Scan(&b.Bucket, &b.Count, &b.Due)
		return b, err
	})
}

func (r *repository) TopDebtors(ctx context.Context, limit int) ([]Debtor, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.code, c.name, COUNT(i.id), SUM(i.due)::bigint
		FROM invoices i JOIN customers c ON c.id = i.customer_id
		WHERE i.due > 0
		GROUP BY c.id, c.code, c.name
		ORDER BY SUM(i.due) DESC, c.code
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Debtor, error) {
		var d Debtor
		err := row.Scan(&d.CustomerID, &d.Code, &d.Name, &d.Invoices, &d.Due)
		return d, err
	})
}

func (r *repository) MonthlyTrend(ctx context.Context, rg Range) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, `WITH months AS (
			SELECT to_char(m, 'YYYY-MM') AS period
			FROM generate_series(date_trunc('month', $1::date), $2::date, interval '1 month') m
		), inv AS (
			SELECT to_char(invoice_date, 'YYYY-MM') AS period, SUM(total) AS invoiced, SUM(paid) AS paid
			FROM invoices WHERE invoice_date BETWEEN $1 AND $2 GROUP BY 1
		), exp AS (
			SELECT to_char(expense_date, 'YYYY-MM') AS period, SUM(amount) AS spent
			FROM expenses WHERE expense_date BETWEEN $1 AND $2 GROUP BY 1
		)
		SELECT months.period, COALESCE(inv.invoiced, 0)::bigint, COALESCE(inv.paid, 0)::bigint, COALESCE(exp.spent, 0)::bigint
		FROM months
		LEFT JOIN inv ON inv.period = months.period
		LEFT JOIN exp ON exp.period = months.period
		ORDER BY months.period`, rg.From, rg.To)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TrendPoint, error) {
		var p TrendPoint
		err := row.Scan(&p.Period, &p.Invoiced, &p.Paid, &p.Expenses)
		return p, err
	})
}
