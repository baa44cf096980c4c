package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudibooks/kudibooks/internal/platform/db"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
	"github.com/kudibooks/kudibooks/internal/sequence"
)

var ErrNotFound = fmt.Errorf("expense %w", httpx.ErrNotFound)

type Repository interface {
	sequence.Source
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Expense, error)
	List(ctx context.Context, req ListExpensesRequest) ([]Expense, int, error)
	Create(ctx context.Context, expense Expense) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	*sequence.PGSource
	db   db.DBTX
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

const expenseColumns = `id, code, category, amount, expense_date, method, description, created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Code, &e.Category, &e.Amount, &e.Date, &e.Method, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, req ListExpensesRequest) ([]Expense, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argPos))
		args = append(args, req.Category)
		argPos++
	}
	if !req.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("expense_date >= $%d", argPos))
		args = append(args, req.From)
		argPos++
	}
	if !req.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("expense_date <= $%d", argPos))
		args = append(args, req.To)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM expenses "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM expenses %s ORDER BY expense_date DESC, code DESC LIMIT $%d OFFSET $%d`,
		expenseColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Expense, error) {
		return scanExpense(row)
	})
	return list, total, err
}

func (r *repository) Create(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO expenses (code, category, amount, expense_date, method, description) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		e.Code, e.Category, e.Amount, e.Date, e.Method, e.Description).Scan(&id)
	return id, err
}

var updatableColumns = []string{"category", "amount", "expense_date", "method", "description"}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE expenses SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range updatableColumns {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
