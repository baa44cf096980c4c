package customers

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

var (
	ErrNotFound      = fmt.Errorf("customer %w", httpx.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("customer %w", httpx.ErrDuplicate)
	ErrInUse         = fmt.Errorf("customer has invoices: %w", httpx.ErrConflict)
)

// Repository persists customers. Inside WithTx it also acts as the code
// source for the customer sequence.
type Repository interface {
	sequence.Source
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByCode(ctx context.Context, code string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	*sequence.PGSource
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{
		PGSource: sequence.NewPGSource(pool),
		db:       pool,
		pool:     pool,
	}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		repoTx := &repository{
			PGSource: sequence.NewPGSource(tx),
			db:       tx,
			pool:     r.pool,
		}
		return fn(ctx, repoTx)
	})
}

const customerColumns = `id, code, name, type, email, phone, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Type, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE code = $1`, code))
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, req.Type)
		argPos++
	}

	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", argPos, argPos, argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY code LIMIT $%d OFFSET $%d`,
		customerColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Customer, error) {
		c, err := scanCustomer(row)
		if err != nil {
			return Customer{}, err
		}
		return *c, nil
	})
	return customers, total, err
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO customers (code, name, type, email, phone, address) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.Code, c.Name, c.Type, c.Email, c.Phone, c.Address).Scan(&id)
	return id, err
}

var updatableColumns = []string{"name", "email", "phone", "address", "type"}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE customers SET updated_at = NOW()"
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
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
