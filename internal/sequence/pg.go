package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudibooks/kudibooks/internal/platform/db"
)

// PGSource implements Source over a pgx querier, normally a pgx.Tx.
type PGSource struct {
	q db.DBTX
}

// NewPGSource binds a source to q.
func NewPGSource(q db.DBTX) *PGSource {
	return &PGSource{q: q}
}

func (s *PGSource) Lock(ctx context.Context, prefix string) (int64, error) {
	if _, err := s.q.Exec(ctx,
		`INSERT INTO code_sequences (prefix, last_value) VALUES ($1, 0) ON CONFLICT (prefix) DO NOTHING`,
		prefix); err != nil {
		return 0, err
	}
	var last int64
	err := s.q.QueryRow(ctx,
		`SELECT last_value FROM code_sequences WHERE prefix = $1 FOR UPDATE`,
		prefix).Scan(&last)
	return last, err
}

func (s *PGSource) ExistingCodes(ctx context.Context, kind Kind, prefix string) ([]string, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, fmt.Sprintf(`SELECT code FROM %s WHERE starts_with(code, $1)`, table), prefix)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PGSource) CodeExists(ctx context.Context, kind Kind, code string) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var exists bool
	err = s.q.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE code = $1)`, table), code).Scan(&exists)
	return exists, err
}

func (s *PGSource) Advance(ctx context.Context, prefix string, value int64) error {
	_, err := s.q.Exec(ctx,
		`UPDATE code_sequences SET last_value = $2, updated_at = NOW() WHERE prefix = $1`,
		prefix, value)
	return err
}

func tableFor(kind Kind) (string, error) {
	table := kind.Table()
	if table == "" {
		return "", fmt.Errorf("sequence: unknown kind %q", kind)
	}
	return table, nil
}

// PGRunner opens transactions on a pool.
type PGRunner struct {
	pool *pgxpool.Pool
}

// NewPGRunner returns a Runner backed by pool.
func NewPGRunner(pool *pgxpool.Pool) *PGRunner {
	return &PGRunner{pool: pool}
}

func (r *PGRunner) InTx(ctx context.Context, fn func(context.Context, Source) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewPGSource(tx))
	})
}
