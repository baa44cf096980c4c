// Package sequencetest provides an in-memory sequence store for tests.
package sequencetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kudibooks/kudibooks/internal/sequence"
)

// Store keeps counters and codes in memory. Transactions are serialized by a
// single mutex, standing in for the counter row lock.
type Store struct {
	mu       sync.Mutex
	counters map[string]int64
	codes    map[sequence.Kind]map[string]struct{}
	failures []error
	txCount  int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		counters: make(map[string]int64),
		codes:    make(map[sequence.Kind]map[string]struct{}),
	}
}

// Seed registers codes as already present for kind.
func (s *Store) Seed(kind sequence.Kind, codes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range codes {
		s.set(kind)[c] = struct{}{}
	}
}

// SetCounter overrides the last value stored for prefix.
func (s *Store) SetCounter(prefix string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[prefix] = value
}

// Counter returns the last value stored for prefix.
func (s *Store) Counter(prefix string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[prefix]
}

// Codes returns the committed codes of kind.
func (s *Store) Codes(kind sequence.Kind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.codes[kind]))
	for c := range s.codes[kind] {
		out = append(out, c)
	}
	return out
}

// Transactions reports how many transactions were started.
func (s *Store) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

// FailNext makes the next len(errs) transactions fail with the given errors,
// in order, before fn runs.
func (s *Store) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// InTx implements sequence.Runner.
func (s *Store) InTx(ctx context.Context, fn func(context.Context, sequence.Source) error) error {
	return s.Do(ctx, func(ctx context.Context, tx *Tx) error {
		return fn(ctx, tx)
	})
}

// Do runs fn in a transaction. Changes made through tx are applied only when
// fn returns nil.
func (s *Store) Do(ctx context.Context, fn func(context.Context, *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}

	tx := &Tx{store: s, counters: make(map[string]int64), added: make(map[sequence.Kind][]string)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for prefix, v := range tx.counters {
		s.counters[prefix] = v
	}
	for kind, codes := range tx.added {
		for _, c := range codes {
			s.set(kind)[c] = struct{}{}
		}
	}
	return nil
}

func (s *Store) set(kind sequence.Kind) map[string]struct{} {
	m, ok := s.codes[kind]
	if !ok {
		m = make(map[string]struct{})
		s.codes[kind] = m
	}
	return m
}

// Tx is a pending transaction on a Store. It implements sequence.Source.
type Tx struct {
	store    *Store
	counters map[string]int64
	added    map[sequence.Kind][]string
}

func (t *Tx) Lock(_ context.Context, prefix string) (int64, error) {
	if v, ok := t.counters[prefix]; ok {
		return v, nil
	}
	return t.store.counters[prefix], nil
}

func (t *Tx) ExistingCodes(_ context.Context, kind sequence.Kind, prefix string) ([]string, error) {
	var out []string
	for c := range t.store.codes[kind] {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	for _, c := range t.added[kind] {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *Tx) CodeExists(_ context.Context, kind sequence.Kind, code string) (bool, error) {
	if _, ok := t.store.codes[kind][code]; ok {
		return true, nil
	}
	for _, c := range t.added[kind] {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

func (t *Tx) Advance(_ context.Context, prefix string, value int64) error {
	t.counters[prefix] = value
	return nil
}

// AddCode records an inserted row holding code, failing like a unique
// constraint when the code is already present.
func (t *Tx) AddCode(kind sequence.Kind, code string) error {
	exists, _ := t.CodeExists(context.Background(), kind, code)
	if exists {
		return fmt.Errorf("%w: duplicate %s code %s", sequence.ErrConflict, kind, code)
	}
	t.added[kind] = append(t.added[kind], code)
	return nil
}
