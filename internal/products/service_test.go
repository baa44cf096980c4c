package products

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/platform/retry"
	"github.com/kudibooks/kudibooks/internal/sequence"
	"github.com/kudibooks/kudibooks/internal/sequence/sequencetest"
	"github.com/kudibooks/kudibooks/internal/settings"
)

type memoryRepo struct {
	*sequencetest.Tx
	store    *sequencetest.Store
	products map[int64]Product
	nextID   int64
	failNext error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{store: sequencetest.NewStore(), products: map[int64]Product{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return r.store.Do(ctx, func(ctx context.Context, tx *sequencetest.Tx) error {
		staged := &memoryRepo{Tx: tx, store: r.store, products: map[int64]Product{}, nextID: r.nextID, failNext: r.failNext}
		for id, p := range r.products {
			staged.products[id] = p
		}
		if err := fn(ctx, staged); err != nil {
			r.failNext = staged.failNext
			return err
		}
		r.products, r.nextID, r.failNext = staged.products, staged.nextID, staged.failNext
		return nil
	})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memoryRepo) GetMany(ctx context.Context, ids []int64) (map[int64]Product, error) {
	out := map[int64]Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if req.Active != nil && p.Active != *req.Active {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, p Product) (int64, error) {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return 0, err
	}
	if err := r.Tx.AddCode(sequence.KindProduct, p.Code); err != nil {
		return 0, err
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.products[p.ID] = p
	return p.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["name"].(string); ok {
		p.Name = v
	}
	if v, ok := updates["unit_price"].(money.Money); ok {
		p.UnitPrice = v
	}
	if v, ok := updates["minimum_amount"].(money.Money); ok {
		p.MinimumAmount = v
	}
	if v, ok := updates["active"].(bool); ok {
		p.Active = v
	}
	r.products[id] = p
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond}
	gen := sequence.NewGenerator(repo.store, policy, nil, nil)
	return NewService(repo, gen, settings.Static{}, nil, slog.New(slog.DiscardHandler))
}

func TestCreateProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), CreateProductRequest{Name: " Banner ", Unit: "sqft", UnitPrice: 20000, MinimumAmount: 150000})
	require.NoError(t, err)
	require.Equal(t, "PR-0001", p.Code)
	require.Equal(t, "Banner", p.Name)
	require.True(t, p.Active)
	require.Equal(t, money.FromMinor(150000), p.MinimumAmount)
}

func TestCreateProductInsertFailureLeavesCounter(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	repo.failNext = errors.New("check constraint")

	_, err := svc.Create(context.Background(), CreateProductRequest{Name: "Flyer", UnitPrice: 500})
	require.Error(t, err)
	require.Zero(t, repo.store.Counter("PR-"))

	p, err := svc.Create(context.Background(), CreateProductRequest{Name: "Flyer", UnitPrice: 500})
	require.NoError(t, err)
	require.Equal(t, "PR-0001", p.Code)
}

func TestCreateProductExhaustionSurfaces(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	repo.store.FailNext(sequence.ErrConflict, sequence.ErrConflict, sequence.ErrConflict)

	_, err := svc.Create(context.Background(), CreateProductRequest{Name: "Flyer", UnitPrice: 500})
	require.ErrorIs(t, err, sequence.ErrCodeGenerationExhausted)
	require.Empty(t, repo.products)
}

func TestUpdateProductPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateProductRequest{Name: "Banner", UnitPrice: 20000})
	require.NoError(t, err)

	price := money.FromMinor(25000)
	inactive := false
	updated, err := svc.Update(ctx, p.ID, UpdateProductRequest{UnitPrice: &price, Active: &inactive})
	require.NoError(t, err)
	require.Equal(t, price, updated.UnitPrice)
	require.False(t, updated.Active)

	_, err = svc.Update(ctx, 404, UpdateProductRequest{UnitPrice: &price})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProductHandlers(t *testing.T) {
	repo := newMemoryRepo()
	r := chi.NewRouter()
	NewHandler(slog.New(slog.DiscardHandler), newTestService(repo)).MountRoutes(r)

	body, _ := json.Marshal(map[string]any{"name": "Sticker", "unit_price": 1500})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader([]byte(`{"name":"x","unit_price":-1}`))))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/next-code", nil))
	require.JSONEq(t, `{"code":"PR-0002"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/products/1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
