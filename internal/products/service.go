package products

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kudibooks/kudibooks/internal/sequence"
	"github.com/kudibooks/kudibooks/internal/settings"
	"github.com/kudibooks/kudibooks/internal/shared"
)

type Service struct {
	repo     Repository
	codes    *sequence.Generator
	settings settings.Reader
	audit    shared.Auditor
	logger   *slog.Logger
}

func NewService(repo Repository, codes *sequence.Generator, settings settings.Reader, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, codes: codes, settings: settings, audit: audit, logger: logger}
}

func (s *Service) scope(ctx context.Context) (sequence.Scope, error) {
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return sequence.Scope{}, err
	}
	return snap.Scope(sequence.KindProduct), nil
}

func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	product := Product{
		Name:          strings.TrimSpace(req.Name),
		Unit:          req.Unit,
		UnitPrice:     req.UnitPrice,
		MinimumAmount: req.MinimumAmount,
		Active:        true,
	}
	_, err = sequence.Claim(ctx, s.codes, scope, s.repo.WithTx, func(ctx context.Context, repo Repository, code string) error {
		product.Code = code
		id, err := repo.Create(ctx, product)
		if err != nil {
			return err
		}
		product.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.record(ctx, "product.create", product.ID, map[string]any{"code": product.Code})
	return s.repo.Get(ctx, product.ID)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if req.UnitPrice != nil {
		updates["unit_price"] = *req.UnitPrice
	}
	if req.MinimumAmount != nil {
		updates["minimum_amount"] = *req.MinimumAmount
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return existing, nil
	}

	// Prices already on invoices are snapshots and stay as they were.
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.record(ctx, "product.update", id, updates)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.record(ctx, "product.delete", id, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// GetMany loads products by id. Missing ids are absent from the map.
func (s *Service) GetMany(ctx context.Context, ids []int64) (map[int64]Product, error) {
	return s.repo.GetMany(ctx, ids)
}

func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	return s.repo.List(ctx, req)
}

// NextCode reserves the next product code.
func (s *Service) NextCode(ctx context.Context) (string, error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return "", err
	}
	return s.codes.Generate(ctx, scope)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "product", EntityID: strconv.FormatInt(id, 10), Meta: meta})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
