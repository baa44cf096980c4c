package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kudibooks/kudibooks/internal/platform/db"
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

func (s *Service) scope(ctx context.Context) (sequence.Scope, settings.Snapshot, error) {
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return sequence.Scope{}, settings.Snapshot{}, err
	}
	return snap.Scope(sequence.KindCustomer), snap, nil
}

// Create stores a customer under a freshly generated code.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	scope, _, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = TypeRegular
	}

	customer := Customer{
		Name:    strings.TrimSpace(req.Name),
		Type:    req.Type,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	_, err = sequence.Claim(ctx, s.codes, scope, s.repo.WithTx, func(ctx context.Context, repo Repository, code string) error {
		customer.Code = code
		id, err := repo.Create(ctx, customer)
		if err != nil {
			return err
		}
		customer.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.record(ctx, "customer.create", customer.ID, map[string]any{"code": customer.Code})
	return s.repo.Get(ctx, customer.ID)
}

// EnsureWalkIn returns the walk-in customer, creating it under the configured
// walk-in code (by default the first code of the customer scope) when absent.
func (s *Service) EnsureWalkIn(ctx context.Context) (*Customer, error) {
	_, snap, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	code := snap.WalkInCustomerCode()

	existing, err := s.repo.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get walk-in customer: %w", err)
	}

	walkIn := Customer{Code: code, Name: "Walk-in Customer", Type: TypeWalkIn}
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, walkIn)
		if err != nil {
			return err
		}
		walkIn.ID = id
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return s.repo.GetByCode(ctx, code)
		}
		return nil, fmt.Errorf("create walk-in customer: %w", err)
	}

	s.logger.Info("walk-in customer created", slog.String("code", code))
	s.record(ctx, "customer.create", walkIn.ID, map[string]any{"code": code, "type": string(TypeWalkIn)})
	return s.repo.Get(ctx, walkIn.ID)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}

	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}

	s.record(ctx, "customer.update", id, updates)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	s.record(ctx, "customer.delete", id, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Customer, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.List(ctx, req)
}

// NextCode reserves the next customer code.
func (s *Service) NextCode(ctx context.Context) (string, error) {
	scope, _, err := s.scope(ctx)
	if err != nil {
		return "", err
	}
	return s.codes.Generate(ctx, scope)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "customer",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
