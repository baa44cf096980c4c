package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kudibooks/kudibooks/internal/sequence"
	"github.com/kudibooks/kudibooks/internal/settings"
	"github.com/kudibooks/kudibooks/internal/shared"
)

type Service struct {
	repo     Repository
	codes    *sequence.Generator
	settings settings.Reader
	audit    shared.Auditor
	reports  shared.Bumper
	logger   *slog.Logger
}

func NewService(repo Repository, codes *sequence.Generator, settings settings.Reader, audit shared.Auditor, reports shared.Bumper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, codes: codes, settings: settings, audit: audit, reports: reports, logger: logger}
}

func (s *Service) scope(ctx context.Context) (sequence.Scope, error) {
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return sequence.Scope{}, err
	}
	return snap.Scope(sequence.KindExpense), nil
}

func (s *Service) Create(ctx context.Context, req CreateExpenseRequest) (*Expense, error) {
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return nil, fmt.Errorf("parse expense date: %w", err)
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	expense := Expense{
		Category:    strings.TrimSpace(req.Category),
		Amount:      req.Amount,
		Date:        date,
		Method:      req.Method,
		Description: strings.TrimSpace(req.Description),
	}
	_, err = sequence.Claim(ctx, s.codes, scope, s.repo.WithTx, func(ctx context.Context, repo Repository, code string) error {
		expense.Code = code
		id, err := repo.Create(ctx, expense)
		if err != nil {
			return err
		}
		expense.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	s.changed(ctx, "expense.create", expense.ID, map[string]any{"code": expense.Code, "amount": expense.Amount})
	return s.repo.Get(ctx, expense.ID)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateExpenseRequest) (*Expense, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}

	updates := make(map[string]any)
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.Date != nil {
		date, err := time.Parse(time.DateOnly, *req.Date)
		if err != nil {
			return nil, fmt.Errorf("parse expense date: %w", err)
		}
		updates["expense_date"] = date
	}
	if req.Method != nil {
		updates["method"] = *req.Method
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	s.changed(ctx, "expense.update", id, updates)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.changed(ctx, "expense.delete", id, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Expense, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListExpensesRequest) ([]Expense, int, error) {
	return s.repo.List(ctx, req)
}

// NextCode reserves the next expense code.
func (s *Service) NextCode(ctx context.Context) (string, error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return "", err
	}
	return s.codes.Generate(ctx, scope)
}

// changed audits a committed write and invalidates cached reports.
func (s *Service) changed(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.reports != nil {
		if err := s.reports.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "expense", EntityID: strconv.FormatInt(id, 10), Meta: meta})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
