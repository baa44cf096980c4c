package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kudibooks/kudibooks/internal/customers"
	"github.com/kudibooks/kudibooks/internal/expenses"
	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
	"github.com/kudibooks/kudibooks/internal/products"
	"github.com/kudibooks/kudibooks/internal/settings"
	"github.com/kudibooks/kudibooks/internal/shared"
)

// seedFile is the YAML layout accepted by `kudictl seed`. Amounts are in
// major units of the currency, e.g. "1500.50".
type seedFile struct {
	Settings  map[string]string `yaml:"settings"`
	Customers []struct {
		Name    string `yaml:"name"`
		Email   string `yaml:"email"`
		Phone   string `yaml:"phone"`
		Address string `yaml:"address"`
	} `yaml:"customers"`
	Products []struct {
		Name          string `yaml:"name"`
		Unit          string `yaml:"unit"`
		UnitPrice     string `yaml:"unit_price"`
		MinimumAmount string `yaml:"minimum_amount"`
	} `yaml:"products"`
	Expenses []struct {
		Category    string `yaml:"category"`
		Amount      string `yaml:"amount"`
		Date        string `yaml:"date"`
		Method      string `yaml:"method"`
		Description string `yaml:"description"`
	} `yaml:"expenses"`
}

// seedPlan is a validated seed file ready to apply.
type seedPlan struct {
	Settings  map[string]string
	Customers []customers.CreateCustomerRequest
	Products  []products.CreateProductRequest
	Expenses  []expenses.CreateExpenseRequest
}

// parseSeed decodes and validates a seed file. Amounts are read in the
// currency the file configures, falling back to currency.
func parseSeed(r io.Reader, currency string) (*seedPlan, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if code := file.Settings[settings.KeyCurrencyCode]; code != "" {
		currency = code
	}

	plan := &seedPlan{Settings: file.Settings}
	for i, c := range file.Customers {
		req := customers.CreateCustomerRequest{Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address}
		if err := httpx.Validate(req); err != nil {
			return nil, fmt.Errorf("customers[%d]: %w", i, err)
		}
		plan.Customers = append(plan.Customers, req)
	}
	for i, p := range file.Products {
		price, err := parseAmount(p.UnitPrice, currency)
		if err != nil {
			return nil, fmt.Errorf("products[%d].unit_price: %w", i, err)
		}
		minimum, err := parseAmount(p.MinimumAmount, currency)
		if err != nil {
			return nil, fmt.Errorf("products[%d].minimum_amount: %w", i, err)
		}
		req := products.CreateProductRequest{Name: p.Name, Unit: p.Unit, UnitPrice: price, MinimumAmount: minimum}
		if err := httpx.Validate(req); err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, err)
		}
		plan.Products = append(plan.Products, req)
	}
	for i, e := range file.Expenses {
		amount, err := parseAmount(e.Amount, currency)
		if err != nil {
			return nil, fmt.Errorf("expenses[%d].amount: %w", i, err)
		}
		date := e.Date
		if date == "" {
			date = time.Now().Format(time.DateOnly)
		}
		req := expenses.CreateExpenseRequest{
			Category:    e.Category,
			Amount:      amount,
			Date:        date,
			Method:      shared.PaymentMethod(e.Method),
			Description: e.Description,
		}
		if req.Method == "" {
			req.Method = shared.MethodCash
		}
		if err := httpx.Validate(req); err != nil {
			return nil, fmt.Errorf("expenses[%d]: %w", i, err)
		}
		plan.Expenses = append(plan.Expenses, req)
	}
	return plan, nil
}

func parseAmount(v, currency string) (money.Money, error) {
	if v == "" {
		return 0, nil
	}
	return money.Parse(v, currency)
}

func newSeedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load settings, customers, products and expenses from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			plan, err := parseSeed(f, money.DefaultCurrency)
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			return applySeed(cmd.Context(), cmd.OutOrStdout(), rt, plan)
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "seed.yaml", "seed file to load")
	return cmd
}

func applySeed(ctx context.Context, out io.Writer, rt *runtime, plan *seedPlan) error {
	ctx = shared.ContextWithActor(ctx, "kudictl")
	if len(plan.Settings) > 0 {
		if _, err := rt.services.Settings.Update(ctx, plan.Settings); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		fmt.Fprintf(out, "settings: %d keys\n", len(plan.Settings))
	}
	walkIn, err := rt.services.Customers.EnsureWalkIn(ctx)
	if err != nil {
		return fmt.Errorf("walk-in customer: %w", err)
	}
	fmt.Fprintf(out, "customer %s %s\n", walkIn.Code, walkIn.Name)
	for _, req := range plan.Customers {
		c, err := rt.services.Customers.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("customer %q: %w", req.Name, err)
		}
		fmt.Fprintf(out, "customer %s %s\n", c.Code, c.Name)
	}
	for _, req := range plan.Products {
		p, err := rt.services.Products.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("product %q: %w", req.Name, err)
		}
		fmt.Fprintf(out, "product %s %s\n", p.Code, p.Name)
	}
	for _, req := range plan.Expenses {
		e, err := rt.services.Expenses.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("expense %q: %w", req.Category, err)
		}
		fmt.Fprintf(out, "expense %s %s\n", e.Code, e.Category)
	}
	return nil
}
