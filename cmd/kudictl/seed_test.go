package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
	"github.com/kudibooks/kudibooks/internal/shared"
	_ "github.com/kudibooks/kudibooks/testing"
)

const sampleSeed = `
settings:
  business.name: Kudi Signs
customers:
  - name: Ada Prints
    email: ada@example.com
products:
  - name: Flex banner
    unit: sqft
    unit_price: "200"
    minimum_amount: "1500.50"
expenses:
  - category: rent
    amount: "50000"
    date: 2026-03-01
    method: transfer
  - category: fuel
    amount: "2500"
    date: 2026-03-02
`

func TestParseSeed(t *testing.T) {
	plan, err := parseSeed(strings.NewReader(sampleSeed), money.DefaultCurrency)
	require.NoError(t, err)

	require.Equal(t, "Kudi Signs", plan.Settings["business.name"])
	require.Len(t, plan.Customers, 1)
	require.Len(t, plan.Products, 1)
	require.Equal(t, money.FromMinor(20000), plan.Products[0].UnitPrice)
	require.Equal(t, money.FromMinor(150050), plan.Products[0].MinimumAmount)
	require.Len(t, plan.Expenses, 2)
	require.Equal(t, money.FromMinor(5000000), plan.Expenses[0].Amount)
	require.Equal(t, shared.MethodTransfer, plan.Expenses[0].Method)
	require.Equal(t, shared.MethodCash, plan.Expenses[1].Method, "method defaults to cash")
}

func TestParseSeedUsesConfiguredCurrency(t *testing.T) {
	plan, err := parseSeed(strings.NewReader(`
settings:
  currency.code: JPY
products:
  - name: Sticker
    unit_price: "150"
`), money.DefaultCurrency)
	require.NoError(t, err)
	require.Equal(t, money.FromMinor(150), plan.Products[0].UnitPrice)
}

func TestParseSeedRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "vendors: []",
		"bad amount":      "products:\n  - name: Banner\n    unit_price: abc",
		"too many places": "products:\n  - name: Banner\n    unit_price: \"1.234\"",
		"missing name":    "customers:\n  - email: ada@example.com",
		"bad method":      "expenses:\n  - category: rent\n    amount: \"10\"\n    method: cheque",
		"bad date":        "expenses:\n  - category: rent\n    amount: \"10\"\n    date: 01/03/2026",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(input), money.DefaultCurrency)
			require.Error(t, err)
		})
	}
}

func TestParseSeedReportsFieldErrors(t *testing.T) {
	_, err := parseSeed(strings.NewReader("customers:\n  - name: Ada\n    email: not-an-email"), money.DefaultCurrency)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.ErrorContains(t, err, "customers[0]")
}

func TestEmptySeed(t *testing.T) {
	plan, err := parseSeed(strings.NewReader(""), money.DefaultCurrency)
	require.NoError(t, err)
	require.Empty(t, plan.Customers)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "status"},
		{"seed"},
		{"code", "next"},
		{"jobs", "trigger"},
		{"jobs", "stats"},
		{"invoice", "recompute"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		require.Equal(t, path[len(path)-1], cmd.Name())
	}
}
