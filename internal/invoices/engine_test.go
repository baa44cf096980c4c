package invoices

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kudibooks/kudibooks/internal/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(unitPrice money.Money, qty int64) LineItem {
	return LineItem{ProductID: 1, Width: dec("1"), Height: dec("1"), UnitPrice: unitPrice, Quantity: qty}
}

func TestLineAmountScenario(t *testing.T) {
	got := LineAmount(dec("3.0"), dec("2.0"), 20000, 2)
	require.Equal(t, money.FromMinor(240000), got)
}

func TestLineAmountRoundsHalfAwayFromZero(t *testing.T) {
	// 0.5 × 1 × 1 × 1 = 0.5 → 1
	assert.Equal(t, money.FromMinor(1), LineAmount(dec("0.5"), dec("1"), 1, 1))
	// 1.25 × 1 × 3 = 3.75 → 4
	assert.Equal(t, money.FromMinor(4), LineAmount(dec("1.25"), dec("1"), 3, 1))
	// 1.1 × 1 × 3 = 3.3 → 3
	assert.Equal(t, money.FromMinor(3), LineAmount(dec("1.1"), dec("1"), 3, 1))
}

func TestRecomputeLineAmountDefaultsDimensions(t *testing.T) {
	li := LineItem{UnitPrice: 500, Quantity: 3}
	RecomputeLineAmount(&li)
	require.True(t, li.Width.Equal(decimal.NewFromInt(1)))
	require.True(t, li.Height.Equal(decimal.NewFromInt(1)))
	require.Equal(t, money.FromMinor(1500), li.Amount)
}

func TestRoundTo(t *testing.T) {
	cases := map[money.Money]money.Money{
		0:     0,
		49:    0,
		50:    100,
		149:   100,
		12345: 12300,
		12350: 12400,
		-49:   0,
		-50:   -100,
		-151:  -200,
	}
	for in, want := range cases {
		assert.Equal(t, want, RoundTo(in, 100), "RoundTo(%d)", in)
	}
	assert.Equal(t, money.FromMinor(77), RoundTo(77, 0))
}

func TestRecomputeInvoiceTotals(t *testing.T) {
	inv := &Invoice{
		Discount: 1000,
		Items:    []LineItem{item(12345, 1), item(2000, 2)},
	}
	Recompute(inv, DefaultGranularity)

	require.Equal(t, money.FromMinor(16345), inv.Subtotal)
	// 16345 - 1000 = 15345 → 15300
	require.Equal(t, money.FromMinor(15300), inv.Total)
	require.Equal(t, money.FromMinor(-45), inv.RoundOff)
	require.Equal(t, StatusUnpaid, inv.Status)
	require.Equal(t, inv.Total, inv.Due)
}

func TestRecomputeAddsMinimumChargeShortfall(t *testing.T) {
	small := item(1000, 1)
	small.MinimumAmount = 5000
	inv := &Invoice{Items: []LineItem{small, item(3000, 1)}}
	Recompute(inv, DefaultGranularity)

	require.Equal(t, money.FromMinor(4000), inv.Subtotal)
	require.Equal(t, money.FromMinor(1000), inv.Items[0].Amount, "line display keeps its own amount")
	require.Equal(t, money.FromMinor(8000), inv.Total)
	require.Zero(t, inv.RoundOff)
}

func TestRecomputeClampsNegativeDiscount(t *testing.T) {
	inv := &Invoice{Discount: -500, Items: []LineItem{item(1000, 1)}}
	Recompute(inv, DefaultGranularity)
	require.Zero(t, inv.Discount)
	require.Equal(t, money.FromMinor(1000), inv.Total)
}

func TestDiscountAboveSubtotalClampsDue(t *testing.T) {
	inv := &Invoice{Discount: 5000, Items: []LineItem{item(1000, 1)}}
	Recompute(inv, DefaultGranularity)
	require.Equal(t, money.FromMinor(-4000), inv.Total)
	require.Zero(t, inv.Due)
	require.Equal(t, StatusUnpaid, inv.Status)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	inv := &Invoice{
		Discount: 333,
		Items: []LineItem{
			{Width: dec("2.5"), Height: dec("1.3"), UnitPrice: 777, Quantity: 3, MinimumAmount: 20000},
			item(999, 7),
		},
		Payments: []Payment{{Amount: 1000}},
	}
	Recompute(inv, DefaultGranularity)
	first := *inv
	Recompute(inv, DefaultGranularity)
	RecomputeInvoiceTotals(inv, DefaultGranularity)

	require.Equal(t, first.Subtotal, inv.Subtotal)
	require.Equal(t, first.RoundOff, inv.RoundOff)
	require.Equal(t, first.Total, inv.Total)
	require.Equal(t, first.Due, inv.Due)
	require.Equal(t, first.Status, inv.Status)
}

func TestRoundingInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		inv := &Invoice{
			Discount: money.FromMinor(rng.Int63n(50000)),
			Items: []LineItem{
				item(money.FromMinor(rng.Int63n(100000)), rng.Int63n(5)+1),
				item(money.FromMinor(rng.Int63n(100000)), rng.Int63n(5)+1),
			},
		}
		Recompute(inv, DefaultGranularity)
		require.Zero(t, inv.Total%100, "total %d", inv.Total)
		require.Less(t, inv.RoundOff.Abs(), money.FromMinor(100))
	}
}

func TestDueAndStatusConsistency(t *testing.T) {
	cases := []struct {
		name     string
		payments []money.Money
		due      money.Money
		status   Status
	}{
		{"none", nil, 10000, StatusUnpaid},
		{"partial", []money.Money{4000}, 6000, StatusPartial},
		{"one short is paid", []money.Money{5000, 4999}, 1, StatusPaid},
		{"exact", []money.Money{10000}, 0, StatusPaid},
		{"two short", []money.Money{9998}, 2, StatusPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := &Invoice{Items: []LineItem{item(10000, 1)}}
			for _, amt := range tc.payments {
				inv.Payments = append(inv.Payments, Payment{Amount: amt})
			}
			Recompute(inv, DefaultGranularity)
			require.Equal(t, tc.due, inv.Due)
			require.Equal(t, money.Max(0, inv.Total.Sub(inv.Paid)), inv.Due)
			require.Equal(t, tc.status, inv.Status)
		})
	}
}

func TestValidateRequiresItems(t *testing.T) {
	inv := &Invoice{}
	Recompute(inv, DefaultGranularity)
	err := Validate(inv, false)
	verr, ok := AsValidation(err)
	require.True(t, ok)
	require.Equal(t, MsgNoItems, verr.Message)
}

func TestValidateRejectsOverpayment(t *testing.T) {
	inv := &Invoice{Items: []LineItem{item(10000, 1)}, Payments: []Payment{{Amount: 6000}, {Amount: 4001}}}
	Recompute(inv, DefaultGranularity)
	require.Equal(t, money.FromMinor(10000), inv.Total)

	verr, ok := AsValidation(Validate(inv, false))
	require.True(t, ok)
	require.Equal(t, MsgPaymentsExceed, verr.Message)
	require.Equal(t, money.FromMinor(1), verr.Excess)
	require.Equal(t, money.FromMinor(1), verr.ProblemExtensions()["excess"])
}

func TestValidateWalkIn(t *testing.T) {
	inv := &Invoice{Items: []LineItem{item(25000, 2)}}
	Recompute(inv, DefaultGranularity)
	require.Equal(t, money.FromMinor(50000), inv.Total)

	verr, ok := AsValidation(Validate(inv, true))
	require.True(t, ok)
	require.Equal(t, MsgWalkInMustPay, verr.Message)

	inv.AddPayment(Payment{Amount: 20000})
	_, ok = AsValidation(Validate(inv, true))
	require.True(t, ok)

	inv.AddPayment(Payment{Amount: 30000})
	require.NoError(t, Validate(inv, true))
	require.Equal(t, StatusPaid, inv.Status)

	require.NoError(t, Validate(&Invoice{Items: inv.Items, Total: inv.Total}, false), "regular customers may owe")
}

func TestValidateRejectsBadLines(t *testing.T) {
	inv := &Invoice{Items: []LineItem{{Width: dec("-1"), Height: dec("1"), UnitPrice: 100, Quantity: 1}}}
	Recompute(inv, DefaultGranularity)
	verr, ok := AsValidation(Validate(inv, false))
	require.True(t, ok)
	require.Equal(t, "items[0].width", verr.Field)

	inv = &Invoice{Items: []LineItem{item(100, 0)}}
	Recompute(inv, DefaultGranularity)
	verr, ok = AsValidation(Validate(inv, false))
	require.True(t, ok)
	require.Equal(t, "items[0].quantity", verr.Field)
}

func TestValidateRejectsOverflowingLine(t *testing.T) {
	inv := &Invoice{Items: []LineItem{item(1_000_000_000_000, 10_000_000)}}
	Recompute(inv, DefaultGranularity)
	verr, ok := AsValidation(Validate(inv, false))
	require.True(t, ok)
	require.Equal(t, "items[0].amount", verr.Field)
	require.Equal(t, MsgTooLarge, verr.Message)

	inv = &Invoice{Items: []LineItem{item(MaxAmount, 1)}}
	Recompute(inv, DefaultGranularity)
	require.NoError(t, Validate(inv, false))
	require.Equal(t, MaxAmount, inv.Total)
}

func TestValidateCapsDiscountAndPayments(t *testing.T) {
	inv := &Invoice{Items: []LineItem{item(10000, 1)}, Discount: MaxAmount + 1}
	Recompute(inv, DefaultGranularity)
	verr, ok := AsValidation(Validate(inv, false))
	require.True(t, ok)
	require.Equal(t, "discount", verr.Field)

	inv = &Invoice{Items: []LineItem{item(10000, 1)}, Payments: []Payment{{Amount: MaxAmount + 1}}}
	Recompute(inv, DefaultGranularity)
	verr, ok = AsValidation(Validate(inv, false))
	require.True(t, ok)
	require.Equal(t, "payments[0].amount", verr.Field)
	require.Equal(t, MsgTooLarge, verr.Message)
}

func TestValidateRejectsUnstorableDimensions(t *testing.T) {
	cases := []struct {
		width, height string
		field         string
	}{
		{"1.00005", "1", "items[0].width"},
		{"1", "100000000", "items[0].height"},
		{"123456789", "1", "items[0].width"},
	}
	for _, tc := range cases {
		inv := &Invoice{Items: []LineItem{{Width: dec(tc.width), Height: dec(tc.height), UnitPrice: 10_000_000, Quantity: 1}}}
		Recompute(inv, DefaultGranularity)
		verr, ok := AsValidation(Validate(inv, false))
		require.True(t, ok, tc.width+"x"+tc.height)
		require.Equal(t, tc.field, verr.Field)
		require.Equal(t, MsgBadDimension, verr.Message)
	}

	inv := &Invoice{Items: []LineItem{{Width: dec("1.00050"), Height: dec("99999999.9999"), UnitPrice: 1, Quantity: 1}}}
	Recompute(inv, DefaultGranularity)
	require.NoError(t, Validate(inv, false))

	// what is stored is what was computed
	stored := inv.Items[0]
	stored.Width = stored.Width.Round(4)
	stored.Height = stored.Height.Round(4)
	RecomputeLineAmount(&stored)
	require.Equal(t, inv.Items[0].Amount, stored.Amount)
}

func TestRemovePaymentRefusesRecorded(t *testing.T) {
	inv := &Invoice{Items: []LineItem{item(10000, 1)}, Payments: []Payment{{ID: 9, Amount: 3000}}}
	Recompute(inv, DefaultGranularity)
	inv.AddPayment(Payment{ID: 44, Amount: 2000})
	require.Zero(t, inv.Payments[1].ID)
	require.Equal(t, money.FromMinor(5000), inv.Paid)

	require.ErrorIs(t, inv.RemovePayment(0), ErrPaymentImmutable)
	require.NoError(t, inv.RemovePayment(1))
	require.Equal(t, money.FromMinor(3000), inv.Paid)
	require.Error(t, inv.RemovePayment(5))
}

func TestAddAndRemoveItem(t *testing.T) {
	inv := &Invoice{}
	inv.AddItem(item(1000, 1), DefaultGranularity)
	inv.AddItem(item(2000, 1), DefaultGranularity)
	require.Equal(t, money.FromMinor(3000), inv.Total)
	require.NoError(t, inv.RemoveItem(0, DefaultGranularity))
	require.Equal(t, money.FromMinor(2000), inv.Total)
	require.Error(t, inv.RemoveItem(3, DefaultGranularity))
}

func TestStatusBadges(t *testing.T) {
	for _, s := range Statuses() {
		b := s.Badge()
		require.NotEmpty(t, b.Label)
		require.NotEmpty(t, b.Color)
		require.NotEmpty(t, b.Icon)
	}
	require.Equal(t, "success", StatusPaid.Color())
	require.Panics(t, func() { Status("void").Badge() })
	_, err := ParseStatus("void")
	require.Error(t, err)
}
