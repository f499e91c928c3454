package billing_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/model"
)

func threeHammers(t *testing.T) billing.Cart {
	t.Helper()
	item := hammer()
	cart, err := billing.AddLine(billing.Cart{}, item, item.Stock)
	require.NoError(t, err)
	cart, err = billing.SetQuantity(cart, 0, 3, item.Stock)
	require.NoError(t, err)
	return cart
}

func TestComputeCashExample(t *testing.T) {
	totals := billing.Compute(billing.TotalsInput{
		Cart:          threeHammers(t),
		Markup:        10,
		Discount:      5,
		PaymentMethod: model.PaymentCash,
	})
	got := totals.Format()
	require.Equal(t, "300.00", got.Subtotal)
	require.Equal(t, "30.00", got.Markup)
	require.Equal(t, "16.50", got.Discount)
	require.Equal(t, "313.50", got.GrandTotal)
	require.Equal(t, "313.50", got.Paid)
	require.Equal(t, "0.00", got.Remaining)
	require.Equal(t, "133.50", got.Profit)
	require.Equal(t, "0.00", got.NewBalance)
	require.False(t, totals.HasCustomer)
	require.True(t, totals.MarkedUpSubtotal.Equal(decimal.NewFromInt(330)))
}

func TestComputeCreditExample(t *testing.T) {
	totals := billing.Compute(billing.TotalsInput{
		Cart:          threeHammers(t),
		Markup:        10,
		Discount:      5,
		PaymentMethod: model.PaymentCredit,
		AmountPaid:    "200",
		Customer:      &model.Customer{ID: "c1", Balance: 50},
	})
	got := totals.Format()
	require.Equal(t, "200.00", got.Paid)
	require.Equal(t, "113.50", got.Remaining)
	require.Equal(t, "163.50", got.NewBalance)
	require.True(t, totals.HasCustomer)
}

func TestComputeCreditBlankAmountIsZero(t *testing.T) {
	for _, raw := range []string{"", "  ", "abc"} {
		totals := billing.Compute(billing.TotalsInput{
			Cart:          threeHammers(t),
			PaymentMethod: model.PaymentCredit,
			AmountPaid:    raw,
		})
		require.True(t, totals.Paid.IsZero(), raw)
		require.True(t, totals.Remaining.Equal(totals.GrandTotal), raw)
	}
}

func TestComputeClampsPercentages(t *testing.T) {
	cases := []struct {
		name     string
		markup   float64
		discount float64
		grand    string
	}{
		{name: "negative", markup: -5, discount: -5, grand: "300.00"},
		{name: "over hundred", markup: 150, discount: 0, grand: "600.00"},
		{name: "full discount", markup: 0, discount: 250, grand: "0.00"},
		{name: "nan", markup: math.NaN(), discount: math.Inf(1), grand: "300.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals := billing.Compute(billing.TotalsInput{
				Cart:     threeHammers(t),
				Markup:   tc.markup,
				Discount: tc.discount,
			})
			require.Equal(t, tc.grand, totals.Format().GrandTotal)
		})
	}
}

func TestComputeMarkupBeforeDiscount(t *testing.T) {
	subtotals := []int64{0, 1, 99, 300, 12345}
	pcts := []float64{0, 2.5, 10, 33.3, 100}
	for _, s := range subtotals {
		item := model.Item{ID: "x", Name: "x", SellingPrice: float64(s), Stock: 1}
		cart, err := billing.AddLine(billing.Cart{}, item, 1)
		require.NoError(t, err)
		for _, m := range pcts {
			for _, d := range pcts {
				totals := billing.Compute(billing.TotalsInput{Cart: cart, Markup: m, Discount: d, PaymentMethod: model.PaymentCash})

				sub := decimal.NewFromInt(s)
				mp := decimal.NewFromFloat(m).Div(decimal.NewFromInt(100))
				dp := decimal.NewFromFloat(d).Div(decimal.NewFromInt(100))
				want := sub.Add(sub.Mul(mp)).Mul(decimal.NewFromInt(1).Sub(dp))

				require.True(t, totals.GrandTotal.Round(6).Equal(want.Round(6)), "s=%d m=%v d=%v got=%s want=%s", s, m, d, totals.GrandTotal, want)
				require.True(t, totals.Remaining.IsZero())
				require.True(t, totals.Paid.Equal(totals.GrandTotal))
			}
		}
	}
}

func TestParseAmount(t *testing.T) {
	require.Equal(t, "12.34", billing.ParseAmount(" 12.34 ").String())
	require.True(t, billing.ParseAmount("").IsZero())
	require.True(t, billing.ParseAmount("1,000").IsZero())
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	require.Equal(t, "0.13", billing.Round2(decimal.RequireFromString("0.125")).StringFixed(2))
	require.Equal(t, "-0.13", billing.Round2(decimal.RequireFromString("-0.125")).StringFixed(2))
}
