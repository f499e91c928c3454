package billing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-billing/internal/model"
)

var hundred = decimal.NewFromInt(100)

// TotalsInput is everything the calculator reads. AmountPaid is the raw text
// entered for credit payments; it is ignored for cash.
type TotalsInput struct {
	Cart          Cart
	Markup        float64
	Discount      float64
	PaymentMethod model.PaymentMethod
	AmountPaid    string
	Customer      *model.Customer
}

// Totals holds unrounded results. Round only through Format or money.
type Totals struct {
	Subtotal         decimal.Decimal
	MarkupPct        decimal.Decimal
	MarkupAmount     decimal.Decimal
	MarkedUpSubtotal decimal.Decimal
	DiscountPct      decimal.Decimal
	DiscountAmount   decimal.Decimal
	GrandTotal       decimal.Decimal
	TotalCost        decimal.Decimal
	Profit           decimal.Decimal
	Paid             decimal.Decimal
	Remaining        decimal.Decimal
	NewBalance       decimal.Decimal
	HasCustomer      bool
}

// Compute derives bill totals. Markup applies to the subtotal, then the
// discount applies to the marked up subtotal.
func Compute(in TotalsInput) Totals {
	var t Totals
	for _, line := range in.Cart.lines {
		t.Subtotal = t.Subtotal.Add(line.Total())
		t.TotalCost = t.TotalCost.Add(line.TotalCost())
	}

	t.MarkupPct = clampPct(in.Markup)
	t.MarkupAmount = t.Subtotal.Mul(t.MarkupPct).Div(hundred)
	t.MarkedUpSubtotal = t.Subtotal.Add(t.MarkupAmount)

	t.DiscountPct = clampPct(in.Discount)
	t.DiscountAmount = t.MarkedUpSubtotal.Mul(t.DiscountPct).Div(hundred)
	t.GrandTotal = t.MarkedUpSubtotal.Sub(t.DiscountAmount)

	t.Profit = t.GrandTotal.Sub(t.TotalCost)

	if in.PaymentMethod == model.PaymentCredit {
		t.Paid = ParseAmount(in.AmountPaid)
	} else {
		t.Paid = t.GrandTotal
	}
	t.Remaining = t.GrandTotal.Sub(t.Paid)

	if in.Customer != nil {
		t.HasCustomer = true
		t.NewBalance = decimal.NewFromFloat(in.Customer.Balance).Add(t.Remaining)
	}
	return t
}

// ParseAmount reads a typed amount; blank or non numeric text is zero.
func ParseAmount(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func clampPct(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.Zero
	}
	if v > 100 {
		return hundred
	}
	return decimal.NewFromFloat(v)
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// FormattedTotals is Totals rendered with exactly two decimals.
type FormattedTotals struct {
	Subtotal        string `json:"subtotal"`
	Markup          string `json:"markup"`
	Discount        string `json:"discount"`
	GrandTotal      string `json:"grandTotal"`
	Profit          string `json:"profit"`
	Paid            string `json:"paid"`
	Remaining       string `json:"remaining"`
	NewBalance      string `json:"newBalance"`
	MarkupPercent   string `json:"markupPercent"`
	DiscountPercent string `json:"discountPercent"`
}

// Format renders every monetary output with two decimals. NewBalance is
// "0.00" when no customer is attached.
func (t Totals) Format() FormattedTotals {
	return FormattedTotals{
		Subtotal:        t.Subtotal.StringFixed(2),
		Markup:          t.MarkupAmount.StringFixed(2),
		Discount:        t.DiscountAmount.StringFixed(2),
		GrandTotal:      t.GrandTotal.StringFixed(2),
		Profit:          t.Profit.StringFixed(2),
		Paid:            t.Paid.StringFixed(2),
		Remaining:       t.Remaining.StringFixed(2),
		NewBalance:      t.NewBalance.StringFixed(2),
		MarkupPercent:   t.MarkupPct.String(),
		DiscountPercent: t.DiscountPct.String(),
	}
}
