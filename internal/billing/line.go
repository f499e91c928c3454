package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-billing/internal/model"
)

// LineItem is one product row of a cart. UnitPrice and UnitCost are frozen
// when the item is first added.
type LineItem struct {
	ItemID      string
	Name        string
	Type        string
	Size        string
	Quantity    int
	UnitPrice   decimal.Decimal
	CustomPrice decimal.Decimal
	UnitCost    decimal.Decimal
}

// NewLine starts a line at quantity one priced from the item.
func NewLine(item model.Item) LineItem {
	price := decimal.NewFromFloat(item.SellingPrice)
	return LineItem{
		ItemID:      item.ID,
		Name:        item.Name,
		Type:        item.Type,
		Size:        item.Size,
		Quantity:    1,
		UnitPrice:   price,
		CustomPrice: price,
		UnitCost:    decimal.NewFromFloat(item.CostPrice),
	}
}

// LineFromBill rebuilds a line from its persisted form.
func LineFromBill(l model.BillLine) LineItem {
	return LineItem{
		ItemID:      l.ItemID,
		Name:        l.Name,
		Quantity:    l.Quantity,
		UnitPrice:   decimal.NewFromFloat(l.UnitPrice),
		CustomPrice: decimal.NewFromFloat(l.CustomPrice),
		UnitCost:    decimal.NewFromFloat(l.UnitCost),
	}
}

// Price is the effective per-unit price of the line.
func (l LineItem) Price() decimal.Decimal {
	return l.CustomPrice
}

// Total is quantity times the effective price.
func (l LineItem) Total() decimal.Decimal {
	return l.Price().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// TotalCost is quantity times the frozen unit cost.
func (l LineItem) TotalCost() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DisplayName renders "name type (size)".
func (l LineItem) DisplayName() string {
	return model.Item{Name: l.Name, Type: l.Type, Size: l.Size}.DisplayName()
}

// BillLine converts the line to its persisted form, rounding money to cents.
func (l LineItem) BillLine() model.BillLine {
	return model.BillLine{
		ItemID:      l.ItemID,
		Name:        l.DisplayName(),
		Quantity:    l.Quantity,
		UnitPrice:   money(l.UnitPrice),
		CustomPrice: money(l.CustomPrice),
		UnitCost:    money(l.UnitCost),
		Total:       money(l.Total()),
		TotalCost:   money(l.TotalCost()),
	}
}

// parsePrice reads user text as a non-negative amount.
func parsePrice(raw string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
