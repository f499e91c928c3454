package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/model"
)

func hammer() model.Item {
	return model.Item{ID: "itm-1", Name: "Hammer", Type: "Claw", Size: "16oz", CostPrice: 60, SellingPrice: 100, Stock: 3}
}

func TestAddLineMergesDuplicates(t *testing.T) {
	item := hammer()
	cart, err := billing.AddLine(billing.Cart{}, item, item.Stock)
	require.NoError(t, err)
	cart, err = billing.AddLine(cart, item, item.Stock)
	require.NoError(t, err)

	require.Equal(t, 1, cart.Len())
	line, ok := cart.Line(0)
	require.True(t, ok)
	require.Equal(t, 2, line.Quantity)
	require.True(t, line.Total().Equal(decimal.NewFromInt(200)))
	require.True(t, line.UnitCost.Equal(decimal.NewFromInt(60)))
	require.Equal(t, "Hammer Claw (16oz)", line.DisplayName())
}

func TestAddLineStockErrors(t *testing.T) {
	item := hammer()

	_, err := billing.AddLine(billing.Cart{}, item, 0)
	require.ErrorIs(t, err, billing.ErrOutOfStock)

	cart, err := billing.AddLine(billing.Cart{}, item, 1)
	require.NoError(t, err)
	after, err := billing.AddLine(cart, item, 1)
	require.ErrorIs(t, err, billing.ErrStockExceeded)
	require.Equal(t, 1, after.Quantity(item.ID))
}

func TestAddLineDoesNotMutateInput(t *testing.T) {
	item := hammer()
	first, err := billing.AddLine(billing.Cart{}, item, item.Stock)
	require.NoError(t, err)
	_, err = billing.AddLine(first, item, item.Stock)
	require.NoError(t, err)
	require.Equal(t, 1, first.Quantity(item.ID))
}

func TestSetQuantity(t *testing.T) {
	item := hammer()
	cart, err := billing.AddLine(billing.Cart{}, item, item.Stock)
	require.NoError(t, err)

	over, err := billing.SetQuantity(cart, 0, 4, item.Stock)
	require.ErrorIs(t, err, billing.ErrStockExceeded)
	require.Equal(t, 1, over.Quantity(item.ID))

	_, err = billing.SetQuantity(cart, 0, 0, item.Stock)
	require.ErrorIs(t, err, billing.ErrInvalidQuantity)

	_, err = billing.SetQuantity(cart, 5, 1, item.Stock)
	require.ErrorIs(t, err, billing.ErrLineNotFound)

	cart, err = billing.SetQuantity(cart, 0, 3, item.Stock)
	require.NoError(t, err)
	line, _ := cart.Line(0)
	require.True(t, line.Total().Equal(decimal.NewFromInt(300)))
}

func TestSetCustomPrice(t *testing.T) {
	item := hammer()
	cart, err := billing.AddLine(billing.Cart{}, item, item.Stock)
	require.NoError(t, err)

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "85.5", want: "85.5"},
		{raw: "0", want: "0"},
		{raw: "-1", want: "100"},
		{raw: "abc", want: "100"},
		{raw: "   ", want: "100"},
	}
	for _, tc := range cases {
		next, err := billing.SetCustomPrice(cart, 0, tc.raw)
		require.NoError(t, err, tc.raw)
		line, _ := next.Line(0)
		require.Equal(t, tc.want, line.Price().String(), tc.raw)
		require.True(t, line.UnitPrice.Equal(decimal.NewFromInt(100)))
	}

	_, err = billing.SetCustomPrice(cart, 2, "10")
	require.ErrorIs(t, err, billing.ErrLineNotFound)
}

func TestRemoveLine(t *testing.T) {
	a := hammer()
	b := model.Item{ID: "itm-2", Name: "Nail", SellingPrice: 2, Stock: 500}
	cart, _ := billing.AddLine(billing.Cart{}, a, a.Stock)
	cart, _ = billing.AddLine(cart, b, b.Stock)

	next, err := billing.RemoveLine(cart, 0)
	require.NoError(t, err)
	require.Equal(t, 1, next.Len())
	require.Equal(t, -1, next.IndexOf(a.ID))
	require.Equal(t, 2, cart.Len())

	_, err = billing.RemoveLine(next, 1)
	require.ErrorIs(t, err, billing.ErrLineNotFound)
}

func TestCartFromBillRoundTrip(t *testing.T) {
	item := hammer()
	cart, _ := billing.AddLine(billing.Cart{}, item, item.Stock)
	cart, _ = billing.SetCustomPrice(cart, 0, "99.99")

	lines := make([]model.BillLine, 0, cart.Len())
	for _, l := range cart.Lines() {
		lines = append(lines, l.BillLine())
	}
	rebuilt := billing.CartFromBill(lines)
	line, _ := rebuilt.Line(0)
	require.Equal(t, "99.99", line.Price().String())
	require.Equal(t, 99.99, lines[0].Total)
}
