package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/model"
)

func catalog() []model.Item {
	return []model.Item{
		hammer(),
		{ID: "itm-2", Name: "Nail", Type: "Steel", Size: "2in", CostPrice: 1, SellingPrice: 2, Stock: 500},
		{ID: "itm-3", Name: "Saw", CostPrice: 150, SellingPrice: 250, Stock: 0},
	}
}

func apply(t *testing.T, s billing.Session, intents ...billing.Intent) billing.Session {
	t.Helper()
	for _, in := range intents {
		next, err := s.Apply(in)
		require.NoError(t, err, "%T", in)
		s = next
	}
	return s
}

func TestSessionReducer(t *testing.T) {
	s := billing.NewSession(catalog())
	s = apply(t, s,
		billing.AddItem{ItemID: "itm-1"},
		billing.AddItem{ItemID: "itm-1"},
		billing.AddItem{ItemID: "itm-2"},
		billing.ChangeQuantity{Index: 1, Quantity: 10},
		billing.ChangePrice{Index: 0, Price: "90"},
		billing.SetMarkup{Percent: 10},
		billing.SetDiscount{Percent: 5},
		billing.SelectCustomer{Customer: *customer()},
	)

	require.Equal(t, 2, s.Cart().Len())
	require.Equal(t, 2, s.Cart().Quantity("itm-1"))
	got := s.Totals().Format()
	require.Equal(t, "200.00", got.Subtotal)
	require.Equal(t, "209.00", got.GrandTotal)

	s = apply(t, s, billing.DropLine{Index: 1}, billing.ClearCustomer{})
	require.Equal(t, 1, s.Cart().Len())
	_, ok := s.Customer()
	require.False(t, ok)
}

func TestSessionApplyErrorKeepsState(t *testing.T) {
	s := apply(t, billing.NewSession(catalog()), billing.AddItem{ItemID: "itm-1"})

	cases := []struct {
		in   billing.Intent
		want error
	}{
		{in: billing.AddItem{ItemID: "missing"}, want: billing.ErrItemNotFound},
		{in: billing.AddItem{ItemID: "itm-3"}, want: billing.ErrOutOfStock},
		{in: billing.ChangeQuantity{Index: 0, Quantity: 4}, want: billing.ErrStockExceeded},
		{in: billing.ChangeQuantity{Index: 3, Quantity: 1}, want: billing.ErrLineNotFound},
		{in: billing.SetPayment{Method: "cheque"}, want: billing.ErrInvalidPaymentMethod},
	}
	for _, tc := range cases {
		next, err := s.Apply(tc.in)
		require.ErrorIs(t, err, tc.want, "%T", tc.in)
		require.Equal(t, s, next)
	}
}

func TestSessionIsImmutable(t *testing.T) {
	base := apply(t, billing.NewSession(catalog()), billing.AddItem{ItemID: "itm-1"})
	_ = apply(t, base, billing.AddItem{ItemID: "itm-1"}, billing.SetMarkup{Percent: 50})
	require.Equal(t, 1, base.Cart().Quantity("itm-1"))
	require.Zero(t, base.Markup())
}

func TestSessionRefreshCatalogBoundsStock(t *testing.T) {
	s := apply(t, billing.NewSession(catalog()), billing.AddItem{ItemID: "itm-1"})
	low := hammer()
	low.Stock = 1
	s = apply(t, s, billing.RefreshCatalog{Items: []model.Item{low}})

	_, err := s.Apply(billing.AddItem{ItemID: "itm-1"})
	require.ErrorIs(t, err, billing.ErrStockExceeded)
	require.Len(t, s.Catalog(), 1)
}

func TestGuardRejectsDuplicateDispatch(t *testing.T) {
	var g billing.Guard
	tok, err := g.Acquire(billing.OpCheckout)
	require.NoError(t, err)
	require.True(t, g.InFlight(billing.OpCheckout))

	_, err = g.Acquire(billing.OpCheckout)
	require.ErrorIs(t, err, billing.ErrDuplicateDispatch)

	other, err := g.Acquire(billing.OpPayment)
	require.NoError(t, err)
	g.Release(other)

	g.Release(tok)
	require.False(t, g.InFlight(billing.OpCheckout))

	next, err := g.Acquire(billing.OpCheckout)
	require.NoError(t, err)
	g.Release(tok)
	require.True(t, g.InFlight(billing.OpCheckout), "stale token must not release a newer one")
	g.Release(next)
}

func TestRegisterCheckoutResetsSession(t *testing.T) {
	store := &fakeStore{result: okResult()}
	reg := &billing.Register{Store: store}
	s := apply(t, billing.NewSession(catalog()),
		billing.AddItem{ItemID: "itm-1"},
		billing.SelectCustomer{Customer: *customer()},
		billing.SetMarkup{Percent: 10},
		billing.SetPayment{Method: model.PaymentCredit, AmountPaid: "10"},
	)

	next, result, err := reg.Checkout(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, "bill-1", result.Bill.ID)
	require.True(t, next.Cart().Empty())
	require.Equal(t, model.PaymentCash, next.PaymentMethod())
	require.Zero(t, next.Markup())
	require.Len(t, next.Catalog(), 3)
	require.False(t, reg.InFlight())
}

func TestRegisterRejectsConcurrentCheckout(t *testing.T) {
	store := &fakeStore{result: okResult(), block: make(chan struct{}), entered: make(chan struct{})}
	reg := &billing.Register{Store: store}
	s := apply(t, billing.NewSession(catalog()),
		billing.AddItem{ItemID: "itm-1"},
		billing.SelectCustomer{Customer: *customer()},
	)

	done := make(chan error, 1)
	go func() {
		_, _, err := reg.Checkout(context.Background(), s)
		done <- err
	}()
	<-store.entered
	require.True(t, reg.InFlight())

	same, _, err := reg.Checkout(context.Background(), s)
	require.ErrorIs(t, err, billing.ErrDuplicateDispatch)
	require.Equal(t, s, same)

	close(store.block)
	require.NoError(t, <-done)
	require.Equal(t, 1, store.calls)
}

func TestRegisterFailureKeepsSession(t *testing.T) {
	store := &fakeStore{err: billing.NewTransportError(billing.OpCheckout, 500, "", nil)}
	reg := &billing.Register{Store: store}
	s := apply(t, billing.NewSession(catalog()),
		billing.AddItem{ItemID: "itm-1"},
		billing.SelectCustomer{Customer: *customer()},
	)
	next, _, err := reg.Checkout(context.Background(), s)
	require.Error(t, err)
	require.Equal(t, s, next)
	require.False(t, reg.InFlight())
}
