package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/store"
)

func TestBillEntriesEndAtBalancePlusRemaining(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		name    string
		paid    float64
		before  float64
		entries int
		after   float64
	}{
		{name: "cash", paid: 313.5, before: 50, entries: 2, after: 50},
		{name: "credit partial", paid: 200, before: 50, entries: 2, after: 163.5},
		{name: "credit unpaid", paid: 0, before: -20, entries: 1, after: 293.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bill := model.Bill{ID: "b1", Number: "BILL-2026-007", CustomerID: "c1", GrandTotal: 313.5, PartialPayment: tc.paid}
			after, entries := store.BillEntries(bill, tc.before, at)
			require.Equal(t, tc.after, after)
			require.Len(t, entries, tc.entries)
			require.Equal(t, "Bill BILL-2026-007", entries[0].Description)
			require.Equal(t, tc.after, entries[len(entries)-1].BalanceAfter)
			for _, e := range entries {
				require.Equal(t, at, e.CreatedAt)
				require.Equal(t, "b1", e.BillID)
			}
		})
	}
}

func TestPaymentEntry(t *testing.T) {
	after, entry := store.PaymentEntry(store.NewPayment{CustomerID: "c1", Amount: 0.1, PaymentMethod: model.PaymentCash}, 0.3, time.Now())
	require.Equal(t, 0.2, after)
	require.Equal(t, -0.1, entry.Amount)
	require.Equal(t, model.TxPayment, entry.Type)
}

func TestStockErrorMatchesSentinel(t *testing.T) {
	var err error = &store.StockError{ItemID: "i", Requested: 3, Available: 1}
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	require.Contains(t, err.Error(), "requested 3, available 1")
}
