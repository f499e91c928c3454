package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/validation"
)

type fakeStore struct {
	calls    int
	payloads []billing.BillPayload
	result   billing.CheckoutResult
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeStore) CreateBill(ctx context.Context, payload billing.BillPayload) (billing.CheckoutResult, error) {
	f.calls++
	f.payloads = append(f.payloads, payload)
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return billing.CheckoutResult{}, f.err
	}
	return f.result, nil
}

func okResult() billing.CheckoutResult {
	return billing.CheckoutResult{
		Bill: model.Bill{ID: "bill-1", Number: "BILL-2026-001", GrandTotal: 313.5},
		Transactions: []model.Transaction{
			{ID: "tx-1", Type: model.TxBill, Amount: 313.5},
		},
	}
}

func customer() *model.Customer {
	return &model.Customer{ID: "cust-1", Name: "Asha", Balance: 50}
}

func TestCheckoutRejectsBeforeSubmitting(t *testing.T) {
	cart := threeHammers(t)
	cases := []struct {
		name string
		req  billing.CheckoutRequest
		want error
	}{
		{
			name: "empty cart",
			req:  billing.CheckoutRequest{Customer: customer(), PaymentMethod: model.PaymentCash},
			want: billing.ErrEmptyCart,
		},
		{
			name: "empty cart wins over missing customer",
			req:  billing.CheckoutRequest{PaymentMethod: model.PaymentCash},
			want: billing.ErrEmptyCart,
		},
		{
			name: "no customer",
			req:  billing.CheckoutRequest{Cart: cart, PaymentMethod: model.PaymentCash},
			want: billing.ErrNoCustomer,
		},
		{
			name: "invalid method",
			req:  billing.CheckoutRequest{Cart: cart, Customer: customer(), PaymentMethod: "card"},
			want: validation.ErrValidation,
		},
		{
			name: "negative credit amount",
			req:  billing.CheckoutRequest{Cart: cart, Customer: customer(), PaymentMethod: model.PaymentCredit, AmountPaid: "-1"},
			want: validation.ErrValidation,
		},
		{
			name: "overpayment",
			req:  billing.CheckoutRequest{Cart: cart, Customer: customer(), PaymentMethod: model.PaymentCredit, AmountPaid: "313.51"},
			want: billing.ErrOverpayment,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{result: okResult()}
			_, err := billing.Checkout(context.Background(), store, tc.req)
			require.ErrorIs(t, err, tc.want)
			require.Zero(t, store.calls)
		})
	}
}

func TestCheckoutBuildsPayload(t *testing.T) {
	store := &fakeStore{result: okResult()}
	req := billing.CheckoutRequest{
		Cart:          threeHammers(t),
		Customer:      customer(),
		Markup:        10,
		Discount:      5,
		PaymentMethod: model.PaymentCredit,
		AmountPaid:    "200",
	}
	result, err := billing.Checkout(context.Background(), store, req)
	require.NoError(t, err)
	require.Equal(t, "bill-1", result.Bill.ID)
	require.Equal(t, 1, store.calls)

	p := store.payloads[0]
	require.Equal(t, "cust-1", p.CustomerID)
	require.Equal(t, 300.0, p.Subtotal)
	require.Equal(t, 10.0, p.Markup)
	require.Equal(t, 5.0, p.Discount)
	require.Equal(t, 313.5, p.GrandTotal)
	require.Equal(t, 200.0, p.PartialPayment)
	require.Equal(t, model.BillPending, p.Status)
	require.Equal(t, model.PaymentCredit, p.PaymentType)
	require.Len(t, p.Items, 1)
	require.Equal(t, model.BillLine{
		ItemID: "itm-1", Name: "Hammer Claw (16oz)", Quantity: 3,
		UnitPrice: 100, CustomPrice: 100, UnitCost: 60, Total: 300, TotalCost: 180,
	}, p.Items[0])
}

func TestCheckoutCompletedWhenFullyPaid(t *testing.T) {
	cases := []struct {
		method model.PaymentMethod
		paid   string
	}{
		{method: model.PaymentCash},
		{method: model.PaymentCredit, paid: "313.50"},
	}
	for _, tc := range cases {
		payload, _, err := billing.BuildPayload(billing.CheckoutRequest{
			Cart: threeHammers(t), Customer: customer(), Markup: 10, Discount: 5,
			PaymentMethod: tc.method, AmountPaid: tc.paid,
		})
		require.NoError(t, err)
		require.Equal(t, model.BillCompleted, payload.Status)
		require.Equal(t, 313.5, payload.PartialPayment)
	}
}

func TestPayloadRoundTripHasNoDrift(t *testing.T) {
	item := model.Item{ID: "i", Name: "Paint", SellingPrice: 33.33, CostPrice: 20.1, Stock: 7}
	cart, _ := billing.AddLine(billing.Cart{}, item, item.Stock)
	cart, _ = billing.SetQuantity(cart, 0, 7, item.Stock)
	req := billing.CheckoutRequest{
		Cart: cart, Customer: customer(), Markup: 12.5, Discount: 7.25, PaymentMethod: model.PaymentCash,
	}
	payload, totals, err := billing.BuildPayload(req)
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	var back billing.BillPayload
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, payload, back)

	recomputed := billing.Compute(billing.TotalsInput{
		Cart:          billing.CartFromBill(back.Items),
		Markup:        back.Markup,
		Discount:      back.Discount,
		PaymentMethod: back.PaymentType,
		Customer:      customer(),
	})
	require.Equal(t, totals.Format(), recomputed.Format())
}

func TestCheckoutInvalidResponse(t *testing.T) {
	req := billing.CheckoutRequest{Cart: threeHammers(t), Customer: customer(), PaymentMethod: model.PaymentCash}

	store := &fakeStore{result: billing.CheckoutResult{Transactions: okResult().Transactions}}
	_, err := billing.Checkout(context.Background(), store, req)
	require.ErrorIs(t, err, billing.ErrInvalidResponse)

	store = &fakeStore{result: billing.CheckoutResult{Bill: model.Bill{ID: "b"}}}
	_, err = billing.Checkout(context.Background(), store, req)
	require.ErrorIs(t, err, billing.ErrInvalidResponse)
}

func TestCheckoutTransportError(t *testing.T) {
	req := billing.CheckoutRequest{Cart: threeHammers(t), Customer: customer(), PaymentMethod: model.PaymentCash}
	cause := errors.New("connection refused")
	store := &fakeStore{err: billing.NewTransportError(billing.OpCheckout, 0, "", cause)}

	_, err := billing.Checkout(context.Background(), store, req)
	var transport *billing.TransportError
	require.ErrorAs(t, err, &transport)
	require.Equal(t, "Failed to save bill", transport.Error())
	require.ErrorIs(t, err, cause)

	withStatus := billing.NewTransportError(billing.OpCheckout, 409, "Insufficient stock", nil)
	require.Equal(t, "Insufficient stock (status 409)", withStatus.Error())
}
