package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/validation"
)

func payloadFor(t *testing.T, method model.PaymentMethod, amount string) (billing.BillPayload, *model.Customer) {
	t.Helper()
	cust := customer()
	payload, _, err := billing.BuildPayload(billing.CheckoutRequest{
		Cart:          threeHammers(t),
		Customer:      cust,
		Markup:        10,
		Discount:      5,
		PaymentMethod: method,
		AmountPaid:    amount,
	})
	require.NoError(t, err)
	return payload, cust
}

func TestVerifyAcceptsBuiltPayloads(t *testing.T) {
	for _, tc := range []struct {
		method model.PaymentMethod
		amount string
	}{{model.PaymentCash, ""}, {model.PaymentCredit, "200"}, {model.PaymentCredit, ""}, {model.PaymentCredit, "313.50"}} {
		payload, cust := payloadFor(t, tc.method, tc.amount)
		totals, err := billing.Verify(payload, cust)
		require.NoError(t, err, "%s %q", tc.method, tc.amount)
		require.Equal(t, "313.50", totals.Format().GrandTotal)
	}
}

func TestVerifyToleratesOneCent(t *testing.T) {
	payload, cust := payloadFor(t, model.PaymentCash, "")
	payload.GrandTotal = 313.51
	payload.PartialPayment = 313.51
	_, err := billing.Verify(payload, cust)
	require.NoError(t, err)
}

func TestVerifyRejectsDrift(t *testing.T) {
	cases := map[string]func(p *billing.BillPayload){
		"grand total":  func(p *billing.BillPayload) { p.GrandTotal = 300 },
		"subtotal":     func(p *billing.BillPayload) { p.Subtotal = 299 },
		"line total":   func(p *billing.BillPayload) { p.Items[0].Total = 1 },
		"cash paid":    func(p *billing.BillPayload) { p.PartialPayment = 100 },
		"wrong status": func(p *billing.BillPayload) { p.Status = model.BillPending },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			payload, cust := payloadFor(t, model.PaymentCash, "")
			mutate(&payload)
			_, err := billing.Verify(payload, cust)
			require.ErrorIs(t, err, billing.ErrBillMismatch)
		})
	}
}

func TestVerifyRejectsInvalidInput(t *testing.T) {
	payload, cust := payloadFor(t, model.PaymentCredit, "200")

	over := payload
	over.PartialPayment = 400
	_, err := billing.Verify(over, cust)
	require.ErrorIs(t, err, billing.ErrOverpayment)

	neg := payload
	neg.PartialPayment = -1
	_, err = billing.Verify(neg, cust)
	require.ErrorIs(t, err, validation.ErrValidation)

	empty := payload
	empty.Items = nil
	_, err = billing.Verify(empty, cust)
	require.ErrorIs(t, err, billing.ErrEmptyCart)

	_, err = billing.Verify(payload, nil)
	require.ErrorIs(t, err, billing.ErrNoCustomer)

	qty := payload
	qty.Items = append([]model.BillLine(nil), payload.Items...)
	qty.Items[0].Quantity = 0
	_, err = billing.Verify(qty, cust)
	require.ErrorIs(t, err, billing.ErrInvalidQuantity)
}

func TestVerifyMatchesCheckoutAgainstFakeStore(t *testing.T) {
	store := &fakeStore{result: okResult()}
	payload, cust := payloadFor(t, model.PaymentCredit, "200")
	_, err := billing.Verify(payload, cust)
	require.NoError(t, err)
	_, err = billing.Checkout(context.Background(), store, billing.CheckoutRequest{
		Cart: threeHammers(t), Customer: cust, Markup: 10, Discount: 5,
		PaymentMethod: model.PaymentCredit, AmountPaid: "200",
	})
	require.NoError(t, err)
	require.Equal(t, payload, store.payloads[0])
}

func TestVerifyRejectsRepeatedItem(t *testing.T) {
	payload, cust := payloadFor(t, model.PaymentCash, "")
	first := payload.Items[0]
	first.Quantity, first.Total = 1, first.CustomPrice
	second := first
	second.CustomPrice, second.Total = 80, 80
	payload.Items = []model.BillLine{first, second}

	_, err := billing.Verify(payload, cust)
	require.ErrorIs(t, err, validation.ErrValidation)
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "items", verr.Field)
	require.NotErrorIs(t, err, billing.ErrBillMismatch)
}
