package billing

import (
	"context"
	"fmt"

	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// BillPayload is the body submitted to the persistence service. Markup and
// Discount are percentages; money fields are rounded to cents.
type BillPayload struct {
	CustomerID     string              `json:"customerId"`
	Items          []model.BillLine    `json:"items"`
	Subtotal       float64             `json:"subtotal"`
	Markup         float64             `json:"markup"`
	Discount       float64             `json:"discount"`
	GrandTotal     float64             `json:"grandTotal"`
	PaymentType    model.PaymentMethod `json:"paymentType"`
	PartialPayment float64             `json:"partialPayment"`
	Status         model.BillStatus    `json:"status"`
}

// CheckoutResult is the persisted bill and the ledger entries it produced.
type CheckoutResult struct {
	Bill         model.Bill          `json:"bill"`
	Transactions []model.Transaction `json:"transactions"`
}

// Persistence is the port the finalizer submits bills through.
type Persistence interface {
	CreateBill(ctx context.Context, payload BillPayload) (CheckoutResult, error)
}

// CheckoutRequest carries the cart and payment inputs at checkout time.
type CheckoutRequest struct {
	Cart          Cart
	Customer      *model.Customer
	Markup        float64
	Discount      float64
	PaymentMethod model.PaymentMethod
	AmountPaid    string
}

func (r CheckoutRequest) totalsInput() TotalsInput {
	return TotalsInput{
		Cart:          r.Cart,
		Markup:        r.Markup,
		Discount:      r.Discount,
		PaymentMethod: r.PaymentMethod,
		AmountPaid:    r.AmountPaid,
		Customer:      r.Customer,
	}
}

// BuildPayload validates the request and produces the bill payload together
// with the totals it was derived from. Checks run in a fixed order: empty
// cart, missing customer, payment inputs, overpayment.
func BuildPayload(req CheckoutRequest) (BillPayload, Totals, error) {
	if req.Cart.Empty() {
		return BillPayload{}, Totals{}, ErrEmptyCart
	}
	if req.Customer == nil || req.Customer.ID == "" {
		return BillPayload{}, Totals{}, ErrNoCustomer
	}
	if !req.PaymentMethod.Valid() {
		return BillPayload{}, Totals{}, validation.New("paymentMethod", "Invalid payment method")
	}

	totals := Compute(req.totalsInput())
	grand := Round2(totals.GrandTotal)
	paid := Round2(totals.Paid)
	if req.PaymentMethod == model.PaymentCredit {
		if paid.IsNegative() {
			return BillPayload{}, totals, validation.New("amountPaid", "Amount paid cannot be negative")
		}
		if paid.GreaterThan(grand) {
			return BillPayload{}, totals, ErrOverpayment
		}
	}

	status := model.BillPending
	if paid.GreaterThanOrEqual(grand) {
		status = model.BillCompleted
	}

	lines := req.Cart.Lines()
	items := make([]model.BillLine, 0, len(lines))
	for _, line := range lines {
		items = append(items, line.BillLine())
	}
	return BillPayload{
		CustomerID:     req.Customer.ID,
		Items:          items,
		Subtotal:       money(totals.Subtotal),
		Markup:         totals.MarkupPct.InexactFloat64(),
		Discount:       totals.DiscountPct.InexactFloat64(),
		GrandTotal:     grand.InexactFloat64(),
		PaymentType:    req.PaymentMethod,
		PartialPayment: paid.InexactFloat64(),
		Status:         status,
	}, totals, nil
}

// Checkout finalizes the bill and submits it once. Nothing is sent when
// validation fails.
func Checkout(ctx context.Context, store Persistence, req CheckoutRequest) (CheckoutResult, error) {
	if store == nil {
		return CheckoutResult{}, fmt.Errorf("billing: persistence not configured")
	}
	payload, _, err := BuildPayload(req)
	if err != nil {
		return CheckoutResult{}, err
	}
	result, err := store.CreateBill(ctx, payload)
	if err != nil {
		return CheckoutResult{}, err
	}
	if err := verifyResult(result); err != nil {
		return CheckoutResult{}, err
	}
	return result, nil
}

func verifyResult(result CheckoutResult) error {
	if result.Bill.ID == "" {
		return ErrInvalidResponse
	}
	for _, tx := range result.Transactions {
		if tx.Type == model.TxBill {
			return nil
		}
	}
	return fmt.Errorf("%w: missing bill transaction", ErrInvalidResponse)
}
