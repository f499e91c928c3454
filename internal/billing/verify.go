package billing

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// ErrBillMismatch is matched by every MismatchError.
var ErrBillMismatch = errors.New("bill figures do not match its lines")

var tolerance = decimal.New(1, -2)

// MismatchError reports a submitted figure that disagrees with the one
// recomputed from the bill's lines by more than a cent.
type MismatchError struct {
	Field    string
	Expected string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("bill mismatch on %s: expected %s, got %s", e.Field, e.Expected, e.Got)
}

// Is makes MismatchError match ErrBillMismatch.
func (e *MismatchError) Is(target error) bool { return target == ErrBillMismatch }

// Verify recomputes a submitted bill with the same calculator the register
// uses and rejects it when a figure drifts. customer must be the stored
// account the bill is charged to.
func Verify(p BillPayload, customer *model.Customer) (Totals, error) {
	if len(p.Items) == 0 {
		return Totals{}, ErrEmptyCart
	}
	if p.CustomerID == "" || customer == nil || customer.ID != p.CustomerID {
		return Totals{}, ErrNoCustomer
	}
	if !p.PaymentType.Valid() {
		return Totals{}, validation.New("paymentType", "Invalid payment method")
	}
	if p.Markup < 0 || p.Markup > 100 {
		return Totals{}, validation.New("markup", "Markup must be between 0 and 100")
	}
	if p.Discount < 0 || p.Discount > 100 {
		return Totals{}, validation.New("discount", "Discount must be between 0 and 100")
	}
	seen := make(map[string]struct{}, len(p.Items))
	for i, l := range p.Items {
		if l.ItemID == "" {
			return Totals{}, validation.New("items", "Every line needs an item")
		}
		// the register merges repeats of an item into one line
		if _, dup := seen[l.ItemID]; dup {
			return Totals{}, validation.New("items", "Each item may appear on only one line")
		}
		seen[l.ItemID] = struct{}{}
		if l.Quantity < 1 {
			return Totals{}, ErrInvalidQuantity
		}
		if l.UnitPrice < 0 || l.CustomPrice < 0 || l.UnitCost < 0 {
			return Totals{}, validation.New("items", "Prices cannot be negative")
		}
		line := LineFromBill(l)
		if err := compare(fmt.Sprintf("items[%d].total", i), line.Total(), l.Total); err != nil {
			return Totals{}, err
		}
	}

	var amount string
	if p.PaymentType == model.PaymentCredit {
		if p.PartialPayment < 0 {
			return Totals{}, validation.New("amountPaid", "Amount paid cannot be negative")
		}
		amount = strconv.FormatFloat(p.PartialPayment, 'f', -1, 64)
	}
	t := Compute(TotalsInput{
		Cart:          CartFromBill(p.Items),
		Markup:        p.Markup,
		Discount:      p.Discount,
		PaymentMethod: p.PaymentType,
		AmountPaid:    amount,
		Customer:      customer,
	})
	if err := compare("subtotal", t.Subtotal, p.Subtotal); err != nil {
		return t, err
	}
	if err := compare("grandTotal", t.GrandTotal, p.GrandTotal); err != nil {
		return t, err
	}

	grand := Round2(t.GrandTotal)
	paid := Round2(t.Paid)
	if p.PaymentType == model.PaymentCredit && paid.GreaterThan(grand) {
		return t, ErrOverpayment
	}
	if p.PaymentType == model.PaymentCash {
		if err := compare("partialPayment", t.Paid, p.PartialPayment); err != nil {
			return t, err
		}
	}

	want := model.BillPending
	if paid.GreaterThanOrEqual(grand) {
		want = model.BillCompleted
	}
	if p.Status != want {
		return t, &MismatchError{Field: "status", Expected: string(want), Got: string(p.Status)}
	}
	return t, nil
}

func compare(field string, computed decimal.Decimal, got float64) error {
	submitted := decimal.NewFromFloat(got)
	if Round2(computed).Sub(submitted).Abs().GreaterThan(tolerance) {
		return &MismatchError{Field: field, Expected: Round2(computed).StringFixed(2), Got: submitted.StringFixed(2)}
	}
	return nil
}
