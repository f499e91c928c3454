// Package receipt renders printable HTML receipts for bills.
package receipt

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/config"
	"github.com/noah-isme/toko-billing/internal/model"
)

//go:embed receipt.html.tmpl
var source string

var page = template.Must(template.New("receipt").Parse(source))

// Data is what a receipt prints. Customer, when set, carries the balance
// the account had before this bill.
type Data struct {
	Shop     config.Shop
	Bill     model.Bill
	Customer *model.Customer
}

type line struct {
	Name     string
	Quantity int
	Price    string
	Total    string
}

type row struct {
	Label string
	Value string
	Bold  bool
}

type view struct {
	Shop     config.Shop
	Number   string
	Customer string
	Date     string
	Lines    []line
	Rows     []row
}

// Render writes the receipt for d to w.
func Render(w io.Writer, d Data) error {
	if err := page.Execute(w, build(d)); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}

func build(d Data) view {
	currency := d.Shop.Currency
	if currency == "" {
		currency = "Rs."
	}
	money := func(prefix string, v decimal.Decimal) string {
		return prefix + currency + " " + v.StringFixed(2)
	}

	b := d.Bill
	var amount string
	if b.PaymentType == model.PaymentCredit {
		amount = strconv.FormatFloat(b.PartialPayment, 'f', -1, 64)
	}
	t := billing.Compute(billing.TotalsInput{
		Cart:          billing.CartFromBill(b.Items),
		Markup:        b.Markup,
		Discount:      b.Discount,
		PaymentMethod: b.PaymentType,
		AmountPaid:    amount,
		Customer:      d.Customer,
	})

	v := view{
		Shop:     d.Shop,
		Number:   b.Number,
		Customer: b.CustomerName,
		Date:     b.CreatedAt.Format("02/01/2006"),
	}
	if v.Customer == "" && d.Customer != nil {
		v.Customer = d.Customer.Name
	}
	if v.Customer == "" {
		v.Customer = "N/A"
	}
	if v.Shop.Name == "" {
		v.Shop.Name = "Hardware Shop"
	}
	for _, l := range b.Items {
		v.Lines = append(v.Lines, line{
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    money("", decimal.NewFromFloat(l.CustomPrice)),
			Total:    money("", decimal.NewFromFloat(l.Total)),
		})
	}
	v.Rows = []row{
		{Label: "Subtotal", Value: money("", t.Subtotal)},
		{Label: "Markup (" + t.MarkupPct.String() + "%)", Value: money("+", t.MarkupAmount)},
		{Label: "Discount (" + t.DiscountPct.String() + "%)", Value: money("-", t.DiscountAmount)},
		{Label: "Grand Total", Value: money("", t.GrandTotal), Bold: true},
		{Label: "Amount Paid", Value: money("", t.Paid)},
		{Label: "Remaining Amount", Value: money("", t.Remaining)},
	}
	if d.Customer != nil {
		v.Rows = append(v.Rows,
			row{Label: "Current Customer Balance", Value: money("", decimal.NewFromFloat(d.Customer.Balance))},
			row{Label: "New Customer Balance", Value: money("", t.NewBalance), Bold: true},
		)
	}
	return v
}

// BalanceBefore recovers the balance a customer had before bill from the
// bill's own ledger entry.
func BalanceBefore(bill model.Bill, txs []model.Transaction) (float64, bool) {
	for _, tx := range txs {
		if tx.BillID == bill.ID && tx.Type == model.TxBill {
			before := decimal.NewFromFloat(tx.BalanceAfter).Sub(decimal.NewFromFloat(tx.Amount))
			return before.Round(2).InexactFloat64(), true
		}
	}
	return 0, false
}
