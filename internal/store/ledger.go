package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-billing/internal/model"
)

// NewID returns a fresh record identifier.
func NewID() string { return uuid.NewString() }

// BillEntries derives the ledger entries of a bill against the customer's
// balance before the bill. The bill entry adds the grand total; a payment
// entry subtracts what was paid at the counter. The last BalanceAfter equals
// balanceBefore + remaining.
func BillEntries(bill model.Bill, balanceBefore float64, at time.Time) (float64, []model.Transaction) {
	balance := decimal.NewFromFloat(balanceBefore)
	grand := decimal.NewFromFloat(bill.GrandTotal)
	paid := decimal.NewFromFloat(bill.PartialPayment)

	balance = balance.Add(grand)
	entries := []model.Transaction{{
		ID:            NewID(),
		CustomerID:    bill.CustomerID,
		BillID:        bill.ID,
		Type:          model.TxBill,
		Amount:        grand.Round(2).InexactFloat64(),
		BalanceAfter:  balance.Round(2).InexactFloat64(),
		PaymentMethod: bill.PaymentType,
		Description:   fmt.Sprintf("Bill %s", bill.Number),
		CreatedAt:     at,
	}}
	if paid.IsPositive() {
		balance = balance.Sub(paid)
		entries = append(entries, model.Transaction{
			ID:            NewID(),
			CustomerID:    bill.CustomerID,
			BillID:        bill.ID,
			Type:          model.TxPayment,
			Amount:        paid.Neg().Round(2).InexactFloat64(),
			BalanceAfter:  balance.Round(2).InexactFloat64(),
			PaymentMethod: bill.PaymentType,
			Description:   fmt.Sprintf("Payment for bill %s", bill.Number),
			CreatedAt:     at,
		})
	}
	return balance.Round(2).InexactFloat64(), entries
}

// PaymentEntry derives the ledger entry of a manual payment.
func PaymentEntry(p NewPayment, balanceBefore float64, at time.Time) (float64, model.Transaction) {
	balance := decimal.NewFromFloat(balanceBefore).Sub(decimal.NewFromFloat(p.Amount)).Round(2)
	return balance.InexactFloat64(), model.Transaction{
		ID:            NewID(),
		CustomerID:    p.CustomerID,
		Type:          model.TxPayment,
		Amount:        decimal.NewFromFloat(p.Amount).Neg().Round(2).InexactFloat64(),
		BalanceAfter:  balance.InexactFloat64(),
		PaymentMethod: p.PaymentMethod,
		Description:   p.Description,
		CreatedAt:     at,
	}
}

// BillCost sums the frozen line costs of a bill.
func BillCost(bill model.Bill) float64 {
	total := decimal.Zero
	for _, line := range bill.Items {
		total = total.Add(decimal.NewFromFloat(line.TotalCost))
	}
	return total.Round(2).InexactFloat64()
}
