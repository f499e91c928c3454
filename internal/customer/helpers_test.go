package customer_test

import (
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/store"
)

func paymentOf(customerID string, amount float64) store.NewPayment {
	return store.NewPayment{CustomerID: customerID, Amount: amount, PaymentMethod: model.PaymentCash}
}
