package validation_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/validation"
)

func TestCustomer(t *testing.T) {
	valid := model.Customer{Name: "Ali Khan", Phone: "0300123456", AccountNumber: "ACC-001"}
	require.NoError(t, validation.Customer(valid))

	cases := []struct {
		name   string
		mutate func(*model.Customer)
		field  string
		reason string
	}{
		{"missing name", func(c *model.Customer) { c.Name = "  " }, "name", "Name, phone, and account number are required"},
		{"missing phone", func(c *model.Customer) { c.Phone = "" }, "phone", "Name, phone, and account number are required"},
		{"missing account", func(c *model.Customer) { c.AccountNumber = "" }, "accountNumber", "Name, phone, and account number are required"},
		{"short phone", func(c *model.Customer) { c.Phone = "12345" }, "phone", "Phone number must be 10 digits"},
		{"letters in phone", func(c *model.Customer) { c.Phone = "03001234ab" }, "phone", "Phone number must be 10 digits"},
		{"bad account", func(c *model.Customer) { c.AccountNumber = "ACC 001" }, "accountNumber", "Account number must be alphanumeric with dashes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			err := validation.Customer(c)
			require.Error(t, err)
			require.True(t, errors.Is(err, validation.ErrValidation))
			var vErr *validation.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tc.field, vErr.Field)
			require.Equal(t, tc.reason, vErr.Reason)
		})
	}
}

func TestItem(t *testing.T) {
	valid := model.Item{Name: "Hammer", CostPrice: 50, SellingPrice: 80, TaxRate: 17, Stock: 4, Barcode: "HM001"}
	require.NoError(t, validation.Item(valid))

	noBarcode := valid
	noBarcode.Barcode = ""
	require.NoError(t, validation.Item(noBarcode))

	cases := []struct {
		name   string
		mutate func(*model.Item)
		reason string
	}{
		{"name", func(i *model.Item) { i.Name = "" }, "Name is required"},
		{"cost", func(i *model.Item) { i.CostPrice = -1 }, "Cost price cannot be negative"},
		{"selling", func(i *model.Item) { i.SellingPrice = -0.01 }, "Selling price cannot be negative"},
		{"tax high", func(i *model.Item) { i.TaxRate = 100.5 }, "Tax rate must be between 0 and 100"},
		{"tax nan", func(i *model.Item) { i.TaxRate = math.NaN() }, "Tax rate must be between 0 and 100"},
		{"stock", func(i *model.Item) { i.Stock = -3 }, "Stock cannot be negative"},
		{"barcode", func(i *model.Item) { i.Barcode = "HM-001" }, "Barcode must be alphanumeric"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := valid
			tc.mutate(&item)
			var vErr *validation.ValidationError
			require.ErrorAs(t, validation.Item(item), &vErr)
			require.Equal(t, tc.reason, vErr.Reason)
		})
	}
}

func TestItemReportsFirstViolation(t *testing.T) {
	err := validation.Item(model.Item{CostPrice: -1, Stock: -1})
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "name", vErr.Field)
}

func TestPayment(t *testing.T) {
	require.NoError(t, validation.Payment(model.Payment{CustomerID: "c1", Amount: 10, PaymentMethod: model.PaymentCash}))

	var vErr *validation.ValidationError
	require.ErrorAs(t, validation.Payment(model.Payment{CustomerID: "c1", Amount: 0, PaymentMethod: model.PaymentCash}), &vErr)
	require.Equal(t, "Payment amount must be greater than 0", vErr.Reason)

	require.ErrorAs(t, validation.Payment(model.Payment{CustomerID: "c1", Amount: 5, PaymentMethod: "card"}), &vErr)
	require.Equal(t, "Invalid payment method", vErr.Reason)
}

func TestPaymentDescription(t *testing.T) {
	require.Equal(t, "Payment for Ali", validation.PaymentDescription(model.Payment{}, "Ali"))
	require.Equal(t, "cheque 42", validation.PaymentDescription(model.Payment{Description: " cheque 42 "}, "Ali"))
}
