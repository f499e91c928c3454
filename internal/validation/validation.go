// Package validation checks customer, item and payment input before any
// create or edit reaches storage. The first violation in field order is
// returned; nothing is partially saved.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-billing/internal/model"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError carries the offending field and a human readable reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Reason
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// New builds a ValidationError.
func New(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

var (
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	accountPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		mustRegister(v, "phone10", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "acctno", func(fl validator.FieldLevel) bool {
			return accountPattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Errorf("register %s validation: %w", tag, err))
	}
}

// Field order below is the order violations are reported in.

type customerInput struct {
	Name          string `validate:"notblank"`
	Phone         string `validate:"notblank,phone10"`
	AccountNumber string `validate:"notblank,acctno"`
}

type itemInput struct {
	Name         string  `validate:"notblank"`
	CostPrice    float64 `validate:"gte=0"`
	SellingPrice float64 `validate:"gte=0"`
	TaxRate      float64 `validate:"gte=0,lte=100"`
	Stock        int     `validate:"gte=0"`
	Barcode      string  `validate:"omitempty,alphanum"`
}

type paymentInput struct {
	CustomerID    string  `validate:"notblank"`
	Amount        float64 `validate:"gt=0"`
	PaymentMethod string  `validate:"oneof=cash credit"`
}

var reasons = map[string]string{
	"customerInput.Name":          "Name, phone, and account number are required",
	"customerInput.Phone":         "Phone number must be 10 digits",
	"customerInput.AccountNumber": "Account number must be alphanumeric with dashes",
	"itemInput.Name":              "Name is required",
	"itemInput.CostPrice":         "Cost price cannot be negative",
	"itemInput.SellingPrice":      "Selling price cannot be negative",
	"itemInput.TaxRate":           "Tax rate must be between 0 and 100",
	"itemInput.Stock":             "Stock cannot be negative",
	"itemInput.Barcode":           "Barcode must be alphanumeric",
	"paymentInput.CustomerID":     "Customer is required",
	"paymentInput.Amount":         "Payment amount must be greater than 0",
	"paymentInput.PaymentMethod":  "Invalid payment method",
}

var fieldNames = map[string]string{
	"Name":          "name",
	"Phone":         "phone",
	"AccountNumber": "accountNumber",
	"CostPrice":     "costPrice",
	"SellingPrice":  "sellingPrice",
	"TaxRate":       "taxRate",
	"Stock":         "stock",
	"Barcode":       "barcode",
	"CustomerID":    "customerId",
	"Amount":        "amount",
	"PaymentMethod": "paymentMethod",
}

// Customer validates the editable customer fields.
func Customer(c model.Customer) error {
	in := customerInput{
		Name:          strings.TrimSpace(c.Name),
		Phone:         strings.TrimSpace(c.Phone),
		AccountNumber: strings.TrimSpace(c.AccountNumber),
	}
	if in.Name == "" || in.Phone == "" || in.AccountNumber == "" {
		field := "accountNumber"
		if in.Name == "" {
			field = "name"
		} else if in.Phone == "" {
			field = "phone"
		}
		return New(field, reasons["customerInput.Name"])
	}
	return check(in)
}

// Item validates a catalog item.
func Item(i model.Item) error {
	return check(itemInput{
		Name:         i.Name,
		CostPrice:    i.CostPrice,
		SellingPrice: i.SellingPrice,
		TaxRate:      i.TaxRate,
		Stock:        i.Stock,
		Barcode:      strings.TrimSpace(i.Barcode),
	})
}

// Payment validates a manual payment.
func Payment(p model.Payment) error {
	return check(paymentInput{
		CustomerID:    p.CustomerID,
		Amount:        p.Amount,
		PaymentMethod: string(p.PaymentMethod),
	})
}

// PaymentDescription returns the description to store for a manual payment.
func PaymentDescription(p model.Payment, customerName string) string {
	if d := strings.TrimSpace(p.Description); d != "" {
		return d
	}
	return "Payment for " + customerName
}

func check(input any) error {
	err := engine().Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}
	first := fieldErrs[0]
	reason, ok := reasons[first.StructNamespace()]
	if !ok {
		reason = fmt.Sprintf("%s is invalid", first.Field())
	}
	name := fieldNames[first.StructField()]
	if name == "" {
		name = first.Field()
	}
	return New(name, reason)
}
