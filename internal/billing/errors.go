package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfStock is returned when adding an item whose stock is below one.
	ErrOutOfStock = errors.New("item is out of stock")
	// ErrStockExceeded is returned when a quantity would exceed known stock.
	ErrStockExceeded = errors.New("quantity exceeds available stock")
	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrLineNotFound is returned for an out of range line index.
	ErrLineNotFound = errors.New("bill line not found")
	// ErrItemNotFound is returned when an intent names an item missing from the catalog snapshot.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidPaymentMethod is returned for anything other than cash or credit.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	ErrEmptyCart   = errors.New("no items in bill")
	ErrNoCustomer  = errors.New("please select a customer")
	ErrOverpayment = errors.New("amount paid cannot exceed the grand total")

	// ErrInvalidResponse marks a nominally successful save whose payload is unusable.
	ErrInvalidResponse = errors.New("invalid bill response from server")
	// ErrDuplicateDispatch is returned while the same operation is still in flight.
	ErrDuplicateDispatch = errors.New("operation already in progress")
)

// Op names a persistence operation. It keys in-flight tokens and default
// transport error messages.
type Op string

const (
	OpCheckout       Op = "checkout"
	OpListItems      Op = "list_items"
	OpGetItem        Op = "get_item"
	OpSaveItem       Op = "save_item"
	OpDeleteItem     Op = "delete_item"
	OpListCustomers  Op = "list_customers"
	OpGetCustomer    Op = "get_customer"
	OpSaveCustomer   Op = "save_customer"
	OpDeleteCustomer Op = "delete_customer"
	OpListBills      Op = "list_bills"
	OpGetBill        Op = "get_bill"
	OpTransactions   Op = "list_transactions"
	OpPayment        Op = "record_payment"
	OpSalesReport    Op = "sales_report"
	OpLogin          Op = "login"
)

var defaultMessages = map[Op]string{
	OpCheckout:       "Failed to save bill",
	OpListItems:      "Failed to fetch items",
	OpGetItem:        "Failed to fetch item",
	OpSaveItem:       "Failed to save item",
	OpDeleteItem:     "Failed to delete item",
	OpListCustomers:  "Failed to fetch customers",
	OpGetCustomer:    "Failed to fetch customer",
	OpSaveCustomer:   "Failed to save customer",
	OpDeleteCustomer: "Failed to delete customer",
	OpListBills:      "Failed to fetch bills",
	OpGetBill:        "Failed to fetch bill details",
	OpTransactions:   "Failed to fetch transactions",
	OpPayment:        "Failed to record payment",
	OpSalesReport:    "Failed to fetch sales report",
	OpLogin:          "Failed to log in",
}

// DefaultMessage is the message surfaced when the server gives none.
func DefaultMessage(op Op) string {
	if msg, ok := defaultMessages[op]; ok {
		return msg
	}
	return "Request failed"
}

// TransportError reports a network or backend failure for an operation.
type TransportError struct {
	Op      Op
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = DefaultMessage(e.Op)
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewTransportError builds a TransportError falling back to the default message.
func NewTransportError(op Op, status int, message string, err error) *TransportError {
	if message == "" {
		message = DefaultMessage(op)
	}
	return &TransportError{Op: op, Status: status, Message: message, Err: err}
}
