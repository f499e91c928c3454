// Package model holds the entities shared by the billing engine, the
// persistence service and its clients. Monetary values travel as JSON numbers.
package model

import "time"

// PaymentMethod describes how a bill or manual payment was settled.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
)

// Valid reports whether the method is one of the supported values.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCredit
}

// BillStatus is derived from paid versus due at checkout.
type BillStatus string

const (
	BillCompleted BillStatus = "completed"
	BillPending   BillStatus = "pending"
)

// Valid reports whether the status is one of the supported values.
func (s BillStatus) Valid() bool {
	return s == BillCompleted || s == BillPending
}

// TransactionType distinguishes ledger entries.
type TransactionType string

const (
	TxBill    TransactionType = "bill"
	TxPayment TransactionType = "payment"
)

// Item is a catalog entry. Stock is authoritative on the server.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type,omitempty"`
	Size         string    `json:"size,omitempty"`
	Barcode      string    `json:"barcode,omitempty"`
	CostPrice    float64   `json:"costPrice"`
	SellingPrice float64   `json:"sellingPrice"`
	TaxRate      float64   `json:"taxRate"`
	Stock        int       `json:"stock"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayName renders "name type (size)" the way receipts and pickers show items.
func (i Item) DisplayName() string {
	name := i.Name
	if i.Type != "" {
		name += " " + i.Type
	}
	if i.Size != "" {
		name += " (" + i.Size + ")"
	}
	return name
}

// Customer is an account holder. A positive balance means the customer owes the shop.
type Customer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address,omitempty"`
	AccountNumber string    `json:"accountNumber"`
	Balance       float64   `json:"balance"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BillLine is one persisted line of a bill.
type BillLine struct {
	ItemID      string  `json:"itemId"`
	Name        string  `json:"name,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	CustomPrice float64 `json:"customPrice"`
	UnitCost    float64 `json:"unitCost"`
	Total       float64 `json:"total"`
	TotalCost   float64 `json:"totalCost"`
}

// Bill is created once at checkout and never edited afterwards. Markup and
// Discount hold the percentages, not the amounts.
type Bill struct {
	ID             string        `json:"id"`
	Number         string        `json:"number,omitempty"`
	CustomerID     string        `json:"customerId"`
	CustomerName   string        `json:"customerName,omitempty"`
	Items          []BillLine    `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	Markup         float64       `json:"markup"`
	Discount       float64       `json:"discount"`
	GrandTotal     float64       `json:"grandTotal"`
	PaymentType    PaymentMethod `json:"paymentType"`
	PartialPayment float64       `json:"partialPayment"`
	Status         BillStatus    `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Remaining is the unpaid part of the bill.
func (b Bill) Remaining() float64 {
	return b.GrandTotal - b.PartialPayment
}

// Profit is grand total minus the frozen cost of every line.
func (b Bill) Profit() float64 {
	var cost float64
	for _, line := range b.Items {
		cost += line.TotalCost
	}
	return b.GrandTotal - cost
}

// Transaction is a signed ledger entry against a customer balance.
type Transaction struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	BillID        string          `json:"billId,omitempty"`
	Type          TransactionType `json:"type"`
	Amount        float64         `json:"amount"`
	BalanceAfter  float64         `json:"balanceAfter"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Payment is a manual payment recorded against a customer account.
type Payment struct {
	CustomerID    string        `json:"customerId"`
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Description   string        `json:"description,omitempty"`
}
