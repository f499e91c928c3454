// Package store defines the persistence boundary of the billing service and
// the ledger rules shared by its implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/toko-billing/internal/model"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrConflict          = errors.New("store: record is referenced by bills")
	ErrDuplicate         = errors.New("store: duplicate record")
	ErrInsufficientStock = errors.New("store: insufficient stock")
)

// StockError reports the line that could not be fulfilled.
type StockError struct {
	ItemID    string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d", e.ItemID, e.Requested, e.Available)
}

// Is makes StockError match ErrInsufficientStock.
func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// BillFilter narrows ListBills. Zero values match everything.
type BillFilter struct {
	Status     model.BillStatus
	CustomerID string
}

// NewPayment is a manual payment against a customer balance.
type NewPayment struct {
	CustomerID    string
	Amount        float64
	PaymentMethod model.PaymentMethod
	Description   string
}

// SaleFact is one bill reduced to what sales reports aggregate.
type SaleFact struct {
	BillID      string
	CreatedAt   time.Time
	PaymentType model.PaymentMethod
	GrandTotal  float64
	TotalCost   float64
}

// DomainEvent is an entry of the domain_events outbox.
type DomainEvent struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	AggregateID string    `json:"aggregateId"`
	Payload     []byte    `json:"payload"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Items covers the catalog.
type Items interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	GetItem(ctx context.Context, id string) (model.Item, error)
	CreateItem(ctx context.Context, item model.Item) (model.Item, error)
	UpdateItem(ctx context.Context, item model.Item) (model.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// Customers covers account holders. Balance is never written through
// Create or Update.
type Customers interface {
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error)
	UpdateCustomer(ctx context.Context, c model.Customer) (model.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

// Ledger covers bills, transactions and payments.
type Ledger interface {
	// CreateBill persists bill, decrements stock for every line and applies
	// the bill to the customer's balance in one unit of work.
	CreateBill(ctx context.Context, bill model.Bill) (model.Bill, []model.Transaction, error)
	ListBills(ctx context.Context, filter BillFilter) ([]model.Bill, error)
	GetBill(ctx context.Context, id string) (model.Bill, error)
	CountBillsInYear(ctx context.Context, year int) (int, error)
	ListTransactions(ctx context.Context, customerID string) ([]model.Transaction, error)
	RecordPayment(ctx context.Context, p NewPayment) (model.Transaction, model.Customer, error)
	// SaleFacts returns bills created in [from, to).
	SaleFacts(ctx context.Context, from, to time.Time) ([]SaleFact, error)
}

// EventStore persists domain events.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, ev DomainEvent) (DomainEvent, error)
}

// Repository is the full persistence surface used by the API.
type Repository interface {
	Items
	Customers
	Ledger
	EventStore
	Ping(ctx context.Context) error
	Close()
}
