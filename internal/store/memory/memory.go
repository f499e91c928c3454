// Package memory is an in-process Repository with the same ledger semantics
// as the Postgres store. It backs tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/store"
)

// Store keeps every record in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	items     map[string]model.Item
	customers map[string]model.Customer
	bills     []model.Bill
	txs       []model.Transaction
	events    []store.DomainEvent

	// Now is the clock used for timestamps.
	Now func() time.Time
}

var _ store.Repository = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		items:     make(map[string]model.Item),
		customers: make(map[string]model.Customer),
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func (s *Store) ListItems(_ context.Context) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetItem(_ context.Context, id string) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return model.Item{}, store.ErrNotFound
	}
	return item, nil
}

func (s *Store) CreateItem(_ context.Context, item model.Item) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = store.NewID()
	}
	if _, exists := s.items[item.ID]; exists {
		return model.Item{}, store.ErrDuplicate
	}
	now := s.now()
	item.CreatedAt, item.UpdatedAt = now, now
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) UpdateItem(_ context.Context, item model.Item) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[item.ID]
	if !ok {
		return model.Item{}, store.ErrNotFound
	}
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = s.now()
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	for _, bill := range s.bills {
		for _, line := range bill.Items {
			if line.ItemID == id {
				return store.ErrConflict
			}
		}
	}
	delete(s.items, id)
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return model.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) accountTaken(account, exceptID string) bool {
	for id, c := range s.customers {
		if id != exceptID && strings.EqualFold(c.AccountNumber, account) {
			return true
		}
	}
	return false
}

func (s *Store) CreateCustomer(_ context.Context, c model.Customer) (model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = store.NewID()
	}
	if _, exists := s.customers[c.ID]; exists || s.accountTaken(c.AccountNumber, "") {
		return model.Customer{}, store.ErrDuplicate
	}
	now := s.now()
	c.Balance = 0
	c.CreatedAt, c.UpdatedAt = now, now
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCustomer(_ context.Context, c model.Customer) (model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.customers[c.ID]
	if !ok {
		return model.Customer{}, store.ErrNotFound
	}
	if s.accountTaken(c.AccountNumber, c.ID) {
		return model.Customer{}, store.ErrDuplicate
	}
	c.Balance = current.Balance
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = s.now()
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	for _, bill := range s.bills {
		if bill.CustomerID == id {
			return store.ErrConflict
		}
	}
	delete(s.customers, id)
	return nil
}

func (s *Store) CreateBill(_ context.Context, bill model.Bill) (model.Bill, []model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[bill.CustomerID]
	if !ok {
		return model.Bill{}, nil, store.ErrNotFound
	}
	for _, existing := range s.bills {
		if bill.Number != "" && existing.Number == bill.Number {
			return model.Bill{}, nil, store.ErrDuplicate
		}
	}

	// All lines are checked before any stock moves so a miss leaves nothing applied.
	need := make(map[string]int, len(bill.Items))
	for _, line := range bill.Items {
		need[line.ItemID] += line.Quantity
	}
	for id, qty := range need {
		item, ok := s.items[id]
		if !ok {
			return model.Bill{}, nil, store.ErrNotFound
		}
		if item.Stock < qty {
			return model.Bill{}, nil, &store.StockError{ItemID: id, Requested: qty, Available: item.Stock}
		}
	}

	now := s.now()
	for id, qty := range need {
		item := s.items[id]
		item.Stock -= qty
		item.UpdatedAt = now
		s.items[id] = item
	}

	if bill.ID == "" {
		bill.ID = store.NewID()
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = now
	}
	bill.CustomerName = customer.Name
	bill.Items = append([]model.BillLine(nil), bill.Items...)

	balance, entries := store.BillEntries(bill, customer.Balance, now)
	customer.Balance = balance
	customer.UpdatedAt = now
	s.customers[customer.ID] = customer

	s.bills = append(s.bills, bill)
	s.txs = append(s.txs, entries...)
	return bill, entries, nil
}

func (s *Store) ListBills(_ context.Context, filter store.BillFilter) ([]model.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Bill, 0, len(s.bills))
	for i := len(s.bills) - 1; i >= 0; i-- {
		bill := s.bills[i]
		if filter.Status != "" && bill.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && bill.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, bill)
	}
	return out, nil
}

func (s *Store) GetBill(_ context.Context, id string) (model.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bill := range s.bills {
		if bill.ID == id {
			return bill, nil
		}
	}
	return model.Bill{}, store.ErrNotFound
}

func (s *Store) CountBillsInYear(_ context.Context, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, bill := range s.bills {
		if bill.CreatedAt.Year() == year {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListTransactions(_ context.Context, customerID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Transaction, 0)
	for i := len(s.txs) - 1; i >= 0; i-- {
		if s.txs[i].CustomerID == customerID {
			out = append(out, s.txs[i])
		}
	}
	return out, nil
}

func (s *Store) RecordPayment(_ context.Context, p store.NewPayment) (model.Transaction, model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[p.CustomerID]
	if !ok {
		return model.Transaction{}, model.Customer{}, store.ErrNotFound
	}
	now := s.now()
	balance, entry := store.PaymentEntry(p, customer.Balance, now)
	customer.Balance = balance
	customer.UpdatedAt = now
	s.customers[customer.ID] = customer
	s.txs = append(s.txs, entry)
	return entry, customer, nil
}

func (s *Store) SaleFacts(_ context.Context, from, to time.Time) ([]store.SaleFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.SaleFact, 0)
	for _, bill := range s.bills {
		if bill.CreatedAt.Before(from) || !bill.CreatedAt.Before(to) {
			continue
		}
		out = append(out, store.SaleFact{
			BillID:      bill.ID,
			CreatedAt:   bill.CreatedAt,
			PaymentType: bill.PaymentType,
			GrandTotal:  bill.GrandTotal,
			TotalCost:   store.BillCost(bill),
		})
	}
	return out, nil
}

func (s *Store) InsertDomainEvent(_ context.Context, ev store.DomainEvent) (store.DomainEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = store.NewID()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now()
	}
	s.events = append(s.events, ev)
	return ev, nil
}

// Events returns the recorded domain events in order.
func (s *Store) Events() []store.DomainEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.DomainEvent(nil), s.events...)
}
