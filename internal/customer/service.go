package customer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/toko-billing/internal/events"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/store"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// Service manages customer accounts. Balances only move through bills and
// payments, never through this service.
type Service struct {
	customers store.Customers
	bus       *events.Bus
}

// NewService constructs a Service. bus may be nil.
func NewService(customers store.Customers, bus *events.Bus) (*Service, error) {
	if customers == nil {
		return nil, errors.New("customer: store is required")
	}
	return &Service{customers: customers, bus: bus}, nil
}

// List returns customers matching every keyword of query, sorted by name.
func (s *Service) List(ctx context.Context, query string) ([]model.Customer, error) {
	all, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return strings.ToLower(all[i].Name) < strings.ToLower(all[j].Name)
	})
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return all, nil
	}
	out := make([]model.Customer, 0, len(all))
	for _, c := range all {
		if Match(c, keywords) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get returns one customer with the current balance.
func (s *Service) Get(ctx context.Context, id string) (model.Customer, error) {
	return s.customers.GetCustomer(ctx, id)
}

// Create opens a new account with a zero balance.
func (s *Service) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	c = normalize(c)
	if err := validation.Customer(c); err != nil {
		return model.Customer{}, err
	}
	c.ID = ""
	c.Balance = 0
	created, err := s.customers.CreateCustomer(ctx, c)
	if err != nil {
		return model.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	s.bus.EmitLogged(ctx, events.TopicCustomerCreated, created.ID, events.CustomerChanged{CustomerID: created.ID, AccountNumber: created.AccountNumber})
	return created, nil
}

// Update replaces the contact details of a customer. Balance is preserved.
func (s *Service) Update(ctx context.Context, id string, c model.Customer) (model.Customer, error) {
	c = normalize(c)
	c.ID = id
	if err := validation.Customer(c); err != nil {
		return model.Customer{}, err
	}
	updated, err := s.customers.UpdateCustomer(ctx, c)
	if err != nil {
		return model.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// Delete removes a customer that has no bills.
func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.customers.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	if err := s.customers.DeleteCustomer(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	s.bus.EmitLogged(ctx, events.TopicCustomerDeleted, id, events.CustomerChanged{CustomerID: id, AccountNumber: current.AccountNumber})
	return nil
}

// Match reports whether every lowercase keyword occurs in the customer's
// name, phone or account number.
func Match(c model.Customer, keywords []string) bool {
	haystack := strings.ToLower(c.Name + " " + c.Phone + " " + c.AccountNumber)
	for _, kw := range keywords {
		if !strings.Contains(haystack, kw) {
			return false
		}
	}
	return true
}

func normalize(c model.Customer) model.Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.AccountNumber = strings.TrimSpace(c.AccountNumber)
	return c
}
