// Package bill serves the read side of bill history.
package bill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/toko-billing/internal/config"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/receipt"
	"github.com/noah-isme/toko-billing/internal/store"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// Repository is the storage the bill reads need.
type Repository interface {
	ListBills(ctx context.Context, filter store.BillFilter) ([]model.Bill, error)
	GetBill(ctx context.Context, id string) (model.Bill, error)
	ListTransactions(ctx context.Context, customerID string) ([]model.Transaction, error)
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
}

// Query narrows List.
type Query struct {
	Status     string
	CustomerID string
	// Text matches bill number, id or customer name.
	Text string
}

// Service reads bills.
type Service struct {
	repo Repository
	shop config.Shop
}

// NewService constructs a Service.
func NewService(repo Repository, shop config.Shop) *Service {
	return &Service{repo: repo, shop: shop}
}

// List returns bills newest first.
func (s *Service) List(ctx context.Context, q Query) ([]model.Bill, error) {
	status := model.BillStatus(strings.ToLower(strings.TrimSpace(q.Status)))
	if status != "" && !status.Valid() {
		return nil, validation.New("status", "Status must be completed or pending")
	}
	bills, err := s.repo.ListBills(ctx, store.BillFilter{Status: status, CustomerID: q.CustomerID})
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	s.fillNames(ctx, bills)

	keywords := strings.Fields(strings.ToLower(q.Text))
	if len(keywords) == 0 {
		return bills, nil
	}
	out := bills[:0]
	for _, b := range bills {
		if Match(b, keywords) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Get returns one bill with its lines.
func (s *Service) Get(ctx context.Context, id string) (model.Bill, error) {
	b, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return model.Bill{}, err
	}
	one := []model.Bill{b}
	s.fillNames(ctx, one)
	return one[0], nil
}

// Receipt renders the printable receipt of bill id to w. The customer
// balances shown are the ones around this bill, taken from the ledger.
func (s *Service) Receipt(ctx context.Context, w io.Writer, id string) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	data := receipt.Data{Shop: s.shop, Bill: b}
	cust, err := s.repo.GetCustomer(ctx, b.CustomerID)
	switch {
	case err == nil:
		txs, err := s.repo.ListTransactions(ctx, b.CustomerID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		if before, ok := receipt.BalanceBefore(b, txs); ok {
			cust.Balance = before
			data.Customer = &cust
		}
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	return receipt.Render(w, data)
}

func (s *Service) fillNames(ctx context.Context, bills []model.Bill) {
	names := make(map[string]string)
	for i := range bills {
		if bills[i].CustomerName != "" {
			continue
		}
		id := bills[i].CustomerID
		name, ok := names[id]
		if !ok {
			if c, err := s.repo.GetCustomer(ctx, id); err == nil {
				name = c.Name
			}
			names[id] = name
		}
		bills[i].CustomerName = name
	}
}

// Match reports whether every keyword appears in the bill number, id or
// customer name.
func Match(b model.Bill, keywords []string) bool {
	haystack := strings.ToLower(b.Number + " " + b.ID + " " + b.CustomerName)
	for _, kw := range keywords {
		if !strings.Contains(haystack, kw) {
			return false
		}
	}
	return true
}
