// Package payment records manual payments against customer balances and
// serves the transaction ledger.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-billing/internal/events"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/obs"
	"github.com/noah-isme/toko-billing/internal/store"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// Repository is the storage payments need.
type Repository interface {
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	RecordPayment(ctx context.Context, p store.NewPayment) (model.Transaction, model.Customer, error)
	ListTransactions(ctx context.Context, customerID string) ([]model.Transaction, error)
}

// Result is a recorded payment and the customer's updated account.
type Result struct {
	Transaction model.Transaction `json:"transaction"`
	Customer    model.Customer    `json:"customer"`
}

// Service coordinates manual payments.
type Service struct {
	Repo Repository
	Bus  *events.Bus
}

// Record validates p and reduces the customer's balance by its amount.
func (s *Service) Record(ctx context.Context, p model.Payment) (Result, error) {
	if s == nil || s.Repo == nil {
		return Result{}, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Record")
	defer span.End()

	p.CustomerID = strings.TrimSpace(p.CustomerID)
	p.PaymentMethod = model.PaymentMethod(strings.ToLower(string(p.PaymentMethod)))
	if err := validation.Payment(p); err != nil {
		return Result{}, err
	}
	cust, err := s.Repo.GetCustomer(ctx, p.CustomerID)
	if err != nil {
		return Result{}, err
	}
	tx, updated, err := s.Repo.RecordPayment(ctx, store.NewPayment{
		CustomerID:    p.CustomerID,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		Description:   validation.PaymentDescription(p, cust.Name),
	})
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("record payment: %w", err)
	}
	span.SetAttributes(
		attribute.String("payment.method", string(p.PaymentMethod)),
		attribute.Float64("payment.amount", p.Amount),
	)
	obs.PaymentRecorded(string(p.PaymentMethod))
	zerolog.Ctx(ctx).Info().
		Str("customer_id", updated.ID).
		Float64("amount", p.Amount).
		Float64("balance", updated.Balance).
		Msg("payment_recorded")

	s.Bus.EmitLogged(ctx, events.TopicPaymentRecorded, tx.ID, events.PaymentRecorded{
		TransactionID: tx.ID,
		CustomerID:    updated.ID,
		Amount:        p.Amount,
		BalanceAfter:  updated.Balance,
	})
	return Result{Transaction: tx, Customer: updated}, nil
}

// Transactions returns a customer's ledger, newest first.
func (s *Service) Transactions(ctx context.Context, customerID string) ([]model.Transaction, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, validation.New("customerId", "customerId is required")
	}
	txs, err := s.Repo.ListTransactions(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}
