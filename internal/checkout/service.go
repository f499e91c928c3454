// Package checkout persists bills submitted by registers. Every payload is
// recomputed before anything is written; bill numbers are assigned under a
// per-year Redis lock.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/events"
	"github.com/noah-isme/toko-billing/internal/lock"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/obs"
	"github.com/noah-isme/toko-billing/internal/store"
	"github.com/noah-isme/toko-billing/internal/validation"
)

const instrumentation = "github.com/noah-isme/toko-billing/internal/checkout"

// Repository is the storage checkout needs.
type Repository interface {
	store.Items
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	CreateBill(ctx context.Context, bill model.Bill) (model.Bill, []model.Transaction, error)
	CountBillsInYear(ctx context.Context, year int) (int, error)
}

// Locker serialises bill numbering.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// CatalogInvalidator drops cached catalog reads after stock moves.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context)
}

// Config wires a Service.
type Config struct {
	Repo              Repository
	Locker            Locker
	LockTTL           time.Duration
	Bus               *events.Bus
	Catalog           CatalogInvalidator
	LowStockThreshold int
	Now               func() time.Time
	Meter             metric.Meter
}

// Service creates bills.
type Service struct {
	repo      Repository
	locker    Locker
	lockTTL   time.Duration
	bus       *events.Bus
	catalog   CatalogInvalidator
	threshold int
	now       func() time.Time
	tracer    trace.Tracer
	totals    metric.Float64Histogram
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Repo == nil {
		return nil, errors.New("checkout repository is required")
	}
	if cfg.Locker == nil {
		return nil, errors.New("checkout locker is required")
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(instrumentation)
	}
	hist, err := meter.Float64Histogram("billing.bill.grand_total",
		metric.WithDescription("Grand total of persisted bills"),
		metric.WithUnit("{currency}"))
	if err != nil {
		return nil, fmt.Errorf("grand total histogram: %w", err)
	}
	return &Service{
		repo:      cfg.Repo,
		locker:    cfg.Locker,
		lockTTL:   cfg.LockTTL,
		bus:       cfg.Bus,
		catalog:   cfg.Catalog,
		threshold: cfg.LowStockThreshold,
		now:       cfg.Now,
		tracer:    otel.Tracer(instrumentation),
		totals:    hist,
	}, nil
}

// Create verifies payload and persists it as a numbered bill.
func (s *Service) Create(ctx context.Context, payload billing.BillPayload) (billing.CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.create", trace.WithAttributes(
		attribute.String("bill.payment_type", string(payload.PaymentType)),
		attribute.Int("bill.lines", len(payload.Items)),
	))
	defer span.End()

	result, err := s.create(ctx, payload)
	if err != nil {
		obs.CheckoutRejected(rejectReason(err))
		span.RecordError(err)
		return billing.CheckoutResult{}, err
	}
	span.SetAttributes(attribute.String("bill.number", result.Bill.Number))
	return result, nil
}

func (s *Service) create(ctx context.Context, payload billing.BillPayload) (billing.CheckoutResult, error) {
	if len(payload.Items) == 0 {
		return billing.CheckoutResult{}, billing.ErrEmptyCart
	}
	if payload.CustomerID == "" {
		return billing.CheckoutResult{}, billing.ErrNoCustomer
	}
	customer, err := s.repo.GetCustomer(ctx, payload.CustomerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return billing.CheckoutResult{}, billing.ErrNoCustomer
		}
		return billing.CheckoutResult{}, err
	}
	if _, err := billing.Verify(payload, &customer); err != nil {
		return billing.CheckoutResult{}, err
	}

	lines, err := s.resolveLines(ctx, payload.Items)
	if err != nil {
		return billing.CheckoutResult{}, err
	}

	now := s.now()
	bill := model.Bill{
		CustomerID:     payload.CustomerID,
		Items:          lines,
		Subtotal:       payload.Subtotal,
		Markup:         payload.Markup,
		Discount:       payload.Discount,
		GrandTotal:     payload.GrandTotal,
		PaymentType:    payload.PaymentType,
		PartialPayment: payload.PartialPayment,
		Status:         payload.Status,
		CreatedAt:      now,
	}

	var (
		saved model.Bill
		txs   []model.Transaction
	)
	year := now.Year()
	err = s.locker.WithLock(ctx, lock.BillNumberKey(year), s.lockTTL, func(ctx context.Context) error {
		count, err := s.repo.CountBillsInYear(ctx, year)
		if err != nil {
			return fmt.Errorf("count bills: %w", err)
		}
		bill.Number = BillNumber(year, count+1)
		saved, txs, err = s.repo.CreateBill(ctx, bill)
		return err
	})
	if err != nil {
		return billing.CheckoutResult{}, err
	}

	obs.BillCreated(string(saved.PaymentType), string(saved.Status))
	s.totals.Record(ctx, saved.GrandTotal, metric.WithAttributes(attribute.String("payment_type", string(saved.PaymentType))))
	zerolog.Ctx(ctx).Info().
		Str("bill_id", saved.ID).
		Str("bill_number", saved.Number).
		Str("customer_id", saved.CustomerID).
		Float64("grand_total", saved.GrandTotal).
		Msg("bill_created")

	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	itemIDs := distinctItems(saved.Items)
	s.bus.EmitLogged(ctx, events.TopicBillCreated, saved.ID, events.BillCreated{
		BillID:      saved.ID,
		BillNumber:  saved.Number,
		CustomerID:  saved.CustomerID,
		PaymentType: string(saved.PaymentType),
		Status:      string(saved.Status),
		GrandTotal:  saved.GrandTotal,
		ItemIDs:     itemIDs,
	})
	s.checkLowStock(ctx, itemIDs)

	return billing.CheckoutResult{Bill: saved, Transactions: txs}, nil
}

// resolveLines fills missing display names from the catalog and makes sure
// every line references a stocked item.
func (s *Service) resolveLines(ctx context.Context, in []model.BillLine) ([]model.BillLine, error) {
	out := make([]model.BillLine, len(in))
	for i, line := range in {
		item, err := s.repo.GetItem(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, validation.New("items", fmt.Sprintf("Item %s no longer exists", line.ItemID))
			}
			return nil, err
		}
		if line.Name == "" {
			line.Name = item.DisplayName()
		}
		out[i] = line
	}
	return out, nil
}

func (s *Service) checkLowStock(ctx context.Context, itemIDs []string) {
	if s.threshold <= 0 {
		return
	}
	for _, id := range itemIDs {
		item, err := s.repo.GetItem(ctx, id)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("item_id", id).Msg("low_stock_check_failed")
			continue
		}
		if item.Stock >= s.threshold {
			continue
		}
		s.bus.EmitLogged(ctx, events.TopicItemLowStock, item.ID, events.ItemLowStock{
			ItemID:    item.ID,
			Name:      item.DisplayName(),
			Stock:     item.Stock,
			Threshold: s.threshold,
		})
	}
}

// BillNumber formats the n-th bill of year, e.g. BILL-2026-007.
func BillNumber(year, n int) string {
	return fmt.Sprintf("BILL-%d-%03d", year, n)
}

func distinctItems(lines []model.BillLine) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ItemID]; ok {
			continue
		}
		seen[l.ItemID] = struct{}{}
		out = append(out, l.ItemID)
	}
	sort.Strings(out)
	return out
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, billing.ErrBillMismatch):
		return "mismatch"
	case errors.Is(err, billing.ErrEmptyCart):
		return "empty"
	case errors.Is(err, billing.ErrNoCustomer):
		return "no_customer"
	case errors.Is(err, billing.ErrOverpayment):
		return "overpayment"
	case errors.Is(err, store.ErrInsufficientStock):
		return "stock"
	case errors.Is(err, lock.ErrNotAcquired):
		return "lock"
	case errors.Is(err, validation.ErrValidation), errors.Is(err, billing.ErrInvalidQuantity):
		return "validation"
	}
	return "error"
}
