// Package report aggregates bills into sales reports. Results are cached in
// Redis per period and window and flushed whenever a bill or payment lands.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/toko-billing/internal/cache"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/obs"
	"github.com/noah-isme/toko-billing/internal/store"
	"github.com/noah-isme/toko-billing/internal/validation"
)

const dayLayout = "2006-01-02"

// FactSource yields the bills created in [from, to).
type FactSource interface {
	SaleFacts(ctx context.Context, from, to time.Time) ([]store.SaleFact, error)
}

// Request selects a report. StartDate and EndDate are only read for the
// custom period.
type Request struct {
	Period    model.ReportPeriod
	StartDate string
	EndDate   string
}

// Window is the half-open time range a report covers.
type Window struct {
	Period model.ReportPeriod
	From   time.Time
	To     time.Time
}

// Service provides cached sales reports.
type Service struct {
	Facts FactSource
	Cache *cache.JSON
	// Location is the shop's time zone; buckets follow its calendar.
	Location *time.Location
	Now      func() time.Time

	group singleflight.Group
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// Resolve validates req and turns it into a concrete window.
func (s *Service) Resolve(req Request) (Window, error) {
	period := model.ReportPeriod(strings.ToLower(strings.TrimSpace(string(req.Period))))
	if period == "" {
		period = model.PeriodDaily
	}
	if !period.Valid() {
		return Window{}, validation.New("period", "Period must be daily, weekly, monthly or custom")
	}
	now := s.now().In(s.loc())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc())

	switch period {
	case model.PeriodDaily:
		return Window{Period: period, From: today.AddDate(0, 0, -29), To: today.AddDate(0, 0, 1)}, nil
	case model.PeriodWeekly:
		monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		return Window{Period: period, From: monday.AddDate(0, 0, -7*11), To: monday.AddDate(0, 0, 7)}, nil
	case model.PeriodMonthly:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc())
		return Window{Period: period, From: first.AddDate(0, -11, 0), To: first.AddDate(0, 1, 0)}, nil
	}

	if req.StartDate == "" || req.EndDate == "" {
		return Window{}, validation.New("startDate", "Start date and end date are required for a custom report")
	}
	start, err := time.ParseInLocation(dayLayout, req.StartDate, s.loc())
	if err != nil {
		return Window{}, validation.New("startDate", "Start date must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(dayLayout, req.EndDate, s.loc())
	if err != nil {
		return Window{}, validation.New("endDate", "End date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return Window{}, validation.New("endDate", "End date cannot be before start date")
	}
	return Window{Period: period, From: start, To: end.AddDate(0, 0, 1)}, nil
}

// Sales returns one row per bucket that has bills, newest bucket first.
func (s *Service) Sales(ctx context.Context, req Request) ([]model.SalesReport, error) {
	if s == nil || s.Facts == nil {
		return nil, errors.New("report service not configured")
	}
	w, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}
	key := cacheKey(w)

	var rows []model.SalesReport
	if ok, err := s.Cache.Get(ctx, key, &rows); err == nil && ok {
		obs.ReportCache("hit")
		return rows, nil
	} else if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("report_cache_read_failed")
	}
	obs.ReportCache("miss")

	v, err, _ := s.group.Do(key, func() (any, error) {
		facts, err := s.Facts.SaleFacts(ctx, w.From, w.To)
		if err != nil {
			return nil, fmt.Errorf("sale facts: %w", err)
		}
		out := Aggregate(w.Period, facts, s.loc())
		if err := s.Cache.Set(ctx, key, out); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("report_cache_write_failed")
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.SalesReport), nil
}

// Summary folds the rows of req into totals and averages.
func (s *Service) Summary(ctx context.Context, req Request) (model.SalesSummary, error) {
	rows, err := s.Sales(ctx, req)
	if err != nil {
		return model.SalesSummary{}, err
	}
	return model.Summarize(rows), nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	n, err := s.Cache.DeletePrefix(ctx, cache.PrefixReport)
	if err != nil {
		return fmt.Errorf("invalidate reports: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Int("keys", n).Msg("report_cache_flushed")
	return nil
}

func cacheKey(w Window) string {
	return cache.PrefixReport + string(w.Period) + ":" + w.From.Format(dayLayout) + ":" + w.To.Format(dayLayout)
}

// BucketKey names the bucket t falls in: 2026-03-14, 2026-W11 or 2026-03.
func BucketKey(period model.ReportPeriod, t time.Time) string {
	switch period {
	case model.PeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case model.PeriodMonthly:
		return t.Format("2006-01")
	}
	return t.Format(dayLayout)
}

type bucket struct {
	sales, profit             decimal.Decimal
	cashSales, cashProfit     decimal.Decimal
	creditSales, creditProfit decimal.Decimal
	bills                     int
}

// Aggregate groups facts into buckets of period in loc.
func Aggregate(period model.ReportPeriod, facts []store.SaleFact, loc *time.Location) []model.SalesReport {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[string]*bucket)
	for _, f := range facts {
		key := BucketKey(period, f.CreatedAt.In(loc))
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		sales := decimal.NewFromFloat(f.GrandTotal)
		profit := sales.Sub(decimal.NewFromFloat(f.TotalCost))
		b.sales = b.sales.Add(sales)
		b.profit = b.profit.Add(profit)
		b.bills++
		if f.PaymentType == model.PaymentCredit {
			b.creditSales = b.creditSales.Add(sales)
			b.creditProfit = b.creditProfit.Add(profit)
		} else {
			b.cashSales = b.cashSales.Add(sales)
			b.cashProfit = b.cashProfit.Add(profit)
		}
	}

	out := make([]model.SalesReport, 0, len(buckets))
	for key, b := range buckets {
		out = append(out, model.SalesReport{
			Period:       key,
			TotalSales:   round(b.sales),
			TotalProfit:  round(b.profit),
			BillCount:    b.bills,
			CashSales:    round(b.cashSales),
			CashProfit:   round(b.cashProfit),
			CreditSales:  round(b.creditSales),
			CreditProfit: round(b.creditProfit),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
