package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-billing/internal/obs"
)

// ReportInvalidator drops cached sales reports.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Handlers processes the tasks enqueued by Notifier.
type Handlers struct {
	Reports ReportInvalidator
	Logger  zerolog.Logger
}

// HandleReportInvalidate flushes the report cache.
func (h Handlers) HandleReportInvalidate(ctx context.Context, t *asynq.Task) error {
	var p ReportInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if h.Reports == nil {
		return nil
	}
	if err := h.Reports.Invalidate(ctx); err != nil {
		return err
	}
	h.Logger.Debug().Str("reason", p.Reason).Str("ref_id", p.RefID).Msg("report_cache_invalidated")
	return nil
}

// HandleStockLow records a low stock alert.
func (h Handlers) HandleStockLow(_ context.Context, t *asynq.Task) error {
	var p StockLowPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	obs.LowStock()
	h.Logger.Warn().
		Str("item_id", p.ItemID).
		Str("item", p.Name).
		Int("stock", p.Stock).
		Int("threshold", p.Threshold).
		Msg("low_stock")
	return nil
}

// Mux routes task types to handlers with metrics recorded per task.
func (h Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(observe)
	mux.HandleFunc(TypeReportInvalidate, h.HandleReportInvalidate)
	mux.HandleFunc(TypeStockLow, h.HandleStockLow)
	return mux
}

func observe(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		status := "ok"
		if err != nil {
			status = "error"
		}
		Processed(t.Type(), status, time.Since(start))
		return err
	})
}
