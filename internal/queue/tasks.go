package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	TypeReportInvalidate = "report:invalidate"
	TypeStockLow         = "stock:low"
)

// ReportInvalidatePayload carries the event that made cached reports stale.
type ReportInvalidatePayload struct {
	Reason string `json:"reason"`
	RefID  string `json:"refId"`
}

// StockLowPayload describes an item that dropped under the alert threshold.
type StockLowPayload struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// NewReportInvalidateTask builds a report:invalidate task. Bursts of sales
// collapse into one task per few seconds.
func NewReportInvalidateTask(p ReportInvalidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("queue: encode %s: %w", TypeReportInvalidate, err)
	}
	return asynq.NewTask(TypeReportInvalidate, data, asynq.MaxRetry(5), asynq.Unique(5*time.Second)), nil
}

// NewStockLowTask builds a stock:low task.
func NewStockLowTask(p StockLowPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("queue: encode %s: %w", TypeStockLow, err)
	}
	return asynq.NewTask(TypeStockLow, data, asynq.MaxRetry(3)), nil
}
