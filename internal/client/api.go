package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/model"
)

// LoginResult is the token issued by POST /api/auth/login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PaymentResult is the response of POST /api/payments.
type PaymentResult struct {
	Transaction model.Transaction `json:"transaction"`
	Customer    model.Customer    `json:"customer"`
}

// Export names a downloadable CSV.
type Export string

const (
	ExportBills        Export = "bills"
	ExportCustomers    Export = "customers"
	ExportTransactions Export = "transactions"
)

func search(q string) url.Values {
	if q == "" {
		return nil
	}
	return url.Values{"q": {q}}
}

// Login exchanges staff credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, call{op: billing.OpLogin, method: http.MethodPost, path: "/api/auth/login",
		body: map[string]string{"username": username, "password": password}}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// ListItems returns the catalog, optionally filtered by keywords.
func (c *Client) ListItems(ctx context.Context, query string) ([]model.Item, error) {
	var out []model.Item
	err := c.do(ctx, call{op: billing.OpListItems, method: http.MethodGet, path: "/api/items", query: search(query)}, &out)
	return out, err
}

// GetItem returns one item.
func (c *Client) GetItem(ctx context.Context, id string) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, call{op: billing.OpGetItem, method: http.MethodGet, path: "/api/items/" + url.PathEscape(id)}, &out)
	return out, err
}

// CreateItem adds a catalog item.
func (c *Client) CreateItem(ctx context.Context, item model.Item) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, call{op: billing.OpSaveItem, method: http.MethodPost, path: "/api/items", body: item}, &out)
	return out, err
}

// UpdateItem replaces a catalog item.
func (c *Client) UpdateItem(ctx context.Context, item model.Item) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, call{op: billing.OpSaveItem, method: http.MethodPut, path: "/api/items/" + url.PathEscape(item.ID), body: item}, &out)
	return out, err
}

// DeleteItem removes a catalog item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, call{op: billing.OpDeleteItem, method: http.MethodDelete, path: "/api/items/" + url.PathEscape(id)}, nil)
}

// ListCustomers returns customers, optionally filtered by keywords.
func (c *Client) ListCustomers(ctx context.Context, query string) ([]model.Customer, error) {
	var out []model.Customer
	err := c.do(ctx, call{op: billing.OpListCustomers, method: http.MethodGet, path: "/api/customers", query: search(query)}, &out)
	return out, err
}

// GetCustomer returns one customer with the current balance.
func (c *Client) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	var out model.Customer
	err := c.do(ctx, call{op: billing.OpGetCustomer, method: http.MethodGet, path: "/api/customers/" + url.PathEscape(id)}, &out)
	return out, err
}

// CreateCustomer opens an account.
func (c *Client) CreateCustomer(ctx context.Context, cust model.Customer) (model.Customer, error) {
	var out model.Customer
	err := c.do(ctx, call{op: billing.OpSaveCustomer, method: http.MethodPost, path: "/api/customers", body: cust}, &out)
	return out, err
}

// UpdateCustomer edits an account. The balance is ignored by the server.
func (c *Client) UpdateCustomer(ctx context.Context, cust model.Customer) (model.Customer, error) {
	var out model.Customer
	err := c.do(ctx, call{op: billing.OpSaveCustomer, method: http.MethodPut, path: "/api/customers/" + url.PathEscape(cust.ID), body: cust}, &out)
	return out, err
}

// DeleteCustomer removes an account.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	return c.do(ctx, call{op: billing.OpDeleteCustomer, method: http.MethodDelete, path: "/api/customers/" + url.PathEscape(id)}, nil)
}

// CreateBill submits a checkout. Each call carries a fresh Idempotency-Key
// shared by its retries.
func (c *Client) CreateBill(ctx context.Context, payload billing.BillPayload) (billing.CheckoutResult, error) {
	var out billing.CheckoutResult
	err := c.do(ctx, call{
		op:      billing.OpCheckout,
		method:  http.MethodPost,
		path:    "/api/bills",
		body:    payload,
		headers: map[string]string{idempotencyHeader: newIdempotencyKey()},
	}, &out)
	return out, err
}

// ListBills returns bill history, newest first. status may be empty.
func (c *Client) ListBills(ctx context.Context, status model.BillStatus, query string) ([]model.Bill, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if query != "" {
		q.Set("q", query)
	}
	var out []model.Bill
	err := c.do(ctx, call{op: billing.OpListBills, method: http.MethodGet, path: "/api/bills", query: q}, &out)
	return out, err
}

// GetBill returns a bill with its lines.
func (c *Client) GetBill(ctx context.Context, id string) (model.Bill, error) {
	var out model.Bill
	err := c.do(ctx, call{op: billing.OpGetBill, method: http.MethodGet, path: "/api/bills/" + url.PathEscape(id)}, &out)
	return out, err
}

// Receipt writes the HTML receipt of a bill to w.
func (c *Client) Receipt(ctx context.Context, id string, w io.Writer) error {
	return c.download(ctx, call{op: billing.OpGetBill, method: http.MethodGet, path: "/api/bills/" + url.PathEscape(id) + "/receipt"}, w)
}

// ListTransactions returns a customer's ledger, newest first.
func (c *Client) ListTransactions(ctx context.Context, customerID string) ([]model.Transaction, error) {
	var out []model.Transaction
	err := c.do(ctx, call{op: billing.OpTransactions, method: http.MethodGet, path: "/api/transactions",
		query: url.Values{"customerId": {customerID}}}, &out)
	return out, err
}

// RecordPayment records a manual payment.
func (c *Client) RecordPayment(ctx context.Context, p model.Payment) (PaymentResult, error) {
	var out PaymentResult
	err := c.do(ctx, call{
		op:      billing.OpPayment,
		method:  http.MethodPost,
		path:    "/api/payments",
		body:    p,
		headers: map[string]string{idempotencyHeader: newIdempotencyKey()},
	}, &out)
	return out, err
}

func reportQuery(period model.ReportPeriod, startDate, endDate string) url.Values {
	q := url.Values{"period": {string(period)}}
	if period == model.PeriodCustom {
		q.Set("startDate", startDate)
		q.Set("endDate", endDate)
	}
	return q
}

// SalesReport returns sales buckets for period.
func (c *Client) SalesReport(ctx context.Context, period model.ReportPeriod, startDate, endDate string) ([]model.SalesReport, error) {
	var out []model.SalesReport
	err := c.do(ctx, call{op: billing.OpSalesReport, method: http.MethodGet, path: "/api/reports/sales",
		query: reportQuery(period, startDate, endDate)}, &out)
	return out, err
}

// SalesSummary returns the totals of a sales report.
func (c *Client) SalesSummary(ctx context.Context, period model.ReportPeriod, startDate, endDate string) (model.SalesSummary, error) {
	var out model.SalesSummary
	err := c.do(ctx, call{op: billing.OpSalesReport, method: http.MethodGet, path: "/api/reports/sales/summary",
		query: reportQuery(period, startDate, endDate)}, &out)
	return out, err
}

// ExportSales writes the sales report as csv or xlsx to w.
func (c *Client) ExportSales(ctx context.Context, period model.ReportPeriod, startDate, endDate, format string, w io.Writer) error {
	q := reportQuery(period, startDate, endDate)
	q.Set("format", format)
	return c.download(ctx, call{op: billing.OpSalesReport, method: http.MethodGet, path: "/api/reports/sales/export", query: q}, w)
}

// ExportCSV writes one of the CSV exports to w. query is passed through,
// e.g. customerId for transactions or status for bills.
func (c *Client) ExportCSV(ctx context.Context, kind Export, query url.Values, w io.Writer) error {
	op := billing.OpListBills
	switch kind {
	case ExportCustomers:
		op = billing.OpListCustomers
	case ExportTransactions:
		op = billing.OpTransactions
	}
	return c.download(ctx, call{op: op, method: http.MethodGet, path: "/api/" + string(kind) + "/export", query: query}, w)
}
