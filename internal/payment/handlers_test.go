package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/events"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/obs"
	"github.com/noah-isme/toko-billing/internal/payment"
	"github.com/noah-isme/toko-billing/internal/store/memory"
)

type fixture struct {
	store    *memory.Store
	router   http.Handler
	customer model.Customer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	mem := memory.New()
	cust, err := mem.CreateCustomer(ctx, model.Customer{Name: "Asha", Phone: "9876543210", AccountNumber: "ACC-1"})
	require.NoError(t, err)
	item, err := mem.CreateItem(ctx, model.Item{Name: "Hammer", CostPrice: 60, SellingPrice: 100, Stock: 5})
	require.NoError(t, err)
	_, _, err = mem.CreateBill(ctx, model.Bill{
		CustomerID:  cust.ID,
		Number:      "BILL-2026-001",
		Items:       []model.BillLine{{ItemID: item.ID, Quantity: 2, UnitPrice: 100, CustomPrice: 100, UnitCost: 60, Total: 200, TotalCost: 120}},
		Subtotal:    200,
		GrandTotal:  200,
		PaymentType: model.PaymentCredit,
		Status:      model.BillPending,
	})
	require.NoError(t, err)

	h := &payment.Handler{Svc: &payment.Service{Repo: mem, Bus: &events.Bus{Store: mem}}}
	r := chi.NewRouter()
	r.Route("/api/payments", h.PaymentRoutes)
	r.Route("/api/transactions", h.TransactionRoutes)
	return fixture{store: mem, router: r, customer: cust}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestRecordPayment(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("billing", reg)
	f := newFixture(t)
	before := testutil.ToFloat64(obs.PaymentsRecordedTotal.WithLabelValues("cash"))

	rec := f.do(t, http.MethodPost, "/api/payments", `{"customerId":"`+f.customer.ID+`","amount":75.5,"paymentMethod":"cash"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out payment.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.InDelta(t, 124.5, out.Customer.Balance, 0.001)
	require.Equal(t, model.TxPayment, out.Transaction.Type)
	require.InDelta(t, -75.5, out.Transaction.Amount, 0.001)
	require.Equal(t, "Payment for Asha", out.Transaction.Description)
	require.Equal(t, before+1, testutil.ToFloat64(obs.PaymentsRecordedTotal.WithLabelValues("cash")))

	evs := f.store.Events()
	require.Equal(t, events.TopicPaymentRecorded, evs[len(evs)-1].Topic)
}

func TestRecordPaymentRejects(t *testing.T) {
	f := newFixture(t)

	cases := map[string]struct {
		body string
		code int
	}{
		"zero amount":    {`{"customerId":"` + f.customer.ID + `","amount":0,"paymentMethod":"cash"}`, http.StatusBadRequest},
		"negative":       {`{"customerId":"` + f.customer.ID + `","amount":-5,"paymentMethod":"cash"}`, http.StatusBadRequest},
		"bad method":     {`{"customerId":"` + f.customer.ID + `","amount":5,"paymentMethod":"cheque"}`, http.StatusBadRequest},
		"no customer":    {`{"amount":5,"paymentMethod":"cash"}`, http.StatusBadRequest},
		"unknown":        {`{"customerId":"missing","amount":5,"paymentMethod":"cash"}`, http.StatusNotFound},
		"malformed body": {`{`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/payments", tc.body)
			require.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	cust, err := f.store.GetCustomer(context.Background(), f.customer.ID)
	require.NoError(t, err)
	require.InDelta(t, 200, cust.Balance, 0.001)
}

func TestTransactions(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/payments",
		`{"customerId":"`+f.customer.ID+`","amount":50,"paymentMethod":"cash","description":"  "}`).Code)

	rec := f.do(t, http.MethodGet, "/api/transactions?customerId="+f.customer.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []model.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 2)
	require.Equal(t, model.TxPayment, txs[0].Type)
	require.InDelta(t, 150, txs[0].BalanceAfter, 0.001)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/transactions", "").Code)

	rec = f.do(t, http.MethodGet, "/api/transactions/export?customerId="+f.customer.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "Date,Type,Description,Amount"))
}
