package bill_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/bill"
	"github.com/noah-isme/toko-billing/internal/config"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/store/memory"
)

type fixture struct {
	store  *memory.Store
	router http.Handler
	bills  []model.Bill
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	mem := memory.New()
	item, err := mem.CreateItem(ctx, model.Item{Name: "Hammer", CostPrice: 60, SellingPrice: 100, Stock: 50})
	require.NoError(t, err)
	asha, err := mem.CreateCustomer(ctx, model.Customer{Name: "Asha", Phone: "9876543210", AccountNumber: "ACC-1"})
	require.NoError(t, err)
	bilal, err := mem.CreateCustomer(ctx, model.Customer{Name: "Bilal", Phone: "9876543211", AccountNumber: "ACC-2"})
	require.NoError(t, err)

	line := model.BillLine{ItemID: item.ID, Name: "Hammer", Quantity: 1, UnitPrice: 100, CustomPrice: 100, UnitCost: 60, Total: 100, TotalCost: 60}
	var bills []model.Bill
	for i, b := range []model.Bill{
		{Number: "BILL-2026-001", CustomerID: asha.ID, Items: []model.BillLine{line}, Subtotal: 100, GrandTotal: 100, PaymentType: model.PaymentCash, PartialPayment: 100, Status: model.BillCompleted},
		{Number: "BILL-2026-002", CustomerID: bilal.ID, Items: []model.BillLine{line}, Subtotal: 100, GrandTotal: 100, PaymentType: model.PaymentCredit, PartialPayment: 40, Status: model.BillPending},
	} {
		saved, _, err := mem.CreateBill(ctx, b)
		require.NoError(t, err, "bill %d", i)
		bills = append(bills, saved)
	}

	r := chi.NewRouter()
	h := &bill.Handler{Service: bill.NewService(mem, config.Shop{Name: "Mardan Hardware", Currency: "Rs."})}
	r.Route("/api/bills", h.Routes)
	return fixture{store: mem, router: r, bills: bills}
}

func (f fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeBills(t *testing.T, rec *httptest.ResponseRecorder) []model.Bill {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out []model.Bill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListBills(t *testing.T) {
	f := newFixture(t)

	all := decodeBills(t, f.get(t, "/api/bills"))
	require.Len(t, all, 2)
	require.Equal(t, "BILL-2026-002", all[0].Number)

	pending := decodeBills(t, f.get(t, "/api/bills?status=pending"))
	require.Len(t, pending, 1)
	require.Equal(t, "Bilal", pending[0].CustomerName)

	byName := decodeBills(t, f.get(t, "/api/bills?q=asha"))
	require.Len(t, byName, 1)
	require.Equal(t, "BILL-2026-001", byName[0].Number)

	byNumber := decodeBills(t, f.get(t, "/api/bills?q=2026-002"))
	require.Len(t, byNumber, 1)

	second := decodeBills(t, f.get(t, "/api/bills?page=2&limit=1"))
	require.Len(t, second, 1)
	require.Equal(t, "BILL-2026-001", second[0].Number)

	rec := f.get(t, "/api/bills?status=void")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestGetBill(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/bills/"+f.bills[1].ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Bill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, f.bills[1].Number, got.Number)
	require.Len(t, got.Items, 1)

	require.Equal(t, http.StatusNotFound, f.get(t, "/api/bills/nope").Code)
}

func TestReceipt(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/bills/"+f.bills[1].ID+"/receipt")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	body := rec.Body.String()
	require.Contains(t, body, "Mardan Hardware")
	require.Contains(t, body, "Bill No: BILL-2026-002")
	require.Contains(t, body, "<td colspan=\"3\">Current Customer Balance</td><td>Rs. 0.00</td>")
	require.Contains(t, body, "<td colspan=\"3\">New Customer Balance</td><td>Rs. 60.00</td>")

	require.Equal(t, http.StatusNotFound, f.get(t, "/api/bills/nope/receipt").Code)
}

func TestExportBills(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/bills/export?status=pending")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "Bill ID,Customer,Date"))
	require.Contains(t, lines[1], "Bilal")
	require.Contains(t, lines[1], "60.00")
}
