package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// recordingAPI keeps the last body written per route and counts calls.
type recordingAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	item     model.Item
	customer model.Customer
}

func newRecordingAPI(t *testing.T) (*recordingAPI, *httptest.Server) {
	t.Helper()
	api := &recordingAPI{
		calls:    map[string]int{},
		item:     model.Item{ID: "hammer", Name: "Hammer", Type: "Hand Tool", CostPrice: 60, SellingPrice: 100, Stock: 10},
		customer: model.Customer{ID: "asha", Name: "Asha", Phone: "0311123456", AccountNumber: "ACC-1", Balance: 75},
	}
	hit := func(route string) {
		api.mu.Lock()
		api.calls[route]++
		api.mu.Unlock()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		hit("GET item")
		api.mu.Lock()
		defer api.mu.Unlock()
		_ = json.NewEncoder(w).Encode(api.item)
	})
	mux.HandleFunc("POST /api/items", func(w http.ResponseWriter, r *http.Request) {
		hit("POST item")
		api.mu.Lock()
		defer api.mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&api.item))
		api.item.ID = "new-item"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.item)
	})
	mux.HandleFunc("PUT /api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		hit("PUT item")
		api.mu.Lock()
		defer api.mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&api.item))
		_ = json.NewEncoder(w).Encode(api.item)
	})
	mux.HandleFunc("DELETE /api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		hit("DELETE item")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/customers/{id}", func(w http.ResponseWriter, _ *http.Request) {
		hit("GET customer")
		api.mu.Lock()
		defer api.mu.Unlock()
		_ = json.NewEncoder(w).Encode(api.customer)
	})
	mux.HandleFunc("POST /api/customers", func(w http.ResponseWriter, r *http.Request) {
		hit("POST customer")
		api.mu.Lock()
		defer api.mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&api.customer))
		api.customer.ID = "new-cust"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.customer)
	})
	mux.HandleFunc("PUT /api/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		hit("PUT customer")
		api.mu.Lock()
		defer api.mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&api.customer))
		_ = json.NewEncoder(w).Encode(api.customer)
	})
	mux.HandleFunc("DELETE /api/customers/{id}", func(w http.ResponseWriter, _ *http.Request) {
		hit("DELETE customer")
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *recordingAPI) count(route string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[route]
}

func (a *recordingAPI) lastItem() model.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.item
}

func (a *recordingAPI) lastCustomer() model.Customer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.customer
}

func TestItemsAddEditRemove(t *testing.T) {
	api, srv := newRecordingAPI(t)

	out, err := run(t, "--api-url", srv.URL, "items", "add", "--name", "Wood Screws", "--type", "Fastener", "--cost", "90", "--price", "140", "--stock", "120")
	require.NoError(t, err)
	require.Contains(t, out, "added new-item Wood Screws")
	require.Equal(t, 140.0, api.lastItem().SellingPrice)

	out, err = run(t, "--api-url", srv.URL, "items", "edit", "new-item", "--price", "150")
	require.NoError(t, err)
	require.Contains(t, out, "updated new-item Wood Screws")
	got := api.lastItem()
	require.Equal(t, 150.0, got.SellingPrice)
	require.Equal(t, "Fastener", got.Type)
	require.Equal(t, 120, got.Stock)

	out, err = run(t, "--api-url", srv.URL, "items", "rm", "hammer")
	require.NoError(t, err)
	require.Contains(t, out, "deleted hammer")
	require.Equal(t, 1, api.count("DELETE item"))
}

func TestItemsRejectedBeforeSending(t *testing.T) {
	api, srv := newRecordingAPI(t)

	_, err := run(t, "--api-url", srv.URL, "items", "add", "--name", "Saw", "--price=-5")
	require.ErrorIs(t, err, validation.ErrValidation)
	require.Zero(t, api.count("POST item"))

	_, err = run(t, "--api-url", srv.URL, "items", "edit", "hammer", "--barcode", "not a code")
	require.ErrorIs(t, err, validation.ErrValidation)
	require.Zero(t, api.count("PUT item"))
}

func TestCustomersAddEditRemove(t *testing.T) {
	api, srv := newRecordingAPI(t)

	out, err := run(t, "--api-url", srv.URL, "customers", "add", "--name", "Karim Electric", "--phone", "0321123456", "--account", "ACC-1003")
	require.NoError(t, err)
	require.Contains(t, out, "added new-cust Karim Electric")

	out, err = run(t, "--api-url", srv.URL, "customers", "edit", "new-cust", "--address", "Main Bazaar")
	require.NoError(t, err)
	require.Contains(t, out, "updated new-cust Karim Electric balance 0.00")
	got := api.lastCustomer()
	require.Equal(t, "Main Bazaar", got.Address)
	require.Equal(t, "0321123456", got.Phone)

	_, err = run(t, "--api-url", srv.URL, "customers", "rm", "asha")
	require.NoError(t, err)
	require.Equal(t, 1, api.count("DELETE customer"))
}

func TestCustomersRejectedBeforeSending(t *testing.T) {
	api, srv := newRecordingAPI(t)

	_, err := run(t, "--api-url", srv.URL, "customers", "add", "--name", "Karim", "--phone", "12345", "--account", "ACC-9")
	require.ErrorIs(t, err, validation.ErrValidation)
	require.Zero(t, api.count("POST customer"))

	_, err = run(t, "--api-url", srv.URL, "customers", "edit", "asha", "--account", "ACC 1")
	require.ErrorIs(t, err, validation.ErrValidation)
	require.Zero(t, api.count("PUT customer"))
	require.Equal(t, 1, api.count("GET customer"))
}
