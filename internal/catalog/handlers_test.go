package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/cache"
	"github.com/noah-isme/toko-billing/internal/catalog"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/store/memory"
)

type fixture struct {
	store  *memory.Store
	mr     *miniredis.Miniredis
	svc    *catalog.Service
	router http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mem := memory.New()
	svc, err := catalog.NewService(catalog.ServiceConfig{Items: mem, Cache: cache.New(client, time.Minute)})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api/items", catalog.NewHandler(catalog.HandlerConfig{Service: svc}).Routes)
	return fixture{store: mem, mr: mr, svc: svc, router: r}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func seed(t *testing.T, mem *memory.Store, items ...model.Item) {
	t.Helper()
	for _, it := range items {
		_, err := mem.CreateItem(context.Background(), it)
		require.NoError(t, err)
	}
}

func TestItemsCRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/items", `{"name":"Hammer","type":"Claw","size":"16oz","costPrice":60,"sellingPrice":100,"stock":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Hammer Claw (16oz)", created.DisplayName())

	rec = f.do(t, http.MethodGet, "/api/items/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/items/"+created.ID, `{"name":"Hammer","costPrice":60,"sellingPrice":110,"stock":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, 110.0, updated.SellingPrice)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	rec = f.do(t, http.MethodDelete, "/api/items/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/items/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateItemValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"blank name":     `{"name":"  ","costPrice":1,"sellingPrice":2,"stock":1}`,
		"negative cost":  `{"name":"Saw","costPrice":-1,"sellingPrice":2,"stock":1}`,
		"negative stock": `{"name":"Saw","costPrice":1,"sellingPrice":2,"stock":-4}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/items", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
		})
	}

	rec := f.do(t, http.MethodPost, "/api/items", `{"name":"Saw","unknown":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "BAD_REQUEST")
}

func TestListSearchesEveryKeyword(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store,
		model.Item{Name: "Hammer", Type: "Claw", Size: "16oz", SellingPrice: 100, Stock: 3},
		model.Item{Name: "Hammer", Type: "Sledge", Size: "4lb", SellingPrice: 300, Stock: 1},
		model.Item{Name: "Nails", Size: "2in", Barcode: "NL200", SellingPrice: 5, Stock: 500},
	)

	list := func(path string) []model.Item {
		rec := f.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var items []model.Item
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		return items
	}

	require.Len(t, list("/api/items"), 3)
	require.Len(t, list("/api/items?q=hammer"), 2)
	got := list("/api/items?q=HAMMER+claw")
	require.Len(t, got, 1)
	require.Equal(t, "Claw", got[0].Type)
	require.Len(t, list("/api/items?q=nl200"), 1)
	require.Empty(t, list("/api/items?q=hammer+nails"))
}

func TestListUsesCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store, model.Item{Name: "Saw", SellingPrice: 80, Stock: 2})
	ctx := context.Background()

	items, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, f.mr.Exists(cache.KeyItems))

	// A write behind the service's back is invisible until invalidation.
	seed(t, f.store, model.Item{Name: "Drill", SellingPrice: 900, Stock: 1})
	items, err = f.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 1)

	f.svc.Invalidate(ctx)
	items, err = f.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Drill", items[0].Name)
}

func TestMatch(t *testing.T) {
	item := model.Item{Name: "Paint Brush", Type: "Flat", Size: "2in", Barcode: "PB2"}
	require.True(t, catalog.Match(item, []string{"brush", "2in"}))
	require.True(t, catalog.Match(item, nil))
	require.False(t, catalog.Match(item, []string{"brush", "roller"}))
}
