package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-billing/internal/cache"
	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/store"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// Service manages catalog items. The full item list is cached; searches
// filter the cached list in memory.
type Service struct {
	items store.Items
	cache *cache.JSON
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Items store.Items
	Cache *cache.JSON
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Items == nil {
		return nil, errors.New("catalog: item store is required")
	}
	return &Service{items: cfg.Items, cache: cfg.Cache}, nil
}

// List returns items matching every keyword of query, sorted by name.
func (s *Service) List(ctx context.Context, query string) ([]model.Item, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return all, nil
	}
	out := make([]model.Item, 0, len(all))
	for _, item := range all {
		if Match(item, keywords) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Get returns one item. Reads bypass the cache so stock is current.
func (s *Service) Get(ctx context.Context, id string) (model.Item, error) {
	return s.items.GetItem(ctx, id)
}

// Create validates and stores a new item.
func (s *Service) Create(ctx context.Context, item model.Item) (model.Item, error) {
	item = normalize(item)
	if err := validation.Item(item); err != nil {
		return model.Item{}, err
	}
	item.ID = ""
	created, err := s.items.CreateItem(ctx, item)
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}
	s.Invalidate(ctx)
	return created, nil
}

// Update replaces the editable fields of an item.
func (s *Service) Update(ctx context.Context, id string, item model.Item) (model.Item, error) {
	item = normalize(item)
	item.ID = id
	if err := validation.Item(item); err != nil {
		return model.Item{}, err
	}
	updated, err := s.items.UpdateItem(ctx, item)
	if err != nil {
		return model.Item{}, fmt.Errorf("update item: %w", err)
	}
	s.Invalidate(ctx)
	return updated, nil
}

// Delete removes an item not referenced by any bill.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.items.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached item list. Checkout calls it after stock moves.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyItems); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("catalog_cache_invalidate_failed")
	}
}

func (s *Service) all(ctx context.Context) ([]model.Item, error) {
	var cached []model.Item
	hit, err := s.cache.Get(ctx, cache.KeyItems, &cached)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("catalog_cache_read_failed")
	}
	if hit {
		return cached, nil
	}
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	if err := s.cache.Set(ctx, cache.KeyItems, items); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("catalog_cache_write_failed")
	}
	return items, nil
}

// Match reports whether every lowercase keyword occurs in the item's name,
// type, size or barcode.
func Match(item model.Item, keywords []string) bool {
	haystack := strings.ToLower(strings.Join([]string{item.Name, item.Type, item.Size, item.Barcode}, " "))
	for _, kw := range keywords {
		if !strings.Contains(haystack, kw) {
			return false
		}
	}
	return true
}

func normalize(item model.Item) model.Item {
	item.Name = strings.TrimSpace(item.Name)
	item.Type = strings.TrimSpace(item.Type)
	item.Size = strings.TrimSpace(item.Size)
	item.Barcode = strings.TrimSpace(item.Barcode)
	return item
}
