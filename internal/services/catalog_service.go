// internal/services/catalog_service.go
package services

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
)

// searchPrefetch bounds how many catalog rows are ranked per search.
const searchPrefetch = 500

// CatalogService is the read-only card catalog adapter with a printing cache.
type CatalogService struct {
	store       store.Store
	cache       *lru.Cache
	searchLimit int
}

type catalogItems []*models.CardCatalogEntry

func (c catalogItems) Len() int            { return len(c) }
func (c catalogItems) String(i int) string { return strings.ToLower(c[i].Name) }

func NewCatalogService(st store.Store, cfg config.CatalogConfig) (*CatalogService, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CatalogService{store: st, cache: cache, searchLimit: cfg.SearchLimit}, nil
}

// Resolve looks up printings, serving repeats from the cache.
func (s *CatalogService) Resolve(ctx context.Context, printingIDs []string) (map[string]*models.CardCatalogEntry, error) {
	out := make(map[string]*models.CardCatalogEntry, len(printingIDs))
	var misses []string
	seen := make(map[string]bool, len(printingIDs))

	for _, id := range printingIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if v, ok := s.cache.Get(id); ok {
			out[id] = v.(*models.CardCatalogEntry)
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return out, nil
	}

	found, err := s.store.GetCards(ctx, misses)
	if err != nil {
		return nil, upstream("catalog lookup", err)
	}
	for id, card := range found {
		s.cache.Add(id, card)
		out[id] = card
	}
	return out, nil
}

// Get resolves one printing.
func (s *CatalogService) Get(ctx context.Context, printingID string) (*models.CardCatalogEntry, error) {
	cards, err := s.Resolve(ctx, []string{printingID})
	if err != nil {
		return nil, err
	}
	card, ok := cards[printingID]
	if !ok {
		return nil, ErrNotFound
	}
	return card, nil
}

// Attach sets Card on every entry whose printing is in the catalog.
func (s *CatalogService) Attach(ctx context.Context, entries []*models.CollectionEntry) error {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.PrintingID
	}
	cards, err := s.Resolve(ctx, ids)
	if err != nil {
		return err
	}
	for _, e := range entries {
		e.Card = cards[e.PrintingID]
	}
	return nil
}

// Search ranks catalog cards by fuzzy name match. The store prefetches on the
// longest query word, so results always share at least that word.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]*models.CardCatalogEntry, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || (s.searchLimit > 0 && limit > s.searchLimit) {
		limit = s.searchLimit
	}

	candidates, err := s.store.FindCardsByName(ctx, longestWord(query), searchPrefetch)
	if err != nil {
		return nil, upstream("catalog search", err)
	}

	items := catalogItems(candidates)
	matches := fuzzy.FindFrom(query, items)

	results := make([]*models.CardCatalogEntry, 0, len(matches))
	for _, m := range matches {
		if limit > 0 && len(results) == limit {
			break
		}
		results = append(results, items[m.Index])
	}
	return results, nil
}

func longestWord(q string) string {
	var best string
	for _, w := range strings.Fields(q) {
		if len(w) > len(best) {
			best = w
		}
	}
	return best
}
