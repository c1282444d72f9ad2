package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/vehicle-catalog/internal/domain"
)

// defaultFetchBatchSize bounds how many page requests are in flight at once:
// enough for throughput, small enough not to hammer the remote service.
const defaultFetchBatchSize = 6

// FetchResult is the merged outcome of a full catalog refresh.
type FetchResult struct {
	Vehicles   []domain.VehicleRecord
	TotalItems int
	UpdatedAt  time.Time
}

// CatalogFetcher pulls the full catalog. FetchCatalogUseCase is the canonical
// implementation; adapters may wrap it to observe refresh outcomes.
type CatalogFetcher interface {
	FetchAll(ctx context.Context, query domain.CatalogQuery) (*FetchResult, error)
}

// FetchCatalogUseCase pulls the full paginated catalog through the gateway:
// page 1 first to learn the envelope, then the remaining pages in bounded
// concurrent batches with id-keyed de-duplication across all of them.
type FetchCatalogUseCase struct {
	gateway   domain.CatalogGateway
	logger    *slog.Logger
	batchSize int
}

// NewFetchCatalogUseCase creates a new catalog fetcher.
func NewFetchCatalogUseCase(gateway domain.CatalogGateway, logger *slog.Logger) *FetchCatalogUseCase {
	return &FetchCatalogUseCase{
		gateway:   gateway,
		logger:    logger.With("component", "catalog_fetcher"),
		batchSize: defaultFetchBatchSize,
	}
}

// FetchAll retrieves and merges every catalog page. A single failing page
// fails the whole refresh attempt; the caller is responsible for keeping the
// previously cached snapshot in place.
func (uc *FetchCatalogUseCase) FetchAll(ctx context.Context, query domain.CatalogQuery) (*FetchResult, error) {
	first, err := uc.gateway.FetchPage(ctx, query, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog page 1: %w", err)
	}

	// Concurrent pagination over data that can shift between requests may
	// return overlapping pages; the seen set drops repeats.
	seen := make(map[string]struct{}, len(first.Content))
	vehicles := appendUnique(nil, seen, first.Content)

	for start := 2; start <= first.TotalPages; start += uc.batchSize {
		end := min(start+uc.batchSize-1, first.TotalPages)
		pages, err := uc.fetchBatch(ctx, query, start, end)
		if err != nil {
			return nil, err
		}
		for _, page := range pages {
			vehicles = appendUnique(vehicles, seen, page.Content)
		}
	}

	uc.logger.Info("catalog refresh fetched", "pages", first.TotalPages, "vehicles", len(vehicles), "total_items", first.TotalItems)

	return &FetchResult{
		Vehicles:   vehicles,
		TotalItems: first.TotalItems,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// fetchBatch fetches pages [start, end] concurrently. Results come back in
// page order so de-duplication stays deterministic.
func (uc *FetchCatalogUseCase) fetchBatch(ctx context.Context, query domain.CatalogQuery, start, end int) ([]*domain.CatalogPage, error) {
	n := end - start + 1
	pages := make([]*domain.CatalogPage, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			page := start + i
			p, err := uc.gateway.FetchPage(ctx, query, page)
			if err != nil {
				errs[i] = fmt.Errorf("fetch catalog page %d: %w", page, err)
				return
			}
			pages[i] = p
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return pages, nil
}

func appendUnique(dst []domain.VehicleRecord, seen map[string]struct{}, src []domain.VehicleRecord) []domain.VehicleRecord {
	for _, v := range src {
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}
