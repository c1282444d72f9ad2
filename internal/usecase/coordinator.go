package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/vehicle-catalog/internal/domain"
)

const (
	defaultStaleTTL         = 5 * time.Minute
	defaultOffloadThreshold = 300
)

// CoordinatorOptions configures one coordinator instance.
type CoordinatorOptions struct {
	// RefreshOnMount triggers a catalog refresh on Start when the vehicle
	// cache is absent or older than StaleTTL.
	RefreshOnMount bool

	// FetchIfEmpty triggers a refresh on Start only when the vehicle cache
	// holds nothing at all.
	FetchIfEmpty bool

	// StaleTTL is the vehicle cache time-to-live. Defaults to 5 minutes.
	StaleTTL time.Duration

	// OffloadThreshold is the vehicle count above which aggregation moves to
	// the worker strategy. Defaults to 300.
	OffloadThreshold int

	// Query is forwarded to the remote catalog on every refresh.
	Query domain.CatalogQuery
}

// View is the reactive triple exposed to UI consumers: whatever the caches
// currently hold plus a loading indicator for in-flight refreshes. Loading is
// for display only; it never gates correctness.
type View struct {
	Vehicles   []domain.VehicleRecord `json:"vehicles"`
	Buckets    []domain.BucketMeta    `json:"buckets"`
	TotalItems int                    `json:"total_items"`
	Loading    bool                   `json:"loading"`
}

// Coordinator wires the stores, the fetcher, and the aggregation strategies
// together. Each instance is independent state over the two shared caches:
// any number of coordinators (in this or other processes) converge to the
// same visible state through the stores' subscribe mechanism.
type Coordinator struct {
	vehicles domain.VehicleStore
	buckets  domain.BucketStore
	fetcher  CatalogFetcher
	chunked  domain.AggregationStrategy
	offload  domain.AggregationStrategy
	logger   *slog.Logger
	opts     CoordinatorOptions

	mu           sync.Mutex
	view         View
	vehicleEntry *domain.CacheEntry[domain.VehicleSet]
	bucketEntry  *domain.CacheEntry[domain.BucketSet]
	listeners    map[string]func(View)
	unsubs       []func()
	closed       bool
}

// NewCoordinator creates a coordinator over the given stores and strategies.
func NewCoordinator(
	vehicles domain.VehicleStore,
	buckets domain.BucketStore,
	fetcher CatalogFetcher,
	chunked, offload domain.AggregationStrategy,
	logger *slog.Logger,
	opts CoordinatorOptions,
) *Coordinator {
	if opts.StaleTTL <= 0 {
		opts.StaleTTL = defaultStaleTTL
	}
	if opts.OffloadThreshold <= 0 {
		opts.OffloadThreshold = defaultOffloadThreshold
	}
	return &Coordinator{
		vehicles:  vehicles,
		buckets:   buckets,
		fetcher:   fetcher,
		chunked:   chunked,
		offload:   offload,
		logger:    logger.With("component", "coordinator"),
		opts:      opts,
		listeners: make(map[string]func(View)),
	}
}

// Start hydrates from the caches, subscribes to live updates for the lifetime
// of the instance, and performs any refresh the options call for. It blocks
// until the initial reconciliation is done; afterwards the coordinator sits
// idle reacting to cache writes from anywhere until Close.
func (c *Coordinator) Start(ctx context.Context) {
	// Memory mirrors first so a consumer attached right after Start never
	// sees a guaranteed-empty state while the backend responds.
	c.mu.Lock()
	if e := c.vehicles.Memory(); e != nil {
		c.vehicleEntry = e
		c.view.Vehicles = e.Payload.Vehicles
		c.view.TotalItems = e.Payload.TotalItems
	}
	if e := c.buckets.Memory(); e != nil {
		c.bucketEntry = e
		c.view.Buckets = e.Payload.Buckets
	}
	c.mu.Unlock()

	unsubVehicles := c.vehicles.Subscribe(func(entry domain.CacheEntry[domain.VehicleSet]) {
		c.onVehicleEntry(ctx, entry)
	})
	unsubBuckets := c.buckets.Subscribe(c.onBucketEntry)

	c.mu.Lock()
	c.unsubs = append(c.unsubs, unsubVehicles, unsubBuckets)
	c.mu.Unlock()

	// Subscriptions miss anything written before they attached, so read the
	// backends once to pick up the latest persisted state.
	if entry, err := c.vehicles.Read(ctx); err == nil && entry != nil {
		c.onVehicleEntry(ctx, *entry)
	}
	if entry, err := c.buckets.Read(ctx); err == nil && entry != nil {
		c.onBucketEntry(*entry)
	}

	if c.needsRefresh() {
		c.Refresh(ctx)
	}
}

// Close detaches the coordinator from the stores. In-flight work started
// before Close still completes and writes to the shared caches, which other
// instances benefit from.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// Snapshot returns the current view.
func (c *Coordinator) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Subscribe registers a listener invoked with every view change. The returned
// function removes the listener.
func (c *Coordinator) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.NewString()
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Refresh pulls the full catalog and writes it to the vehicle store. A failed
// refresh leaves the previously cached snapshot untouched; the only visible
// effect is the loading flag clearing with stale data still in place.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.setLoading(true)
	defer c.setLoading(false)

	res, err := c.fetcher.FetchAll(ctx, c.opts.Query)
	if err != nil {
		c.logger.Warn("catalog refresh failed, keeping cached snapshot", "error", err)
		return err
	}

	c.vehicles.Write(ctx, domain.VehicleSet{Vehicles: res.Vehicles, TotalItems: res.TotalItems})
	return nil
}

func (c *Coordinator) needsRefresh() bool {
	c.mu.Lock()
	entry := c.vehicleEntry
	c.mu.Unlock()

	if c.opts.RefreshOnMount {
		if entry == nil || domain.IsStale(entry.UpdatedAt, c.opts.StaleTTL) {
			return true
		}
	}
	if c.opts.FetchIfEmpty {
		if entry == nil || len(entry.Payload.Vehicles) == 0 {
			return true
		}
	}
	return false
}

func (c *Coordinator) onVehicleEntry(ctx context.Context, entry domain.CacheEntry[domain.VehicleSet]) {
	c.mu.Lock()
	c.vehicleEntry = &entry
	c.view.Vehicles = entry.Payload.Vehicles
	c.view.TotalItems = entry.Payload.TotalItems
	view := c.view
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, view)
	c.maybeRecompute(ctx, entry)
}

func (c *Coordinator) onBucketEntry(entry domain.CacheEntry[domain.BucketSet]) {
	c.mu.Lock()
	c.bucketEntry = &entry
	c.view.Buckets = entry.Payload.Buckets
	view := c.view
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, view)
}

// maybeRecompute recomputes buckets only when the cached buckets are provably
// out of date relative to the vehicle snapshot. Timestamp equality with the
// recorded source is a sufficient skip condition; content is never compared.
func (c *Coordinator) maybeRecompute(ctx context.Context, entry domain.CacheEntry[domain.VehicleSet]) {
	c.mu.Lock()
	bucketEntry := c.bucketEntry
	c.mu.Unlock()

	if bucketEntry != nil && bucketEntry.Payload.SourceVehiclesUpdatedAt.Equal(entry.UpdatedAt) {
		return
	}

	strategy := c.chunked
	name := "chunked"
	if len(entry.Payload.Vehicles) > c.opts.OffloadThreshold {
		strategy = c.offload
		name = "offload"
	}

	buckets, err := strategy.Aggregate(ctx, entry.Payload.Vehicles)
	if err != nil {
		// Only cancellation reaches here; worker failures already fell back.
		c.logger.Warn("bucket aggregation aborted", "error", err, "strategy", name)
		return
	}

	// A newer snapshot may have landed while aggregating; its own recompute
	// supersedes this result.
	c.mu.Lock()
	current := c.vehicleEntry
	c.mu.Unlock()
	if current == nil || !current.UpdatedAt.Equal(entry.UpdatedAt) {
		c.logger.Debug("dropping superseded bucket computation", "computed_from", entry.UpdatedAt)
		return
	}

	c.buckets.Write(ctx, domain.BucketSet{
		Buckets:                 buckets,
		SourceVehiclesUpdatedAt: entry.UpdatedAt,
	})
}

func (c *Coordinator) setLoading(loading bool) {
	c.mu.Lock()
	c.view.Loading = loading
	view := c.view
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, view)
}

// snapshotListeners must be called with c.mu held.
func (c *Coordinator) snapshotListeners() []func(View) {
	out := make([]func(View), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(View), view View) {
	for _, fn := range listeners {
		fn(view)
	}
}
