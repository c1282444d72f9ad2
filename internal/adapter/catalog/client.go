package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/vehicle-catalog/internal/adapter/metrics"
	"github.com/user/vehicle-catalog/internal/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 20 // requests per second against the upstream catalog
	defaultBurst     = 6  // one fetch batch worth of concurrent page requests
)

// Client fetches catalog pages from the upstream HTTP API. It implements
// domain.CatalogGateway. Requests are rate limited so a full refresh does not
// hammer the upstream.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.CatalogMetrics
}

// NewClient creates a gateway against baseURL, e.g. "https://api.example.com".
// Metrics may be nil.
func NewClient(baseURL string, logger *slog.Logger, m *metrics.CatalogMetrics) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		logger:     logger.With("component", "catalog_client"),
		metrics:    m,
	}
}

// FetchPage requests a single page of the vehicle listing.
func (c *Client) FetchPage(ctx context.Context, query domain.CatalogQuery, page int) (*domain.CatalogPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(query, page), nil)
	if err != nil {
		return nil, fmt.Errorf("building page request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetching page %d: unexpected status %d", page, resp.StatusCode)
	}

	var parsed domain.CatalogPage
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding page %d: %w", page, err)
	}

	if c.metrics != nil {
		c.metrics.PagesFetchedTotal.Inc()
	}
	c.logger.Debug("fetched catalog page",
		"page", page, "items", len(parsed.Content), "duration_ms", time.Since(start).Milliseconds())
	return &parsed, nil
}

func (c *Client) pageURL(query domain.CatalogQuery, page int) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if query.PageSize > 0 {
		params.Set("size", strconv.Itoa(query.PageSize))
	}
	if query.Filter != "" {
		params.Set("filter", query.Filter)
	}
	if query.Sort != "" {
		params.Set("sort", query.Sort)
	}
	return c.baseURL + "/v1/vehicles?" + params.Encode()
}
