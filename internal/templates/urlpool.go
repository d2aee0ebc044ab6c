package templates

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultFeedURL is the government open-data list of reported scam URLs.
const DefaultFeedURL = "https://www-api.moda.gov.tw/OpenData/Files/12998"

// fallbackURL is substituted when the feed has never been fetched
// successfully.
const fallbackURL = "http://example.com"

// URLPool serves known-fraudulent URLs for filling scam templates. The feed
// is fetched lazily with a bounded timeout, cached for ttl, and refreshed
// through singleflight so concurrent questions trigger at most one fetch.
// A stale cache is served over a failing feed.
type URLPool struct {
	source string
	ttl    time.Duration
	client *http.Client
	logger *zap.Logger
	sf     singleflight.Group

	mu        sync.RWMutex
	urls      []string
	fetchedAt time.Time
}

func NewURLPool(source string, ttl time.Duration, logger *zap.Logger) *URLPool {
	if source == "" {
		source = DefaultFeedURL
	}
	return &URLPool{
		source: source,
		ttl:    ttl,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Pick returns one fraudulent URL, refreshing the feed when the cache has
// expired. It never fails: feed errors degrade to the stale cache and then
// to a fixed placeholder.
func (p *URLPool) Pick(ctx context.Context, rng *rand.Rand) string {
	urls, fresh := p.cached()
	if !fresh {
		urls = p.refresh(ctx)
	}
	if len(urls) == 0 {
		return fallbackURL
	}
	return urls[rng.Intn(len(urls))]
}

func (p *URLPool) cached() ([]string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.urls) == 0 {
		return nil, false
	}
	return p.urls, time.Since(p.fetchedAt) < p.ttl
}

func (p *URLPool) refresh(ctx context.Context) []string {
	v, err, _ := p.sf.Do("feed", func() (interface{}, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		p.logger.Warn("Failed to fetch scam URL feed",
			zap.Error(err),
			zap.String("source", p.source))
		urls, _ := p.cached()
		return urls
	}
	return v.([]string)
}

func (p *URLPool) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	var urls []string
	for _, line := range strings.Split(string(body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("feed contained no URLs")
	}

	p.mu.Lock()
	p.urls = urls
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	return urls, nil
}
