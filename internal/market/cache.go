package market

import (
	"context"
	"fmt"
	"sync"
	"time"
)

func optionKey(symbol, expiration string, strike float64, optionType string) string {
	return fmt.Sprintf("%s:%s:%.2f:%s", symbol, expiration, strike, optionType)
}

// DefaultQuoteTTL keeps repeated lookups for the same symbol from hitting
// the upstream feed within and across nearby cycles.
const DefaultQuoteTTL = 15 * time.Second

type cachedQuote struct {
	price     float64
	expiresAt time.Time
}

// QuoteCache wraps a QuoteFeed with a per-symbol TTL cache. Entries expire
// purely by time; keys are never shared across symbols or contracts.
type QuoteCache struct {
	mu    sync.RWMutex
	feed  QuoteFeed
	cache map[string]cachedQuote
	ttl   time.Duration
	now   func() time.Time
}

// NewQuoteCache creates a caching wrapper around feed. A zero ttl falls back
// to DefaultQuoteTTL; a nil clock falls back to time.Now.
func NewQuoteCache(feed QuoteFeed, ttl time.Duration, now func() time.Time) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	if now == nil {
		now = time.Now
	}
	return &QuoteCache{
		feed:  feed,
		cache: make(map[string]cachedQuote),
		ttl:   ttl,
		now:   now,
	}
}

func (qc *QuoteCache) get(key string) (float64, bool) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	entry, ok := qc.cache[key]
	if !ok || qc.now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.price, true
}

func (qc *QuoteCache) set(key string, price float64) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.cache[key] = cachedQuote{price: price, expiresAt: qc.now().Add(qc.ttl)}
}

// GetPrice returns the cached price for symbol, fetching from the upstream
// feed on a miss. Missing quotes are not cached.
func (qc *QuoteCache) GetPrice(ctx context.Context, symbol string) (*float64, error) {
	if price, ok := qc.get(symbol); ok {
		return &price, nil
	}

	price, err := qc.feed.GetPrice(ctx, symbol)
	if err != nil || price == nil {
		return price, err
	}

	qc.set(symbol, *price)
	return price, nil
}

// GetOptionMid returns the cached option mid for the exact contract.
func (qc *QuoteCache) GetOptionMid(ctx context.Context, symbol, expiration string, strike float64, optionType string) (*float64, error) {
	key := optionKey(symbol, expiration, strike, optionType)
	if price, ok := qc.get(key); ok {
		return &price, nil
	}

	price, err := qc.feed.GetOptionMid(ctx, symbol, expiration, strike, optionType)
	if err != nil || price == nil {
		return price, err
	}

	qc.set(key, *price)
	return price, nil
}

// CleanupExpired removes expired cache entries.
func (qc *QuoteCache) CleanupExpired() {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	now := qc.now()
	for key, entry := range qc.cache {
		if now.After(entry.expiresAt) {
			delete(qc.cache, key)
		}
	}
}
