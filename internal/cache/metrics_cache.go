// Package cache provides a lock-free memoization cache for the FileMetrics
// and SymbolMetrics computations in internal/metrics, keyed by file content
// hash so a file whose content hash hasn't changed never gets its
// fan-in/fan-out/complexity recomputed (spec §4.3's metrics: namespace).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Cache configuration constants.
const (
	DefaultMaxContentEntries = 400
	DefaultMaxSymbolEntries  = 400
	DefaultTTL               = 2 * time.Hour
	DefaultCleanupInterval   = 10 * time.Minute
	EstimatedBytesPerEntry   = 322.0
)

// CachedMetrics is one memoized FileMetrics or SymbolMetrics payload.
type CachedMetrics struct {
	Data        interface{}
	CachedAt    int64 // Unix nano for atomic compare
	AccessCount int64 // atomic counter
	SymbolName  string
	FileID      int
}

// MetricsCache caches metrics.Computer's results using two sync.Maps: one
// keyed by content hash (so identical file content anywhere in the tree
// shares a cache entry) and one keyed by file id (so a lookup against a
// specific file's symbol always hits even if content isn't on hand).
type MetricsCache struct {
	contentCache sync.Map // map[string]*CachedMetrics
	symbolCache  sync.Map

	maxEntries    int
	ttlNanos      int64 // TTL in nanoseconds for atomic ops
	enableContent bool
	enableSymbol  bool

	hits          int64
	misses        int64
	evictions     int64
	totalRequests int64

	contentCount int64
	symbolCount  int64

	createdAt   time.Time
	lastCleanup int64
}

// CacheConfig configures a MetricsCache.
type CacheConfig struct {
	MaxContentEntries int
	MaxSymbolEntries  int
	TTL               time.Duration
	EnableContent     bool
	EnableSymbol      bool
	AutoCleanup       bool
	CleanupInterval   time.Duration
}

// DefaultCacheConfig returns the configuration cmd/magellan wires up for its
// process-lifetime metrics.Computer cache.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxContentEntries: DefaultMaxContentEntries,
		MaxSymbolEntries:  DefaultMaxSymbolEntries,
		TTL:               DefaultTTL,
		EnableContent:     true,
		EnableSymbol:      true,
		AutoCleanup:       true,
		CleanupInterval:   DefaultCleanupInterval,
	}
}

// NewMetricsCache creates a new cache, starting its background cleanup
// goroutine if config.AutoCleanup is set.
func NewMetricsCache(config CacheConfig) *MetricsCache {
	cache := &MetricsCache{
		maxEntries:    config.MaxContentEntries,
		ttlNanos:      config.TTL.Nanoseconds(),
		enableContent: config.EnableContent,
		enableSymbol:  config.EnableSymbol,
		createdAt:     time.Now(),
		lastCleanup:   time.Now().UnixNano(),
	}

	if config.AutoCleanup {
		go cache.startAutoCleanup(config.CleanupInterval)
	}

	return cache
}

// generateContentKey creates a cache key from content and symbol name.
func generateContentKey(content []byte, symbolName string) string {
	hash := sha256.Sum256(content)
	var b strings.Builder
	b.Grow(32 + 1 + len(symbolName))
	b.WriteString(hex.EncodeToString(hash[:16]))
	b.WriteByte(':')
	b.WriteString(symbolName)
	return b.String()
}

// generateSymbolKey creates a cache key from file ID and symbol name.
func generateSymbolKey(fileID int, symbolName string) string {
	var b strings.Builder
	b.Grow(11 + len(symbolName))
	b.WriteString(strconv.Itoa(fileID))
	b.WriteByte(':')
	b.WriteString(symbolName)
	return b.String()
}

// Get retrieves cached metrics for (content, fileID, symbolName), trying the
// content-hash cache first and falling back to the file-id cache, so a call
// with content == nil (no bytes on hand, only a file id) still hits.
func (mc *MetricsCache) Get(content []byte, fileID int, symbolName string) interface{} {
	atomic.AddInt64(&mc.totalRequests, 1)
	now := time.Now().UnixNano()

	if mc.enableContent && content != nil {
		key := generateContentKey(content, symbolName)
		if val, ok := mc.contentCache.Load(key); ok {
			cached := val.(*CachedMetrics)
			if now-atomic.LoadInt64(&cached.CachedAt) <= mc.ttlNanos {
				atomic.AddInt64(&cached.AccessCount, 1)
				atomic.AddInt64(&mc.hits, 1)
				return cached.Data
			}
			mc.contentCache.Delete(key) // expired, delete lazily
		}
	}

	if mc.enableSymbol {
		key := generateSymbolKey(fileID, symbolName)
		if val, ok := mc.symbolCache.Load(key); ok {
			cached := val.(*CachedMetrics)
			if now-atomic.LoadInt64(&cached.CachedAt) <= mc.ttlNanos {
				atomic.AddInt64(&cached.AccessCount, 1)
				atomic.AddInt64(&mc.hits, 1)
				return cached.Data
			}
			mc.symbolCache.Delete(key)
		}
	}

	atomic.AddInt64(&mc.misses, 1)
	return nil
}

// Put stores metrics in both caches, evicting the oldest entry from
// whichever cache just grew past its size limit.
func (mc *MetricsCache) Put(content []byte, fileID int, symbolName string, metrics interface{}) {
	now := time.Now().UnixNano()
	cached := &CachedMetrics{
		Data:        metrics,
		CachedAt:    now,
		AccessCount: 1,
		SymbolName:  symbolName,
		FileID:      fileID,
	}

	if mc.enableContent && content != nil {
		key := generateContentKey(content, symbolName)
		if _, loaded := mc.contentCache.LoadOrStore(key, cached); !loaded {
			if count := atomic.AddInt64(&mc.contentCount, 1); count > int64(mc.maxEntries) {
				mc.evictOldestFromContent()
			}
		}
	}

	if mc.enableSymbol {
		key := generateSymbolKey(fileID, symbolName)
		if _, loaded := mc.symbolCache.LoadOrStore(key, cached); !loaded {
			if count := atomic.AddInt64(&mc.symbolCount, 1); count > int64(mc.maxEntries) {
				mc.evictOldestFromSymbol()
			}
		}
	}
}

func (mc *MetricsCache) evictOldestFromContent() {
	var oldestKey interface{}
	oldestTime := time.Now().UnixNano()

	mc.contentCache.Range(func(key, value interface{}) bool {
		cached := value.(*CachedMetrics)
		if cachedAt := atomic.LoadInt64(&cached.CachedAt); cachedAt < oldestTime {
			oldestTime = cachedAt
			oldestKey = key
		}
		return true
	})

	if oldestKey != nil {
		mc.contentCache.Delete(oldestKey)
		atomic.AddInt64(&mc.contentCount, -1)
		atomic.AddInt64(&mc.evictions, 1)
	}
}

func (mc *MetricsCache) evictOldestFromSymbol() {
	var oldestKey interface{}
	oldestTime := time.Now().UnixNano()

	mc.symbolCache.Range(func(key, value interface{}) bool {
		cached := value.(*CachedMetrics)
		if cachedAt := atomic.LoadInt64(&cached.CachedAt); cachedAt < oldestTime {
			oldestTime = cachedAt
			oldestKey = key
		}
		return true
	})

	if oldestKey != nil {
		mc.symbolCache.Delete(oldestKey)
		atomic.AddInt64(&mc.symbolCount, -1)
		atomic.AddInt64(&mc.evictions, 1)
	}
}

// CleanExpired removes every entry past its TTL and returns the count
// removed.
func (mc *MetricsCache) CleanExpired() int {
	now := time.Now().UnixNano()
	cleaned := int64(0)

	contentCount := int64(0)
	mc.contentCache.Range(func(key, value interface{}) bool {
		cached := value.(*CachedMetrics)
		if now-atomic.LoadInt64(&cached.CachedAt) > mc.ttlNanos {
			mc.contentCache.Delete(key)
			cleaned++
		} else {
			contentCount++
		}
		return true
	})
	atomic.StoreInt64(&mc.contentCount, contentCount)

	symbolCount := int64(0)
	mc.symbolCache.Range(func(key, value interface{}) bool {
		cached := value.(*CachedMetrics)
		if now-atomic.LoadInt64(&cached.CachedAt) > mc.ttlNanos {
			mc.symbolCache.Delete(key)
			cleaned++
		} else {
			symbolCount++
		}
		return true
	})
	atomic.StoreInt64(&mc.symbolCount, symbolCount)

	atomic.AddInt64(&mc.evictions, cleaned)
	atomic.StoreInt64(&mc.lastCleanup, now)
	return int(cleaned)
}

func (mc *MetricsCache) startAutoCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		mc.CleanExpired()
	}
}

// Stats reports cache hit/miss/eviction counters, backing
// `magellan status --cache-stats`.
func (mc *MetricsCache) Stats() CacheStats {
	hits := atomic.LoadInt64(&mc.hits)
	misses := atomic.LoadInt64(&mc.misses)
	totalRequests := atomic.LoadInt64(&mc.totalRequests)

	hitRate := float64(0)
	if totalRequests > 0 {
		hitRate = float64(hits) / float64(totalRequests)
	}

	contentEntries := int(atomic.LoadInt64(&mc.contentCount))
	symbolEntries := int(atomic.LoadInt64(&mc.symbolCount))
	totalEntries := contentEntries + symbolEntries

	return CacheStats{
		Hits:              hits,
		Misses:            misses,
		Evictions:         atomic.LoadInt64(&mc.evictions),
		TotalRequests:     totalRequests,
		HitRate:           hitRate,
		ContentEntries:    contentEntries,
		SymbolEntries:     symbolEntries,
		TotalEntries:      totalEntries,
		CreatedAt:         mc.createdAt,
		LastCleanup:       time.Unix(0, atomic.LoadInt64(&mc.lastCleanup)),
		Uptime:            time.Since(mc.createdAt),
		EstimatedMemoryKB: float64(totalEntries) * EstimatedBytesPerEntry / 1024,
		Status:            healthStatus(hitRate),
	}
}

// CacheStats holds cache statistics for display.
type CacheStats struct {
	Hits              int64
	Misses            int64
	Evictions         int64
	TotalRequests     int64
	HitRate           float64
	ContentEntries    int
	SymbolEntries     int
	TotalEntries      int
	CreatedAt         time.Time
	LastCleanup       time.Time
	Uptime            time.Duration
	EstimatedMemoryKB float64
	Status            string
}

// Clear removes every entry and resets statistics.
func (mc *MetricsCache) Clear() {
	mc.contentCache.Range(func(key, _ interface{}) bool {
		mc.contentCache.Delete(key)
		return true
	})
	mc.symbolCache.Range(func(key, _ interface{}) bool {
		mc.symbolCache.Delete(key)
		return true
	})

	atomic.StoreInt64(&mc.hits, 0)
	atomic.StoreInt64(&mc.misses, 0)
	atomic.StoreInt64(&mc.evictions, 0)
	atomic.StoreInt64(&mc.totalRequests, 0)
	atomic.StoreInt64(&mc.contentCount, 0)
	atomic.StoreInt64(&mc.symbolCount, 0)
	atomic.StoreInt64(&mc.lastCleanup, time.Now().UnixNano())
}

func healthStatus(hitRate float64) string {
	switch {
	case hitRate >= 0.95:
		return "excellent"
	case hitRate >= 0.85:
		return "good"
	case hitRate >= 0.70:
		return "fair"
	default:
		return "poor"
	}
}
