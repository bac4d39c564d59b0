package cache

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/oldnordic/magellan-go/internal/types"
)

func sampleSymbolMetrics(i int) types.SymbolMetrics {
	return types.SymbolMetrics{
		SymbolID:   fmt.Sprintf("sym-%d", i),
		Name:       fmt.Sprintf("test%d", i),
		Kind:       "function",
		FilePath:   "a.go",
		LOC:        i + 1,
		Cyclomatic: 1,
	}
}

func TestMetricsCache_Creation(t *testing.T) {
	config := DefaultCacheConfig()
	cache := NewMetricsCache(config)
	if cache == nil {
		t.Fatal("NewMetricsCache returned nil")
	}
	if !cache.enableContent || !cache.enableSymbol {
		t.Error("expected both content and symbol caching enabled by default")
	}
}

func TestMetricsCache_DefaultConfig(t *testing.T) {
	config := DefaultCacheConfig()

	if config.MaxContentEntries != DefaultMaxContentEntries {
		t.Errorf("expected default max content entries %d, got %d", DefaultMaxContentEntries, config.MaxContentEntries)
	}
	if config.MaxSymbolEntries != DefaultMaxSymbolEntries {
		t.Errorf("expected default max symbol entries %d, got %d", DefaultMaxSymbolEntries, config.MaxSymbolEntries)
	}
	if config.TTL != DefaultTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultTTL, config.TTL)
	}
	if !config.EnableContent || !config.EnableSymbol {
		t.Error("expected both caching strategies enabled by default")
	}
}

// TestMetricsCache_BasicOperations exercises the Get/Put path metrics.Computer
// actually calls: a content-hash miss, a put, then a content-hash hit
// returning the exact SymbolMetrics value stored.
func TestMetricsCache_BasicOperations(t *testing.T) {
	cache := NewMetricsCache(DefaultCacheConfig())

	content := []byte("func test() { return 42 }")
	fileID := 1
	symbolName := "test"
	sm := sampleSymbolMetrics(1)

	if got := cache.Get(content, fileID, symbolName); got != nil {
		t.Error("expected cache miss before Put")
	}

	cache.Put(content, fileID, symbolName, sm)

	got := cache.Get(content, fileID, symbolName)
	if got == nil {
		t.Fatal("expected cache hit after Put")
	}
	gotSM, ok := got.(types.SymbolMetrics)
	if !ok {
		t.Fatalf("returned value has wrong type: %T", got)
	}
	if gotSM != sm {
		t.Errorf("returned metrics %+v != stored %+v", gotSM, sm)
	}
}

// TestMetricsCache_DualCacheStrategy confirms a lookup with a file id but
// different content still hits via the symbol-keyed cache, the behavior
// metrics.Computer relies on when it only has a content hash to check
// freshness with but wants to short-circuit on file id alone.
func TestMetricsCache_DualCacheStrategy(t *testing.T) {
	cache := NewMetricsCache(DefaultCacheConfig())

	content := []byte("func test() { return 42 }")
	fileID := 1
	symbolName := "test"
	sm := sampleSymbolMetrics(1)

	cache.Put(content, fileID, symbolName, sm)

	if cache.Get(content, fileID, symbolName) == nil {
		t.Error("content-based retrieval failed")
	}

	changedContent := []byte("func test() { return 43 }")
	if cache.Get(changedContent, fileID, symbolName) == nil {
		t.Error("symbol-based retrieval (same file id, changed content) failed")
	}
}

func TestMetricsCache_TTLExpiration(t *testing.T) {
	cache := NewMetricsCache(CacheConfig{
		MaxContentEntries: 100,
		MaxSymbolEntries:  100,
		TTL:               50 * time.Millisecond,
		EnableContent:     true,
		EnableSymbol:      true,
	})

	content := []byte("func test() { return 42 }")
	sm := sampleSymbolMetrics(1)
	cache.Put(content, 1, "test", sm)

	if cache.Get(content, 1, "test") == nil {
		t.Error("immediate retrieval failed")
	}

	time.Sleep(60 * time.Millisecond)

	if cache.Get(content, 1, "test") != nil {
		t.Error("expected expired entry, got hit")
	}
	if cache.Stats().Misses == 0 {
		t.Error("expected a recorded miss after expired entry access")
	}
}

func TestMetricsCache_SizeEviction(t *testing.T) {
	cache := NewMetricsCache(CacheConfig{
		MaxContentEntries: 3,
		MaxSymbolEntries:  3,
		TTL:               time.Hour,
		EnableContent:     true,
		EnableSymbol:      true,
	})

	for i := 0; i < 5; i++ {
		content := []byte(fmt.Sprintf("func test%d() { return %d }", i, i))
		cache.Put(content, i, fmt.Sprintf("test%d", i), sampleSymbolMetrics(i))
		time.Sleep(time.Millisecond) // distinct timestamps for eviction order
	}

	stats := cache.Stats()
	if stats.Evictions == 0 {
		t.Error("expected evictions after exceeding cache capacity")
	}

	lastContent := []byte("func test4() { return 4 }")
	if cache.Get(lastContent, 4, "test4") == nil {
		t.Error("most recently inserted entry should still be cached")
	}
}

func TestMetricsCache_ConcurrentAccess(t *testing.T) {
	cache := NewMetricsCache(DefaultCacheConfig())

	numGoroutines := runtime.NumCPU() * 2
	opsPerGoroutine := 1000

	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				symbolName := fmt.Sprintf("symbol_%d_%d", goroutineID, j%20)
				content := []byte(fmt.Sprintf("func %s() { return %d }", symbolName, j))
				fileID := goroutineID

				if cache.Get(content, fileID, symbolName) == nil {
					cache.Put(content, fileID, symbolName, sampleSymbolMetrics(j))
				}
			}
		}(g)
	}
	wg.Wait()

	stats := cache.Stats()
	if stats.TotalEntries == 0 {
		t.Error("no cache entries after concurrent access")
	}
	expectedOps := numGoroutines * opsPerGoroutine
	if int(stats.TotalRequests) < expectedOps/2 {
		t.Errorf("too few operations recorded: %d (expected ~%d)", stats.TotalRequests, expectedOps)
	}
}

func TestMetricsCache_Statistics(t *testing.T) {
	cache := NewMetricsCache(DefaultCacheConfig())

	for i := 0; i < 10; i++ {
		content := []byte(fmt.Sprintf("func test%d() {}", i))
		cache.Put(content, i, fmt.Sprintf("test%d", i), sampleSymbolMetrics(i))
	}

	for i := 0; i < 5; i++ {
		content := []byte(fmt.Sprintf("func test%d() {}", i))
		cache.Get(content, i, fmt.Sprintf("test%d", i)) // hits
	}
	for i := 10; i < 15; i++ {
		content := []byte(fmt.Sprintf("func test%d() {}", i))
		cache.Get(content, i, fmt.Sprintf("test%d", i)) // misses
	}

	stats := cache.Stats()
	if stats.Hits != 5 {
		t.Errorf("expected 5 hits, got %d", stats.Hits)
	}
	if stats.Misses != 5 {
		t.Errorf("expected 5 misses, got %d", stats.Misses)
	}
	if stats.TotalRequests != 10 {
		t.Errorf("expected 10 total requests, got %d", stats.TotalRequests)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %.2f", stats.HitRate)
	}
	if stats.TotalEntries != 20 { // dual cache: 10 content + 10 symbol entries
		t.Errorf("expected 20 total entries, got %d", stats.TotalEntries)
	}
}

func TestMetricsCache_CleanExpired(t *testing.T) {
	cache := NewMetricsCache(CacheConfig{
		MaxContentEntries: 100,
		MaxSymbolEntries:  100,
		TTL:               50 * time.Millisecond,
		EnableContent:     true,
		EnableSymbol:      true,
	})

	for i := 0; i < 5; i++ {
		content := []byte(fmt.Sprintf("func test%d() {}", i))
		cache.Put(content, i, fmt.Sprintf("test%d", i), sampleSymbolMetrics(i))
	}

	time.Sleep(60 * time.Millisecond)

	if cleaned := cache.CleanExpired(); cleaned == 0 {
		t.Error("expected entries to be cleaned")
	}
	if stats := cache.Stats(); stats.TotalEntries != 0 {
		t.Errorf("expected 0 entries after cleanup, got %d", stats.TotalEntries)
	}
}

func TestMetricsCache_Clear(t *testing.T) {
	cache := NewMetricsCache(DefaultCacheConfig())

	for i := 0; i < 5; i++ {
		content := []byte(fmt.Sprintf("func test%d() {}", i))
		cache.Put(content, i, fmt.Sprintf("test%d", i), sampleSymbolMetrics(i))
		cache.Get(content, i, fmt.Sprintf("test%d", i))
	}

	before := cache.Stats()
	if before.TotalEntries == 0 || before.Hits == 0 {
		t.Fatal("test data not properly added")
	}

	cache.Clear()

	after := cache.Stats()
	if after.TotalEntries != 0 {
		t.Errorf("expected 0 entries after clear, got %d", after.TotalEntries)
	}
	if after.Hits != 0 || after.Misses != 0 || after.TotalRequests != 0 {
		t.Error("statistics not reset after clear")
	}
}

func TestMetricsCache_HealthStatus(t *testing.T) {
	cache := NewMetricsCache(DefaultCacheConfig())

	for i := 0; i < 10; i++ {
		content := []byte(fmt.Sprintf("func test%d() {}", i))
		cache.Put(content, i, fmt.Sprintf("test%d", i), sampleSymbolMetrics(i))
	}
	for i := 0; i < 100; i++ {
		content := []byte(fmt.Sprintf("func test%d() {}", i%10))
		cache.Get(content, i%10, fmt.Sprintf("test%d", i%10))
	}

	stats := cache.Stats()
	if stats.Status != "excellent" {
		t.Errorf("expected excellent status with high hit rate, got %s (%.2f%%)", stats.Status, stats.HitRate*100)
	}
}

func TestMetricsCache_MemoryEstimation(t *testing.T) {
	cache := NewMetricsCache(DefaultCacheConfig())

	for i := 0; i < 50; i++ {
		content := []byte(fmt.Sprintf("func test%d() { return %d }", i, i))
		cache.Put(content, i, fmt.Sprintf("test%d", i), sampleSymbolMetrics(i))
	}

	stats := cache.Stats()
	expected := float64(stats.TotalEntries) * EstimatedBytesPerEntry / 1024
	if stats.EstimatedMemoryKB != expected {
		t.Errorf("memory estimate mismatch: expected %.2f KB, got %.2f KB", expected, stats.EstimatedMemoryKB)
	}
}

func BenchmarkMetricsCache_Get(b *testing.B) {
	cache := NewMetricsCache(DefaultCacheConfig())
	content := []byte("func benchmark() { return 42 }")
	cache.Put(content, 1, "benchmark", sampleSymbolMetrics(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(content, 1, "benchmark")
	}
}

func BenchmarkMetricsCache_Put(b *testing.B) {
	cache := NewMetricsCache(DefaultCacheConfig())
	content := []byte("func benchmark() { return 42 }")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Put(content, i, fmt.Sprintf("benchmark_%d", i), sampleSymbolMetrics(i))
	}
}

func BenchmarkMetricsCache_ConcurrentAccess(b *testing.B) {
	cache := NewMetricsCache(DefaultCacheConfig())
	for i := 0; i < 100; i++ {
		content := []byte(fmt.Sprintf("func test%d() {}", i))
		cache.Put(content, i, fmt.Sprintf("test%d", i), sampleSymbolMetrics(i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			symbolName := fmt.Sprintf("test%d", i%100)
			content := []byte(fmt.Sprintf("func %s() {}", symbolName))
			if cache.Get(content, i%100, symbolName) == nil {
				cache.Put(content, i%100, symbolName, sampleSymbolMetrics(i))
			}
			i++
		}
	})
}
