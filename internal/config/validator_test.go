package config

import (
	"testing"
)

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := &Config{
		Project: Project{
			Root: "/test/root",
			Name: "test-project",
		},
		Index: Index{
			MaxFileSize:    1024 * 1024,
			MaxTotalSizeMB: 1000,
			MaxFileCount:   10000,
		},
		Performance: Performance{
			MaxGoroutines:       1,
			ParallelFileWorkers: 1,
		},
		Search: Search{
			MaxResults: 100,
		},
	}

	validator := NewValidator()
	if err := validator.ValidateAndSetDefaults(cfg); err != nil {
		t.Fatalf("ValidateAndSetDefaults failed: %v", err)
	}

	if cfg.Performance.IndexingTimeoutSec == 0 {
		t.Errorf("IndexingTimeoutSec should have been set to a default")
	}
	if cfg.Index.WatchDebounceMs == 0 {
		t.Errorf("WatchDebounceMs should have been set to a default")
	}
	if cfg.Backend.Kind == "" {
		t.Errorf("Backend.Kind should have a default value")
	}
}

func TestValidateProjectConfig(t *testing.T) {
	validator := NewValidator()

	if err := validator.validateProjectConfig(&Project{Root: "/test/root"}); err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	if err := validator.validateProjectConfig(&Project{Root: ""}); err == nil {
		t.Errorf("Expected error for empty root")
	}
}

func TestValidateIndexConfig(t *testing.T) {
	validator := NewValidator()

	err := validator.validateIndexConfig(&Index{
		MaxFileSize:    1024 * 1024,
		MaxTotalSizeMB: 1000,
		MaxFileCount:   10000,
	})
	if err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	if err := validator.validateIndexConfig(&Index{MaxFileSize: 0, MaxTotalSizeMB: 1000, MaxFileCount: 10000}); err == nil {
		t.Errorf("Expected error for zero MaxFileSize")
	}
	if err := validator.validateIndexConfig(&Index{MaxFileSize: 1024 * 1024, MaxTotalSizeMB: 0, MaxFileCount: 10000}); err == nil {
		t.Errorf("Expected error for zero MaxTotalSizeMB")
	}
	if err := validator.validateIndexConfig(&Index{MaxFileSize: 1024 * 1024, MaxTotalSizeMB: 1000, MaxFileCount: 0}); err == nil {
		t.Errorf("Expected error for zero MaxFileCount")
	}
	if err := validator.validateIndexConfig(&Index{MaxFileSize: 1024 * 1024, MaxTotalSizeMB: 1000, MaxFileCount: 10000, WatchDebounceMs: -1}); err == nil {
		t.Errorf("Expected error for negative WatchDebounceMs")
	}
}

func TestValidatePerformanceConfig(t *testing.T) {
	validator := NewValidator()

	if err := validator.validatePerformanceConfig(&Performance{MaxGoroutines: 4, ParallelFileWorkers: 8}); err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	// zero means auto-detect, handled by setSmartDefaults
	if err := validator.validatePerformanceConfig(&Performance{MaxGoroutines: 0, ParallelFileWorkers: 0}); err != nil {
		t.Errorf("Expected no error for auto-detect values, got %v", err)
	}

	if err := validator.validatePerformanceConfig(&Performance{MaxGoroutines: -1, ParallelFileWorkers: 8}); err == nil {
		t.Errorf("Expected error for negative MaxGoroutines")
	}
	if err := validator.validatePerformanceConfig(&Performance{MaxGoroutines: 4, ParallelFileWorkers: -1}); err == nil {
		t.Errorf("Expected error for negative ParallelFileWorkers")
	}
	if err := validator.validatePerformanceConfig(&Performance{MaxGoroutines: 4, ParallelFileWorkers: 1, IndexingTimeoutSec: -1}); err == nil {
		t.Errorf("Expected error for negative IndexingTimeoutSec")
	}
}

func TestValidateSearchConfig(t *testing.T) {
	validator := NewValidator()

	if err := validator.validateSearchConfig(&Search{MaxResults: 100}); err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}
	if err := validator.validateSearchConfig(&Search{MaxResults: -10}); err == nil {
		t.Errorf("Expected error for negative MaxResults")
	}
	if err := validator.validateSearchConfig(&Search{DefaultContextLines: -1}); err == nil {
		t.Errorf("Expected error for negative DefaultContextLines")
	}
}

func TestValidateBackendConfig(t *testing.T) {
	validator := NewValidator()

	if err := validator.validateBackendConfig(&Backend{Kind: "native"}); err != nil {
		t.Errorf("Expected no error for native backend, got %v", err)
	}
	if err := validator.validateBackendConfig(&Backend{Kind: "relational"}); err != nil {
		t.Errorf("Expected no error for relational backend, got %v", err)
	}
	if err := validator.validateBackendConfig(&Backend{Kind: "bogus"}); err == nil {
		t.Errorf("Expected error for unknown backend kind")
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := &Config{
		Project: Project{Root: "/test/root", Name: "test-project"},
		Index: Index{
			MaxFileSize:    1024 * 1024,
			MaxTotalSizeMB: 1000,
			MaxFileCount:   10000,
		},
		Performance: Performance{MaxGoroutines: 1, ParallelFileWorkers: 1},
		Search:      Search{MaxResults: 100},
	}

	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}

	invalidCfg := &Config{Project: Project{Root: ""}}
	if err := ValidateConfig(invalidCfg); err == nil {
		t.Errorf("Expected error for invalid config")
	}
}

func TestSetSmartDefaults(t *testing.T) {
	cfg := &Config{
		Project: Project{Root: "/test/root", Name: "test-project"},
		Index: Index{
			MaxFileSize:    1024 * 1024,
			MaxTotalSizeMB: 1000,
			MaxFileCount:   10000,
		},
		Performance: Performance{},
		Search:      Search{},
	}

	validator := NewValidator()
	validator.setSmartDefaults(cfg)

	if cfg.Performance.MaxGoroutines == 0 {
		t.Errorf("MaxGoroutines should have been set")
	}
	if cfg.Performance.ParallelFileWorkers == 0 {
		t.Errorf("ParallelFileWorkers should have been set")
	}
	if cfg.Index.WatchDebounceMs == 0 {
		t.Errorf("WatchDebounceMs should have been set")
	}
	if cfg.Backend.Kind == "" {
		t.Errorf("Backend.Kind should have been set")
	}
}

func BenchmarkValidateAndSetDefaults(b *testing.B) {
	cfg := &Config{
		Project: Project{Root: "/test/root", Name: "test-project"},
		Index: Index{
			MaxFileSize:    1024 * 1024,
			MaxTotalSizeMB: 1000,
			MaxFileCount:   10000,
		},
		Performance: Performance{MaxGoroutines: 4, ParallelFileWorkers: 4},
		Search:      Search{MaxResults: 100},
	}

	validator := NewValidator()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		testCfg := *cfg
		_ = validator.ValidateAndSetDefaults(&testCfg)
	}
}
