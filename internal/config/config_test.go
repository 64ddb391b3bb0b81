package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SHEET_CAPACITY", "SHEET_COLUMNS", "SHEET_BACKEND", "SHEET_STORAGE_KEY", "S3_USE_SSL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Capacity != 1000 || cfg.Columns != 10 {
		t.Fatalf("unexpected grid size %d/%d", cfg.Capacity, cfg.Columns)
	}
	if cfg.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Backend)
	}
	if cfg.StorageKey != "spreadsheetData" {
		t.Fatalf("unexpected storage key %q", cfg.StorageKey)
	}
	if cfg.S3UseSSL {
		t.Fatal("expected S3_USE_SSL to default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHEET_CAPACITY", "25")
	t.Setenv("SHEET_BACKEND", "Redis")
	t.Setenv("S3_USE_SSL", "true")
	cfg := Load()
	if cfg.Capacity != 25 {
		t.Fatalf("expected capacity 25, got %d", cfg.Capacity)
	}
	if cfg.Backend != BackendRedis {
		t.Fatalf("expected backend to be lower-cased, got %q", cfg.Backend)
	}
	if !cfg.S3UseSSL {
		t.Fatal("expected S3_USE_SSL=true to parse")
	}
}

func TestLoadIgnoresBadNumbers(t *testing.T) {
	t.Setenv("SHEET_COLUMNS", "ten")
	t.Setenv("S3_USE_SSL", "maybe")
	cfg := Load()
	if cfg.Columns != 10 {
		t.Fatalf("expected fallback columns, got %d", cfg.Columns)
	}
	if cfg.S3UseSSL {
		t.Fatal("expected fallback for unparsable bool")
	}
}
