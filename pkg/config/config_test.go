package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		HTTPPort:             "8080",
		PolymarketBaseURL:    "https://gamma.test",
		PolymarketPageLimit:  500,
		PolymarketMaxPages:   5,
		OddsAPIBaseURL:       "https://odds.test",
		OddsFetchConcurrency: 4,
		FeeCushion:           0.02,
		RefreshInterval:      300 * time.Second,
		HTTPRetries:          3,
		CacheMaxItems:        1000,
		StorageMode:          StorageConsole,
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("expected HTTPPort 8080, got %s", cfg.HTTPPort)
	}
	if cfg.FeeCushion != 0.02 {
		t.Errorf("expected FeeCushion 0.02, got %f", cfg.FeeCushion)
	}
	if cfg.RefreshInterval != 300*time.Second {
		t.Errorf("expected RefreshInterval 300s, got %v", cfg.RefreshInterval)
	}
	if cfg.PolymarketPageLimit != 500 || cfg.PolymarketMaxPages != 5 {
		t.Errorf("unexpected pagination defaults: %d/%d", cfg.PolymarketPageLimit, cfg.PolymarketMaxPages)
	}
	if cfg.HTTPRetries != 3 || cfg.HTTPBackoffBase != 500*time.Millisecond || cfg.HTTPTimeout != 20*time.Second {
		t.Errorf("unexpected fetcher defaults: %d %v %v", cfg.HTTPRetries, cfg.HTTPBackoffBase, cfg.HTTPTimeout)
	}
	if cfg.StorageMode != StorageConsole {
		t.Errorf("expected console storage, got %s", cfg.StorageMode)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("expected CORS origins [*], got %v", cfg.CORSOrigins)
	}
	if cfg.SportAllowlist != nil {
		t.Errorf("expected empty allowlist, got %v", cfg.SportAllowlist)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("FEE_CUSHION", "0.05")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "120")
	t.Setenv("SPORT_ALLOWLIST", " nba, nfl ,,")
	t.Setenv("INCLUDE_NON_SPORTS", "true")
	t.Setenv("STORAGE_MODE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/edge.db")
	t.Setenv("HTTP_BACKOFF_BASE", "250ms")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.FeeCushion != 0.05 {
		t.Errorf("expected FeeCushion 0.05, got %f", cfg.FeeCushion)
	}
	if cfg.RefreshInterval != 120*time.Second {
		t.Errorf("expected 120s, got %v", cfg.RefreshInterval)
	}
	if len(cfg.SportAllowlist) != 2 || cfg.SportAllowlist[0] != "nba" || cfg.SportAllowlist[1] != "nfl" {
		t.Errorf("unexpected allowlist %v", cfg.SportAllowlist)
	}
	if !cfg.IncludeNonSports {
		t.Error("expected IncludeNonSports")
	}
	if cfg.StorageMode != StorageSQLite || cfg.SQLitePath != "/tmp/edge.db" {
		t.Errorf("unexpected storage config %s %s", cfg.StorageMode, cfg.SQLitePath)
	}
	if cfg.HTTPBackoffBase != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.HTTPBackoffBase)
	}
}

func TestLoadFromEnv_InvalidFallsBackToDefault(t *testing.T) {
	t.Setenv("POLYMARKET_PAGE_LIMIT", "lots")
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.PolymarketPageLimit != 500 {
		t.Errorf("expected default page limit, got %d", cfg.PolymarketPageLimit)
	}
	if cfg.HTTPTimeout != 20*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.HTTPTimeout)
	}
}

func TestLoadFromEnv_ValidationError(t *testing.T) {
	t.Setenv("FEE_CUSHION", "0.5")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "fee-at-upper-bound",
			mutate:  func(c *Config) { c.FeeCushion = 0.10 },
			wantErr: false,
		},
		{
			name:    "fee-zero",
			mutate:  func(c *Config) { c.FeeCushion = 0 },
			wantErr: false,
		},
		{
			name:    "fee-too-high",
			mutate:  func(c *Config) { c.FeeCushion = 0.11 },
			wantErr: true,
			errMsg:  "FEE_CUSHION must be between 0 and 0.10, got 0.110000",
		},
		{
			name:    "fee-negative",
			mutate:  func(c *Config) { c.FeeCushion = -0.01 },
			wantErr: true,
			errMsg:  "FEE_CUSHION must be between 0 and 0.10, got -0.010000",
		},
		{
			name:    "refresh-lower-bound",
			mutate:  func(c *Config) { c.RefreshInterval = 60 * time.Second },
			wantErr: false,
		},
		{
			name:    "refresh-upper-bound",
			mutate:  func(c *Config) { c.RefreshInterval = 3600 * time.Second },
			wantErr: false,
		},
		{
			name:    "refresh-too-short",
			mutate:  func(c *Config) { c.RefreshInterval = 59 * time.Second },
			wantErr: true,
			errMsg:  "REFRESH_INTERVAL_SECONDS must be between 60 and 3600, got 59",
		},
		{
			name:    "refresh-too-long",
			mutate:  func(c *Config) { c.RefreshInterval = 3601 * time.Second },
			wantErr: true,
			errMsg:  "REFRESH_INTERVAL_SECONDS must be between 60 and 3600, got 3601",
		},
		{
			name:    "empty-port",
			mutate:  func(c *Config) { c.HTTPPort = "" },
			wantErr: true,
			errMsg:  "HTTP_PORT cannot be empty",
		},
		{
			name:    "zero-retries",
			mutate:  func(c *Config) { c.HTTPRetries = 0 },
			wantErr: true,
			errMsg:  "HTTP_RETRIES must be at least 1, got 0",
		},
		{
			name:    "unknown-storage",
			mutate:  func(c *Config) { c.StorageMode = "mongo" },
			wantErr: true,
			errMsg:  `STORAGE_MODE must be one of console, postgres, sqlite, redis, none, got "mongo"`,
		},
		{
			name:    "storage-none",
			mutate:  func(c *Config) { c.StorageMode = StorageNone },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				} else if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("default-level", func(t *testing.T) {
		logger, err := NewLogger("")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if logger == nil {
			t.Fatal("expected logger")
		}
	})

	t.Run("invalid-level", func(t *testing.T) {
		_, err := NewLogger("loud")
		if err == nil {
			t.Error("expected error for invalid level")
		}
	})
}
