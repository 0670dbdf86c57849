package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Version != "test-version" {
		t.Errorf("Version = %q, want %q", cfg.Version, "test-version")
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.Pipeline.MaxRetries != 2 {
		t.Errorf("Pipeline.MaxRetries = %d, want 2", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.RetryDelay != 1500*time.Millisecond {
		t.Errorf("Pipeline.RetryDelay = %v, want 1.5s", cfg.Pipeline.RetryDelay)
	}
	if cfg.Pipeline.RowCap != 100 {
		t.Errorf("Pipeline.RowCap = %d, want 100", cfg.Pipeline.RowCap)
	}
	if !cfg.Pipeline.NeedExplanation {
		t.Error("Pipeline.NeedExplanation = false, want true")
	}
	if cfg.AI.Timeout != 60*time.Second {
		t.Errorf("AI.Timeout = %v, want 60s", cfg.AI.Timeout)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("Cache.TTL = %v, want 30m", cfg.Cache.TTL)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("AI_PROVIDER", "anthropic")
	t.Setenv("AI_MODEL", "claude-3-5-haiku-latest")
	t.Setenv("PIPELINE_ROW_CAP", "50")
	t.Setenv("CACHE_TTL_MINUTES", "5")

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9999")
	}
	if cfg.AI.Provider != "anthropic" {
		t.Errorf("AI.Provider = %q, want %q", cfg.AI.Provider, "anthropic")
	}
	if cfg.Pipeline.RowCap != 50 {
		t.Errorf("Pipeline.RowCap = %d, want 50", cfg.Pipeline.RowCap)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
}

func TestInvalidProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "cohere")

	if _, err := Load("dev"); err == nil {
		t.Fatal("Load() expected error for unknown provider, got nil")
	}
}

func TestInvalidRowCap(t *testing.T) {
	t.Setenv("PIPELINE_ROW_CAP", "0")

	if _, err := Load("dev"); err == nil {
		t.Fatal("Load() expected error for zero row cap, got nil")
	}
}

func TestParseDenyKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "drop", []string{"DROP"}},
		{"mixed case with spaces", " insert , Delete ,TRUNCATE", []string{"INSERT", "DELETE", "TRUNCATE"}},
		{"trailing comma", "update,", []string{"UPDATE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDenyKeywords(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseDenyKeywords(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseDenyKeywords(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	dbConfig := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "analyst",
		Password: "secret",
		Database: "commerce",
		SSLMode:  "require",
	}

	got := dbConfig.ConnectionString()
	want := "host=db.internal port=5433 user=analyst password=secret dbname=commerce sslmode=require"
	if got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
