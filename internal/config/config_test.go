package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Chain:          ChainConfig{NodeURL: "http://127.0.0.1:9933"},
		Mining:         MiningConfig{Enabled: true, CPUs: 4},
		Difficulty:     DifficultyConfig{Initial: 56, Min: 48, Max: 224, TargetBlockTime: 60000},
		CollisionStore: CollisionStoreConfig{Kind: "memory"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: ""},
		{name: "missing node url", mutate: func(c *Config) { c.Chain.NodeURL = "" }, wantErr: "chain.node_url is required"},
		{name: "min over max", mutate: func(c *Config) { c.Difficulty.Min = 230 }, wantErr: "difficulty.min must be <= difficulty.max"},
		{name: "initial out of range", mutate: func(c *Config) { c.Difficulty.Initial = 10 }, wantErr: "difficulty.initial must be within"},
		{name: "non-positive target block time", mutate: func(c *Config) { c.Difficulty.TargetBlockTime = 0 }, wantErr: "difficulty.target_block_time_ms must be positive"},
		{name: "redis kind without url", mutate: func(c *Config) { c.CollisionStore = CollisionStoreConfig{Kind: "redis"} }, wantErr: "collision_store.redis_url is required"},
		{name: "unknown collision store kind", mutate: func(c *Config) { c.CollisionStore.Kind = "memcached" }, wantErr: "collision_store.kind must be"},
		{name: "negative cpus", mutate: func(c *Config) { c.Mining.CPUs = -1 }, wantErr: "mining.cpus must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestLoadRejectsMissingExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing, explicitly named config file")
	}
}

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to produce a valid config, got %v", err)
	}
	if cfg.Chain.NodeURL == "" {
		t.Fatalf("expected a default chain.node_url")
	}
	if cfg.CollisionStore.Kind != "memory" {
		t.Fatalf("expected default collision_store.kind=memory, got %q", cfg.CollisionStore.Kind)
	}
}
