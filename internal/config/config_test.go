package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FAL_API_KEY", "key")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("MAX_PAGE_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://queue.fal.run", cfg.FalQueueURL)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, 1024, cfg.JobCacheSize)
	assert.Equal(t, "generated-photos", cfg.SupabaseStorageBucket)
	assert.False(t, cfg.SupabaseEnabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{FalAPIKey: "k", StoreDriver: StoreDriverMemory, MaxPageSize: 100, JobCacheSize: 10}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.FalAPIKey = "" }, wantErr: "FAL_API_KEY"},
		{name: "postgres without url", mutate: func(c *Config) { c.StoreDriver = StoreDriverPostgres }, wantErr: "DATABASE_URL"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: "STORE_DRIVER"},
		{name: "supabase without key", mutate: func(c *Config) { c.SupabaseURL = "https://x.supabase.co" }, wantErr: "SUPABASE_PUBLISHABLE_KEY"},
		{name: "zero page size", mutate: func(c *Config) { c.MaxPageSize = 0 }, wantErr: "MAX_PAGE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("JOB_CACHE_SIZE", "lots")
	assert.Equal(t, 7, getEnvInt("JOB_CACHE_SIZE", 7))
}
