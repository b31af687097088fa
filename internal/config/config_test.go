package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "INR", cfg.Storefront.DisplayCurrency)
	assert.Equal(t, int64(99900), cfg.Storefront.FreeShippingThreshold)
	assert.Equal(t, "0.18", cfg.Storefront.TaxRate)
	assert.Equal(t, 10*time.Second, cfg.Storefront.RequestTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("STOREFRONT_CURRENCY", "USD")
	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://fankick.in,https://admin.fankick.in")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Storefront.DisplayCurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Storefront.RequestTimeout)
	assert.Equal(t, []string{"https://fankick.in", "https://admin.fankick.in"}, cfg.Security.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "5000"},
			Database: DatabaseConfig{Driver: "sqlite", SQLitePath: "test.db"},
			Redis:    RedisConfig{Host: "localhost"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Storefront: StorefrontConfig{
				RequestTimeout: time.Second,
				TaxRate:        "0.18",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.JWT.Secret = "short" }, wantErr: "JWT_SECRET"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "DB_DRIVER"},
		{name: "postgres without host", mutate: func(c *Config) {
			c.Database.Driver = "postgres"
			c.Database.Name = "x"
			c.Database.User = "x"
		}, wantErr: "DB_HOST"},
		{name: "zero timeout", mutate: func(c *Config) { c.Storefront.RequestTimeout = 0 }, wantErr: "STOREFRONT_REQUEST_TIMEOUT"},
		{name: "negative fee", mutate: func(c *Config) { c.Storefront.FlatShippingFee = -1 }, wantErr: "cannot be negative"},
		{name: "tax above one", mutate: func(c *Config) { c.Storefront.TaxRate = "1.5" }, wantErr: "STOREFRONT_TAX_RATE"},
		{name: "tax not a number", mutate: func(c *Config) { c.Storefront.TaxRate = "gst" }, wantErr: "STOREFRONT_TAX_RATE"},
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
