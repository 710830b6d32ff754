package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "STORAGE_BACKEND", "SMS_TIMEOUT", "SCHEDULER_ENABLED", "VOUCHER_MAX_DELIVERY_ATTEMPTS", "JWT_EXPIRY_HOURS", "SMS_COUNTRY_CODE"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "dynamo", cfg.StorageBackend)
	assert.Equal(t, 10*time.Second, cfg.SMSTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 0, cfg.Scheduler.MaxDeliveryAttempts)
	assert.Equal(t, "voucher_codes", cfg.DynamoTables.VoucherCodes)
	assert.Equal(t, "+91", cfg.SMSCountryCode)
}

func TestLoad_Overrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "scheduler",
			env: map[string]string{
				"SCHEDULER_ENABLED":             "false",
				"MATERIALIZE_INTERVAL":          "30s",
				"DISPATCH_INTERVAL":             "5m",
				"VOUCHER_MAX_DELIVERY_ATTEMPTS": "5",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Scheduler.Enabled)
				assert.Equal(t, 30*time.Second, cfg.Scheduler.MaterializeInterval)
				assert.Equal(t, 5*time.Minute, cfg.Scheduler.DispatchInterval)
				assert.Equal(t, 5, cfg.Scheduler.MaxDeliveryAttempts)
			},
		},
		{
			name: "invalid values fall back",
			env: map[string]string{
				"SMS_TIMEOUT":       "soon",
				"SCHEDULER_ENABLED": "maybe",
				"JWT_EXPIRY_HOURS":  "x",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 10*time.Second, cfg.SMSTimeout)
				assert.True(t, cfg.Scheduler.Enabled)
				assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
			},
		},
		{
			name: "origins",
			env:  map[string]string{"ALLOWED_ORIGINS": "https://a.in,https://b.in"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.in", "https://b.in"}, cfg.AllowedOrigins)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			tt.check(t, Load())
		})
	}
}
