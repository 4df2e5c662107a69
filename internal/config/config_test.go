package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultPlans(t *testing.T) {
	plans, err := LoadPlans("")
	require.NoError(t, err)
	require.Len(t, plans, 4)

	var daily *PlanConfig
	for i := range plans {
		if plans[i].IsDailyAccess {
			daily = &plans[i]
		}
	}
	require.NotNil(t, daily)
	assert.Equal(t, 3, daily.MaxDailyAccessGyms)
	assert.Equal(t, 30, daily.Credits)
}

func TestLoadPlansFromFileAndEnvPrice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plans.yaml")
	content := "plans:\n  - code: flex\n    title: Flex\n    price: 100\n    credits: 4\n  - code: da\n    title: DA\n    credits: 20\n    is_daily_access: true\n    max_daily_access_gyms: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("STRIPE_PRICE_FLEX", "price_123")

	plans, err := LoadPlans(path)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "price_123", plans[0].StripePriceID)
	assert.Equal(t, 0, plans[0].MaxDailyAccessGyms)
	assert.Equal(t, 3, plans[1].MaxDailyAccessGyms)
}

func TestParsePlansRejectsDuplicates(t *testing.T) {
	_, err := parsePlans([]byte("plans:\n  - code: a\n    title: A\n  - code: a\n    title: B\n"))
	assert.Error(t, err)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.se, https://b.se ,")
	t.Setenv("BOOKING_CANCELLATION_WINDOW", "2h")
	t.Setenv("GEOCODING_PRIMARY", "LocationIQ")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.se", "https://b.se"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.CancelWindow)
	assert.Equal(t, "locationiq", cfg.Geocoding.Primary)
	assert.False(t, cfg.Stripe.Enabled())
}
