package yarasp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

func TestConfig_Normalize(t *testing.T) {
	t.Parallel()

	t.Run("fills defaults", func(t *testing.T) {
		t.Parallel()

		cfg := &yarasp.Config{APIKey: "  key  ", BaseURL: "https://example.test/v3.0/"}
		require.NoError(t, cfg.Normalize())

		assert.Equal(t, "key", cfg.APIKey)
		assert.Equal(t, "https://example.test/v3.0", cfg.BaseURL)
		assert.Equal(t, 500, cfg.DailyLimit)
		assert.Equal(t, 100, cfg.PageLimit)
		assert.Equal(t, "yarasp-go", cfg.UserAgent)
		assert.NotNil(t, cfg.Logger)
		assert.NotNil(t, cfg.Now)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Parallel()

		err := (&yarasp.Config{}).Normalize()
		require.ErrorIs(t, err, yarasp.ErrAPIKeyRequired)

		err = (&yarasp.Config{APIKey: "k", BaseURL: "not a url"}).Normalize()
		require.ErrorIs(t, err, yarasp.ErrInvalidBaseURL)

		err = (&yarasp.Config{APIKey: "k", DailyLimit: -3}).Normalize()
		require.ErrorIs(t, err, yarasp.ErrInvalidDailyLimit)

		var configErr *yarasp.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, "DailyLimit", configErr.Field)
	})

	t.Run("cache-only needs no key", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, (&yarasp.Config{CacheOnly: true}).Normalize())
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := yarasp.DefaultConfig()
	assert.Equal(t, 500, cfg.DailyLimit)
	assert.False(t, cfg.DisableSafeMode)
	assert.Equal(t, "json", cfg.Counter.Backend)
	assert.Equal(t, yarasp.CacheTypeFile, cfg.Cache.Type)
}
