package yarasp_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

func TestSlogLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := yarasp.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	logger.Debug("hidden", nil)
	logger.Info("GET /copyright/ - Status: 200", map[string]interface{}{"cached": true})
	logger.Warn("Daily API request limit reached", map[string]interface{}{"count": 500})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "cached=true")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "count=500")
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	var logger yarasp.Logger = yarasp.NopLogger{}

	assert.NotPanics(t, func() {
		logger.Error("ignored", map[string]interface{}{"k": "v"})
	})
}
