package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yarasp/yarasp-go/internal/config"
	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// setupCLI points the global viper state at a temporary config file, a JSON
// counter in a temporary directory and an in-memory response cache.
func setupCLI(t *testing.T, baseURL string) string {
	t.Helper()

	t.Setenv("YARASP_API_KEY", "")

	dir := t.TempDir()

	viper.Reset()
	t.Cleanup(viper.Reset)
	config.Configure(viper.GetViper())

	viper.Set("config", filepath.Join(dir, "config.yml"))
	viper.Set("output", constants.FormatJSON)
	viper.Set(config.KeyAPIKey, "cli-key")
	viper.Set(config.KeyBaseURL, baseURL)
	viper.Set(config.KeyRetryMax, 0)
	viper.Set(config.KeyCacheType, string(yarasp.CacheTypeMemory))
	viper.Set(config.KeyCounterPath, filepath.Join(dir, "counter.json"))

	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), err
}

func searchServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "cli-key", r.URL.Query().Get("apikey"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		total := 3

		segments := []map[string]interface{}{}
		for i := offset; i < min(offset+limit, total); i++ {
			segments = append(segments, map[string]interface{}{
				"departure": "2024-01-15T0" + strconv.Itoa(i) + ":00:00+03:00",
				"thread":    map[string]string{"number": "SU " + strconv.Itoa(i), "title": "Moscow - St Petersburg"},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"pagination": map[string]int{"total": total, "limit": limit, "offset": offset},
			"segments":   segments,
		})
	}))
	t.Cleanup(server.Close)

	return server
}

func TestNewSearchCommand(t *testing.T) {
	cmd := NewSearchCommand()
	assert.Equal(t, "search", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	for _, name := range []string{"from", "to", "date", "transport", "transfers", "force-live", "no-paginate", "page-limit"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "Flag %s should exist", name)
	}

	assert.Equal(t, "100", cmd.Flags().Lookup("page-limit").DefValue)
}

func TestNewThreadCommand(t *testing.T) {
	cmd := NewThreadCommand()
	assert.Equal(t, "thread UID", cmd.Use)
	assert.NotNil(t, cmd.Args)
	assert.NotNil(t, cmd.Flags().Lookup("force-live"))
	assert.Nil(t, cmd.Flags().Lookup("no-paginate"))
}

func TestNewConfigCommand(t *testing.T) {
	cmd := NewConfigCommand()
	assert.Equal(t, "config", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.ElementsMatch(t, []string{"show", "set", "set-key"}, names)
}

func TestSearchCommand(t *testing.T) {
	var hits atomic.Int64

	server := searchServer(t, &hits)
	setupCLI(t, server.URL)

	out, err := execute(t, NewSearchCommand(), "--from", "c213", "--to", "c2", "--page-limit", "2")
	require.NoError(t, err)

	var segments []yarasp.Segment
	require.NoError(t, json.Unmarshal([]byte(out), &segments))
	require.Len(t, segments, 3)
	assert.Equal(t, "SU 2", segments[2].Thread.Number)
	assert.Equal(t, int64(2), hits.Load())

	out, err = execute(t, NewUsageCommand())
	require.NoError(t, err)

	var status yarasp.UsageStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 2, status.Count)
	assert.Equal(t, 500, status.Limit)
	assert.True(t, status.SafeMode)
	assert.Equal(t, "json", status.Backend)
}

func TestSearchCommand_Validation(t *testing.T) {
	setupCLI(t, "http://127.0.0.1:1")

	_, err := execute(t, NewSearchCommand(), "--to", "c2")
	require.ErrorIs(t, err, constants.ErrFromRequired)

	_, err = execute(t, NewSearchCommand(), "--from", "c213")
	require.ErrorIs(t, err, constants.ErrToRequired)

	_, err = execute(t, NewScheduleCommand())
	require.ErrorIs(t, err, constants.ErrStationRequired)

	_, err = execute(t, NewNearestStationsCommand(), "--lat", "55.75")
	require.ErrorIs(t, err, constants.ErrCoordinatesMissing)
}

func TestCommand_NoAPIKey(t *testing.T) {
	setupCLI(t, "http://127.0.0.1:1")
	viper.Set(config.KeyAPIKey, "")

	_, err := execute(t, NewCopyrightCommand())
	require.ErrorIs(t, err, constants.ErrNoAPIKeyConfigured)

	// usage works without a key.
	out, err := execute(t, NewUsageCommand())
	require.NoError(t, err)
	assert.Contains(t, out, `"count": 0`)
}

func TestTableOutput(t *testing.T) {
	var hits atomic.Int64

	server := searchServer(t, &hits)
	setupCLI(t, server.URL)
	viper.Set("output", constants.FormatTable)

	out, err := execute(t, NewSearchCommand(), "--from", "c213", "--to", "c2", "--no-paginate")
	require.NoError(t, err)
	assert.Contains(t, out, "SU 0")
	assert.Contains(t, out, "Moscow - St Petersburg")
}

func TestGetCommand(t *testing.T) {
	var hits atomic.Int64

	server := searchServer(t, &hits)
	setupCLI(t, server.URL)

	out, err := execute(t, NewGetCommand(), "search", "from=c213", "to=c2", "apikey=leaked")
	require.NoError(t, err)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Len(t, items, 3)

	_, err = execute(t, NewGetCommand(), "timetable")
	require.ErrorIs(t, err, constants.ErrUnknownEndpoint)

	_, err = execute(t, NewGetCommand(), "search", "from")
	require.ErrorIs(t, err, constants.ErrInvalidParam)
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"from=c213", "date=2024-01-15", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "c213", params.Get("from"))
	assert.Equal(t, "2024-01-15", params.Get("date"))
	assert.True(t, params.Has("empty"))

	_, err = parseParams([]string{"=value"})
	require.ErrorIs(t, err, constants.ErrInvalidParam)
}

func TestConfigCommands(t *testing.T) {
	dir := setupCLI(t, "http://127.0.0.1:1")
	path := filepath.Join(dir, "config.yml")

	_, err := execute(t, NewConfigCommand(), "set", "api_daily_limit", "42")
	require.NoError(t, err)

	_, err = execute(t, NewConfigCommand(), "set-key", "secret-api-key")
	require.NoError(t, err)

	_, err = execute(t, NewConfigCommand(), "set", "cache.flavour", "x")
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)

	_, err = execute(t, NewConfigCommand(), "set-key", "   ")
	require.ErrorIs(t, err, constants.ErrEmptyAPIKey)

	values, err := config.ReadFileValues(path)
	require.NoError(t, err)
	assert.Equal(t, "42", values[config.KeyDailyLimit])
	assert.Equal(t, "secret-api-key", values[config.KeyAPIKey])
	// Values set only through viper are not persisted.
	assert.Empty(t, values[config.KeyBaseURL])

	out, err := execute(t, NewConfigCommand(), "show")
	require.NoError(t, err)

	var shown map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "***-key", shown[config.KeyAPIKey])
	assert.Equal(t, "42", shown[config.KeyDailyLimit])
}

func TestVersionCommand(t *testing.T) {
	setupCLI(t, "http://127.0.0.1:1")
	viper.Set("output", constants.FormatYAML)

	out, err := execute(t, NewVersionCommand("1.2.3", "abc123", "2024-01-15"))
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "abc123", info["commit"])

	viper.Set("output", "xml")

	_, err = execute(t, NewVersionCommand("1.2.3", "abc123", "2024-01-15"))
	require.ErrorIs(t, err, constants.ErrUnknownOutput)
}
