package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/yarasp/yarasp-go/internal/client"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// fakeAPI serves canned JSON and counts the requests that reach it.
type fakeAPI struct {
	server *httptest.Server
	hits   atomic.Int64
	keys   chan string
}

func newFakeAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *fakeAPI {
	t.Helper()

	api := &fakeAPI{keys: make(chan string, 100)}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.hits.Add(1)
		select {
		case api.keys <- r.URL.Query().Get("apikey"):
		default:
		}

		handler(w, r)
	}))
	t.Cleanup(api.server.Close)

	return api
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func copyrightHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{
		"copyright": map[string]string{"text": "Data provided by the schedule service", "url": "http://rasp.yandex.ru/"},
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), nil)
		require.ErrorIs(t, err, yarasp.ErrConfigRequired)
	})

	t.Run("requires API key", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &yarasp.Config{APIKey: "   "})
		require.Error(t, err)

		var configErr *yarasp.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, "APIKey", configErr.Field)
		assert.ErrorIs(t, err, yarasp.ErrAPIKeyRequired)
	})

	t.Run("cache-only mode needs no API key", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &yarasp.Config{
			CacheOnly: true,
			Counter:   &yarasp.CounterConfig{Backend: "memory"},
			Cache:     &yarasp.CacheConfig{Type: yarasp.CacheTypeMemory},
		})
		require.NoError(t, err)
		require.NoError(t, client.Close())
	})

	t.Run("rejects negative daily limit", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &yarasp.Config{APIKey: "k", DailyLimit: -1})
		require.ErrorIs(t, err, yarasp.ErrInvalidDailyLimit)
	})

	t.Run("rejects unsupported counter backend", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &yarasp.Config{
			APIKey:  "k",
			Counter: &yarasp.CounterConfig{Backend: "mongo"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported usage counter backend")
	})

	t.Run("rejects unsupported cache type", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &yarasp.Config{
			APIKey:  "k",
			Counter: &yarasp.CounterConfig{Backend: "memory"},
			Cache:   &yarasp.CacheConfig{Type: "memcached"},
		})
		require.ErrorIs(t, err, yarasp.ErrUnsupportedCacheType)
	})

	t.Run("json counter by default", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		client, err := New(context.Background(), &yarasp.Config{
			APIKey:  "k",
			Counter: &yarasp.CounterConfig{Path: filepath.Join(dir, "counter.json")},
		})
		require.NoError(t, err)

		defer func() { _ = client.Close() }()

		status, err := client.Usage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "json", status.Backend)
		assert.Equal(t, 500, status.Limit)
		assert.True(t, status.SafeMode)
		assert.Equal(t, 500, status.Remaining)
	})

	t.Run("counter follows a redis cache", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client, err := New(context.Background(), &yarasp.Config{
			APIKey: "k",
			Cache: &yarasp.CacheConfig{
				Type:  yarasp.CacheTypeRedis,
				Redis: &yarasp.RedisCacheConfig{URL: "redis://" + mr.Addr()},
			},
		})
		require.NoError(t, err)

		defer func() { _ = client.Close() }()

		status, err := client.Usage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "redis", status.Backend)
	})

	t.Run("counter follows a sqlite cache", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "cache.db")
		client, err := New(context.Background(), &yarasp.Config{
			APIKey: "k",
			Cache: &yarasp.CacheConfig{
				Type:   yarasp.CacheTypeSQLite,
				SQLite: &yarasp.SQLiteCacheConfig{Path: path},
			},
		})
		require.NoError(t, err)

		defer func() { _ = client.Close() }()

		status, err := client.Usage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sqlite", status.Backend)
	})
}

func TestClient_APIKeyHandling(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, copyrightHandler)

	client, err := NewTestClient(api.server.URL)
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	_, err = client.Get(context.Background(), yarasp.EndpointCopyright, map[string][]string{
		"APIKEY": {"caller-key"},
		"apikey": {"other"},
	})
	require.NoError(t, err)

	assert.Equal(t, TestAPIKey, <-api.keys)
}

func TestClient_CustomHeaders(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()

		copyrightHandler(w, r)
	})

	client, err := NewTestClient(api.server.URL, func(c *yarasp.Config) {
		c.Headers = map[string]string{"X-Request-Source": "nightly-sync"}
	})
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	_, err = client.Copyright(context.Background())
	require.NoError(t, err)

	got := <-headers
	assert.Equal(t, "nightly-sync", got.Get("X-Request-Source"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, copyrightHandler)

	client, err := NewTestClient(api.server.URL)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err = client.Copyright(context.Background())
	require.ErrorIs(t, err, yarasp.ErrClientClosed)
	assert.Equal(t, int64(0), api.hits.Load())
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, copyrightHandler)

	client, err := NewTestClient(api.server.URL)
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	for iter := 0; iter < 3; iter++ {
		_, err = client.Copyright(context.Background())
		require.NoError(t, err)
	}

	metrics, ok := client.Metrics(yarasp.EndpointCopyright)
	require.True(t, ok)
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(2), metrics.CacheHits)
	assert.Equal(t, int64(0), metrics.TotalErrors)

	stats := client.CacheStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestClient_VerboseLogging(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, copyrightHandler)
	logger := &captureLogger{}

	client, err := NewTestClient(api.server.URL, func(c *yarasp.Config) {
		c.Verbose = true
		c.Logger = logger
	})
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	_, err = client.Copyright(context.Background())
	require.NoError(t, err)
	_, err = client.Copyright(context.Background())
	require.NoError(t, err)

	infos := logger.byLevel("info")
	require.Len(t, infos, 2)
	assert.Contains(t, infos[0].msg, "GET ")
	assert.Contains(t, infos[0].msg, "/copyright/")
	assert.Contains(t, infos[0].msg, "Status: 200")
	assert.NotContains(t, infos[0].msg, TestAPIKey)
	assert.Nil(t, infos[0].fields["cached"])
	assert.Equal(t, true, infos[1].fields["cached"])
}

type logLine struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *captureLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, logLine{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) Debug(msg string, fields map[string]interface{}) { l.add("debug", msg, fields) }
func (l *captureLogger) Info(msg string, fields map[string]interface{})  { l.add("info", msg, fields) }
func (l *captureLogger) Warn(msg string, fields map[string]interface{})  { l.add("warn", msg, fields) }
func (l *captureLogger) Error(msg string, fields map[string]interface{}) { l.add("error", msg, fields) }

func (l *captureLogger) byLevel(level string) []logLine {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []logLine

	for _, line := range l.lines {
		if line.level == level {
			out = append(out, line)
		}
	}

	return out
}

func pageOf(offset, limit, total int, key string) map[string]interface{} {
	items := make([]map[string]string, 0, limit)
	for i := offset; i < min(offset+limit, total); i++ {
		items = append(items, map[string]string{"uid": "item-" + strconv.Itoa(i)})
	}

	return map[string]interface{}{
		"pagination": map[string]int{"total": total, "limit": limit, "offset": offset},
		key:          items,
	}
}
