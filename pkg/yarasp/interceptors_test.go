package yarasp_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

var errStop = errors.New("stop")

type entry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type memoryLogger struct {
	mu      sync.Mutex
	entries []entry
}

func (l *memoryLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry{level: level, msg: msg, fields: fields})
}

func (l *memoryLogger) Debug(msg string, fields map[string]interface{}) { l.log("debug", msg, fields) }
func (l *memoryLogger) Info(msg string, fields map[string]interface{})  { l.log("info", msg, fields) }
func (l *memoryLogger) Warn(msg string, fields map[string]interface{})  { l.log("warn", msg, fields) }
func (l *memoryLogger) Error(msg string, fields map[string]interface{}) { l.log("error", msg, fields) }

func TestInterceptorChain_Order(t *testing.T) {
	t.Parallel()

	chain := yarasp.NewInterceptorChain()
	ctx := context.Background()

	var order []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *yarasp.Request) error {
		order = append(order, "first")

		return nil
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *yarasp.Request) error {
		order = append(order, "second")

		return nil
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *yarasp.Request, resp *yarasp.Response) error {
		order = append(order, "response")

		return nil
	})

	req := &yarasp.Request{Method: "GET", Endpoint: yarasp.EndpointSearch, Path: "/search/"}

	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &yarasp.Response{StatusCode: 200}))
	assert.Equal(t, []string{"first", "second", "response"}, order)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := yarasp.NewInterceptorChain()
	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *yarasp.Request) error {
		return errStop
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *yarasp.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &yarasp.Request{})
	require.ErrorIs(t, err, errStop)
	assert.False(t, called)
}

func TestAPIKeyInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := yarasp.APIKeyInterceptor("configured")

	req := &yarasp.Request{Query: url.Values{
		"APIKEY": {"caller"},
		"ApiKey": {"caller2"},
		"from":   {"c213"},
	}}
	require.NoError(t, interceptor(context.Background(), req))

	assert.Equal(t, url.Values{"apikey": {"configured"}, "from": {"c213"}}, req.Query)

	empty := &yarasp.Request{}
	require.NoError(t, interceptor(context.Background(), empty))
	assert.Equal(t, "configured", empty.Query.Get("apikey"))
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := yarasp.HeaderInterceptor(map[string]string{"X-Request-ID": "123456"})
	req := &yarasp.Request{}

	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "123456", req.Headers.Get("X-Request-ID"))
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := yarasp.RateLimitInterceptor(1, 1)
	ctx := context.Background()

	require.NoError(t, interceptor(ctx, &yarasp.Request{}))

	// The bucket is empty and the context expires before the next token.
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	err := interceptor(short, &yarasp.Request{})
	require.Error(t, err)
}

func TestLoggingInterceptors_HideAPIKey(t *testing.T) {
	t.Parallel()

	logger := &memoryLogger{}
	req := &yarasp.Request{
		Method:   "GET",
		Endpoint: yarasp.EndpointSchedule,
		Query:    url.Values{"apikey": {"secret"}, "station": {"s9600213"}},
	}

	require.NoError(t, yarasp.LoggingInterceptor(logger)(context.Background(), req))
	require.NoError(t, yarasp.LoggingResponseInterceptor(logger)(context.Background(), req, &yarasp.Response{StatusCode: 200}))
	require.NoError(t, yarasp.LoggingResponseInterceptor(logger)(context.Background(), req, &yarasp.Response{
		StatusCode: 500,
		Error:      errStop,
	}))

	require.Len(t, logger.entries, 3)
	assert.Equal(t, "station=s9600213", logger.entries[0].fields["query"])
	assert.Equal(t, "debug", logger.entries[1].level)
	assert.Equal(t, "error", logger.entries[2].level)
	assert.Equal(t, "stop", logger.entries[2].fields["error"])
}

func TestVerboseResponseInterceptor(t *testing.T) {
	t.Parallel()

	logger := &memoryLogger{}
	interceptor := yarasp.VerboseResponseInterceptor(logger)
	req := &yarasp.Request{Method: "GET", Endpoint: yarasp.EndpointCopyright}

	require.NoError(t, interceptor(context.Background(), req, &yarasp.Response{
		StatusCode: 200,
		URL:        "https://api.rasp.yandex.net/v3.0/copyright/",
		Body:       make([]byte, 2048),
	}))
	require.NoError(t, interceptor(context.Background(), req, &yarasp.Response{
		StatusCode: 200,
		URL:        "https://api.rasp.yandex.net/v3.0/copyright/",
		FromCache:  true,
	}))

	require.Len(t, logger.entries, 2)
	assert.Equal(t, "GET https://api.rasp.yandex.net/v3.0/copyright/ - Status: 200", logger.entries[0].msg)
	assert.Equal(t, "~2KB", logger.entries[0].fields["size"])
	assert.NotContains(t, logger.entries[0].fields, "cached")
	assert.Equal(t, true, logger.entries[1].fields["cached"])
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	collector := yarasp.NewMetricsCollector()
	requestInterceptor := yarasp.MetricsRequestInterceptor(collector)
	responseInterceptor := yarasp.MetricsResponseInterceptor(collector)
	ctx := context.Background()

	var changes int

	collector.SetOnChange(func(endpoint string, metrics yarasp.Metrics) {
		changes++
	})

	live := &yarasp.Request{Method: "GET", Endpoint: yarasp.EndpointSearch}
	require.NoError(t, requestInterceptor(ctx, live))
	require.NoError(t, responseInterceptor(ctx, live, &yarasp.Response{StatusCode: 200}))

	cached := &yarasp.Request{Method: "GET", Endpoint: yarasp.EndpointSearch}
	require.NoError(t, responseInterceptor(ctx, cached, &yarasp.Response{StatusCode: 200, FromCache: true}))

	failed := &yarasp.Request{Method: "GET", Endpoint: yarasp.EndpointSearch}
	require.NoError(t, requestInterceptor(ctx, failed))
	require.NoError(t, responseInterceptor(ctx, failed, &yarasp.Response{StatusCode: 404}))

	metrics, ok := collector.GetMetrics(yarasp.EndpointSearch)
	require.True(t, ok)
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.CacheHits)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.Equal(t, 3, changes)

	_, ok = collector.GetMetrics(yarasp.EndpointThread)
	assert.False(t, ok)
}
