package client

import (
	"context"
	"time"

	"github.com/yarasp/yarasp-go/internal/usage"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// TestAPIKey is the key used by NewTestClient.
const TestAPIKey = "test-api-key"

// NewTestClient creates a client for baseURL with an in-memory cache, an
// in-memory usage store and no retry delays. mutate may adjust the config
// before the client is built.
func NewTestClient(baseURL string, mutate ...func(*yarasp.Config)) (*Client, error) {
	config := &yarasp.Config{
		APIKey:       TestAPIKey,
		BaseURL:      baseURL,
		DailyLimit:   10,
		UsageStore:   usage.NewMemoryStore(),
		Cache:        &yarasp.CacheConfig{Type: yarasp.CacheTypeMemory},
		RetryMax:     1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	}

	for _, fn := range mutate {
		fn(config)
	}

	return New(context.Background(), config)
}
