package raspclient

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/yarasp/yarasp-go/internal/client"
	"github.com/yarasp/yarasp-go/internal/config"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// New creates a schedule API client from config. The config is copied, so the
// caller may reuse it.
func New(ctx context.Context, config *yarasp.Config) (yarasp.Client, error) {
	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithAPIKey creates a client with default settings for apiKey.
func NewWithAPIKey(ctx context.Context, apiKey string) (yarasp.Client, error) {
	cfg := yarasp.DefaultConfig()
	cfg.APIKey = apiKey

	return New(ctx, cfg)
}

// NewFromEnv creates a client from YARASP_* environment variables and the
// optional ~/.yarasp/config.yml file. Environment values win over the file.
func NewFromEnv(ctx context.Context) (yarasp.Client, error) {
	path, err := config.DefaultPath()
	if err != nil {
		path = ""
	}

	return NewFromFile(ctx, path)
}

// NewFromFile is NewFromEnv with an explicit config file. An empty path reads
// the environment only.
func NewFromFile(ctx context.Context, path string) (yarasp.Client, error) {
	v := config.New()

	if path != "" {
		err := config.ReadFile(v, path)
		if err != nil {
			return nil, err
		}
	}

	return NewFromViper(ctx, v)
}

// NewFromViper creates a client from an already populated viper instance,
// such as one bound to CLI flags.
func NewFromViper(ctx context.Context, v *viper.Viper) (yarasp.Client, error) {
	return New(ctx, config.Load(v))
}

// NewAsync wraps a client so that every call returns a Future.
func NewAsync(c yarasp.Client) *yarasp.AsyncClient {
	return yarasp.NewAsyncClient(c)
}
