package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yarasp/yarasp-go/internal/config"
	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/raspclient"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// ConfigPath returns the --config flag value or ~/.yarasp/config.yml.
func ConfigPath() (string, error) {
	path := viper.GetString("config")
	if path != "" {
		return path, nil
	}

	path, err := config.DefaultPath()
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}

	return path, nil
}

// newClient builds a client from the global viper state. Without an API key
// and requireKey unset, the client runs in cache-only mode.
func newClient(ctx context.Context, requireKey bool) (yarasp.Client, error) {
	cfg := config.Load(viper.GetViper())

	if cfg.APIKey == "" {
		if requireKey && !cfg.CacheOnly {
			return nil, constants.ErrNoAPIKeyConfigured
		}

		cfg.CacheOnly = true
	}

	cfg.Logger = newLogger(cfg.Verbose, cfg.Debug)

	client, err := raspclient.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

func newLogger(verbose, debug bool) yarasp.Logger {
	level := slog.LevelWarn

	switch {
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}

	return yarasp.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// withClient runs fn with a fresh client and closes it afterwards.
func withClient(cmd *cobra.Command, requireKey bool, fn func(client yarasp.Client) error) error {
	client, err := newClient(cmd.Context(), requireKey)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := client.Close()
		if closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: closing client: %v\n", closeErr)
		}
	}()

	return fn(client)
}

// addCallFlags registers the per-call cache and pagination flags.
func addCallFlags(cmd *cobra.Command, paginated bool) {
	cmd.Flags().Bool("force-live", false, "skip the cache lookup and refresh the cached response")

	if paginated {
		cmd.Flags().Bool("no-paginate", false, "fetch only the first page")
		cmd.Flags().Int("page-limit", constants.DefaultPageLimit, "page size used when walking pages")
	}
}

// callOptions reads the flags registered by addCallFlags.
func callOptions(cmd *cobra.Command) []yarasp.CallOption {
	var opts []yarasp.CallOption

	if forceLive, _ := cmd.Flags().GetBool("force-live"); forceLive {
		opts = append(opts, yarasp.WithForceLive())
	}

	if noPaginate, _ := cmd.Flags().GetBool("no-paginate"); noPaginate {
		opts = append(opts, yarasp.WithoutPagination())
	}

	if cmd.Flags().Changed("page-limit") {
		limit, _ := cmd.Flags().GetInt("page-limit")
		opts = append(opts, yarasp.WithPageLimit(limit))
	}

	return opts
}

// outputFormat returns the validated --output value.
func outputFormat() (string, error) {
	format := strings.ToLower(viper.GetString("output"))

	switch format {
	case "", constants.FormatTable:
		return constants.FormatTable, nil
	case constants.FormatJSON, constants.FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrUnknownOutput, format)
	}
}

// render writes value as JSON or YAML, or calls table for table output.
func render(w io.Writer, value interface{}, table func(*tablewriter.Table)) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(constants.JSONIndentSize)

		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	default:
		t := tablewriter.NewWriter(w)
		table(t)

		err := t.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// renderResult prints a footer after table output describing where the
// response came from.
func renderResult(cmd *cobra.Command, result *yarasp.Result, value interface{}, table func(*tablewriter.Table)) error {
	err := render(cmd.OutOrStdout(), value, table)
	if err != nil {
		return err
	}

	format, _ := outputFormat()
	if format != constants.FormatTable {
		return nil
	}

	source := "live"
	if result.FromCache {
		source = "cache"
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%d page(s), source: %s, live requests: %d\n",
		result.Pages, source, result.LiveRequests)

	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-1]) + "…"
}

func orNA(s string) string {
	if s == "" {
		return constants.NotAvailable
	}

	return s
}

func stationTitle(station *yarasp.Station) string {
	if station == nil {
		return constants.NotAvailable
	}

	return station.Title
}

func threadFields(thread *yarasp.Thread) (string, string) {
	if thread == nil {
		return constants.NotAvailable, constants.NotAvailable
	}

	return orNA(thread.Number), truncate(thread.Title, constants.TitleDisplayLength)
}

func enabled(on bool) string {
	if on {
		return constants.StatusEnabled
	}

	return constants.StatusDisabled
}
