package commands

import (
	"bufio"
	"fmt"
	"sort"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/yarasp/yarasp-go/internal/config"
	"github.com/yarasp/yarasp-go/internal/constants"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in ~/.yarasp/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigSetKeyCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration from flags, environment, config file and defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := config.Values(viper.GetViper())
			values[config.KeyAPIKey] = config.MaskSecret(values[config.KeyAPIKey])

			keys := make([]string, 0, len(values))
			for key := range values {
				keys = append(keys, key)
			}

			sort.Strings(keys)

			return render(cmd.OutOrStdout(), values, func(table *tablewriter.Table) {
				table.Header("Key", "Value")

				for _, key := range keys {
					_ = table.Append(key, values[key])
				}
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Store a configuration value in the config file. Run 'yarasp config show' to list keys.",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			if !config.IsKnownKey(key) {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, args[0])
			}

			err := saveValue(key, args[1])
			if err != nil {
				return err
			}

			display := args[1]
			if key == config.KeyAPIKey {
				display = config.MaskSecret(display)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, display)

			return nil
		},
	}
}

func newConfigSetKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [API_KEY]",
		Short: "Store the API key",
		Long:  "Store the API key in the config file. Without an argument the key is read from the terminal without echo.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var apiKey string

			if len(args) == 1 {
				apiKey = args[0]
			} else {
				read, err := promptAPIKey(cmd)
				if err != nil {
					return err
				}

				apiKey = read
			}

			apiKey = strings.TrimSpace(apiKey)
			if apiKey == "" {
				return constants.ErrEmptyAPIKey
			}

			err := saveValue(config.KeyAPIKey, apiKey)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API key %s saved\n", config.MaskSecret(apiKey))

			return nil
		},
	}
}

func promptAPIKey(cmd *cobra.Command) (string, error) {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "API key: ")

	if term.IsTerminal(int(syscall.Stdin)) {
		keyBytes, err := term.ReadPassword(int(syscall.Stdin))

		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}

		return string(keyBytes), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}

	return line, nil
}

// saveValue writes key to the config file without persisting values that
// only come from the environment or defaults.
func saveValue(key, value string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	values, err := config.ReadFileValues(path)
	if err != nil {
		return err
	}

	values[key] = value

	err = config.Save(path, values)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	viper.Set(key, value)

	return nil
}
