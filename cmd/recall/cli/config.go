package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/credential"
	"github.com/felixgeelhaar/recall/internal/settings"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage values stored in the configuration table. Settings keys
(chat.model, memory.limit, ...) override the settings file; keys ending in
.api_key hold provider credentials and are stored encrypted.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !settings.IsKey(key) && !credential.IsSecretKey(key) {
			return fmt.Errorf("unknown configuration key %q", key)
		}

		s, err := getStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if credential.IsSecretKey(key) {
			m, err := credential.NewManager()
			if err != nil {
				return err
			}
			if value, err = m.Encrypt(value); err != nil {
				return fmt.Errorf("failed to encrypt %s: %w", key, err)
			}
		}

		if err := s.SetConfig(key, value); err != nil {
			return fmt.Errorf("failed to set config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved: %s\n", key)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer s.Close()

		val, err := s.GetConfig(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), display(args[0], val))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer s.Close()

		cfg, err := s.ListConfig()
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(cfg))
		for k := range cfg {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, display(k, cfg[k]))
		}
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeleteConfig(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration removed: %s\n", args[0])
		return nil
	},
}

// display masks credentials.
func display(key, val string) string {
	if val == "" {
		return "(not set)"
	}
	if !credential.IsSecretKey(key) {
		return val
	}
	m, err := credential.NewManager()
	if err != nil {
		return "****"
	}
	plain, err := m.Decrypt(val)
	if err != nil {
		return "(unreadable: " + err.Error() + ")"
	}
	return credential.MaskSecret(plain)
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configGetCmd, configListCmd, configUnsetCmd)
}
