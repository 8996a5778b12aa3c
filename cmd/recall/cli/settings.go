package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/recall/internal/settings"
)

var forceInit bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and initialise the settings file",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings after all overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer s.Close()

		cfg, err := loadSettings(s)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a settings file with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultSettingsPath()
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		d := settings.Default()
		if err := d.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", path)
		return nil
	},
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a settings file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultSettingsPath()
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := settings.Load(path)
		if err != nil {
			return err
		}

		res := cfg.Validate()
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
		}
		for _, e := range res.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", e)
		}
		if err := res.Err(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsInitCmd, settingsValidateCmd)
	settingsInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}
