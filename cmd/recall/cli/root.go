package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	jsonLogs     bool
	dataDirFlag  string
	settingsPath string
	providerType string
	modelName    string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Terminal chat client that remembers you",
	Long: `recall talks to hosted and local language models from the terminal.
It keeps chat history and facts about you in a local database, and injects
the facts most relevant to each message into the model's instructions.`,
	SilenceUsage: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&jsonLogs, "json", false, "Write logs as JSON")
	pf.StringVar(&dataDirFlag, "data-dir", "", "Data directory (default $RECALL_HOME or ~/.recall)")
	pf.StringVar(&settingsPath, "settings", "", "Settings file (default <data-dir>/settings.yaml)")
	pf.StringVarP(&providerType, "provider", "p", "", "AI provider (gemini, openai, anthropic, ollama, cli, stub)")
	pf.StringVarP(&modelName, "model", "m", "", "Model name (default depends on provider)")
}
