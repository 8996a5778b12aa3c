package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/memory"
)

var (
	rankLimit   int
	rankExplain bool
)

var memoryCmd = &cobra.Command{
	Use:     "memory",
	Aliases: []string{"memories"},
	Short:   "Manage the facts recall remembers about you",
}

var memoryAddCmd = &cobra.Command{
	Use:   "add [fact]",
	Short: "Remember a fact",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, src, err := memoryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := src.AddMemory(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Remembered [%s] %s\n", item.ID, item.Content)
		return nil
	},
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered facts, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, src, err := memoryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := src.ListMemories(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No memories yet.")
			return nil
		}
		for _, it := range items {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s  (%s)\n", it.ID, it.Content, it.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var memoryRmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"forget"},
	Short:   "Forget a fact",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, src, err := memoryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := src.DeleteMemory(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", args[0])
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every fact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, src, err := memoryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := src.ClearMemories(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All memories cleared.")
		return nil
	},
}

var memoryRankCmd = &cobra.Command{
	Use:   "rank [query]",
	Short: "Show which facts would be injected for a message",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, src, err := memoryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		limit := rankLimit
		if !cmd.Flags().Changed("limit") {
			limit = a.settings.MemoryLimit
		}

		items, err := src.ListMemories(cmd.Context())
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		if rankExplain {
			if tokens := memory.Tokenize(query); len(tokens) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "tokens: %s\n", strings.Join(tokens, ", "))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "tokens: none, showing the most recent facts")
			}
		}
		for i, m := range memory.Rank(query, memory.Contents(items), limit) {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, m)
		}
		return nil
	},
}

func memoryApp(cmd *cobra.Command) (*app, memory.Source, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	src, err := a.memorySource()
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, src, nil
}

func init() {
	RootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryAddCmd, memoryListCmd, memoryRmCmd, memoryClearCmd, memoryRankCmd)
	memoryRankCmd.Flags().IntVarP(&rankLimit, "limit", "n", memory.DefaultLimit, "Maximum number of facts")
	memoryRankCmd.Flags().BoolVar(&rankExplain, "explain", false, "Print the query tokens used for scoring")
}
