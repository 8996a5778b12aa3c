package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Browse past chats",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chats, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer s.Close()

		chats, err := s.ListChats()
		if err != nil {
			return err
		}
		if len(chats) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No chats yet.")
			return nil
		}
		for _, c := range chats {
			title := c.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", c.ID, c.UpdatedAt.Format("2006-01-02 15:04"), title)
		}
		return nil
	},
}

var chatsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a chat's messages and attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer s.Close()

		c, err := s.GetChat(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n\n", c.Title)

		msgs, err := s.ListMessages(c.ID)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Fprintf(out, "%s: %s\n\n", m.Role, m.Content)
		}

		attachments, err := s.ListAttachments(c.ID)
		if err != nil {
			return err
		}
		for _, at := range attachments {
			fmt.Fprintf(out, "attachment %s  %s  %s  %d bytes\n", at.ID, at.Name, at.MimeType, at.Size)
		}
		return nil
	},
}

var chatsRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a chat with its messages and attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeleteChat(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted chat %s\n", args[0])
		return nil
	},
}

func init() {
	RootCmd.AddCommand(chatsCmd)
	chatsCmd.AddCommand(chatsListCmd, chatsShowCmd, chatsRmCmd)
}
