package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune <session-id>",
	Short: "Remove a session's metadata",
	Long: `Prune removes session metadata only. Knowledge records captured from
the session, and their embeddings, stay searchable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		removed, err := app.captures.Prune(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("session %s not found", args[0])
		}
		fmt.Printf("session %s pruned\n", args[0])
		return nil
	},
}
