package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var captureSessionID string

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVar(&captureSessionID, "session", "", "session identifier (required)")
	_ = captureCmd.MarkFlagRequired("session")
}

var captureCmd = &cobra.Command{
	Use:   "capture [file]",
	Short: "Extract and store knowledge from a transcript",
	Long: `Capture reads a session transcript from a file or stdin, extracts
decisions, patterns, tasks and insights, and indexes the accepted records.

Re-capturing a session merges with its earlier records by key instead of
duplicating them.

Examples:
  # Capture a transcript file
  recalld capture --session s1 transcript.txt

  # Capture from stdin
  cat notes.md | recalld capture --session s1 -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCapture,
}

func runCapture(cmd *cobra.Command, args []string) error {
	var text []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		text, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		text, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.captures.Capture(cmd.Context(), captureSessionID, string(text))
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	fmt.Printf("session %s: %d candidates, %d accepted, %d rejected\n",
		result.SessionID, result.Candidates, result.Accepted, result.Rejected)
	for typ, n := range result.ByType {
		fmt.Printf("  %-10s %d\n", typ, n)
	}
	return nil
}
