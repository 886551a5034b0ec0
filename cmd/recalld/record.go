package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/recalld/internal/knowledge"
)

var (
	recordSessionID string
	recordLabel     string
)

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVar(&recordSessionID, "session", "", "session identifier (required)")
	recordCmd.Flags().StringVar(&recordLabel, "label", "", "topic (decision) or name (pattern)")
	_ = recordCmd.MarkFlagRequired("session")
}

var recordCmd = &cobra.Command{
	Use:   "record <type> <text>",
	Short: "Store a record directly, bypassing extraction",
	Long: `Record stores one knowledge record without extraction or scoring.

Examples:
  recalld record decision --session s1 --label db "Use SQLite for local persistence"
  recalld record task --session s1 "Add integration tests for the capture path"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	typ, err := knowledge.ParseType(args[0])
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	text := strings.Join(args[1:], " ")
	rec, err := app.captures.AddRecord(cmd.Context(), recordSessionID, typ, recordLabel, text)
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(rec)
	}
	fmt.Printf("%s %s stored\n", rec.Kind(), rec.RecordID())
	return nil
}
