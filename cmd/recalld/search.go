package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchType  string
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 5, "maximum results")
	searchCmd.Flags().StringVar(&searchType, "type", "", "filter by type (decision, pattern, task, insight, session)")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored knowledge by meaning",
	Long: `Search embeds the query and returns the closest knowledge records.

Examples:
  # Find past decisions about storage
  recalld search "which database did we pick" --type decision

  # Broad search across all types
  recalld search "error handling conventions" -k 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	query := strings.Join(args, " ")
	results, err := app.searcher.Search(cmd.Context(), query, searchLimit, searchType)
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTYPE\tID\tSNIPPET")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", r.Score, r.Type, r.ID, truncateSnippet(r.Snippet, 80))
	}
	return w.Flush()
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
