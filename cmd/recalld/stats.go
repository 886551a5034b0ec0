package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record and index counts",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	stats, err := app.captures.Stats(cmd.Context())
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(stats)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "sessions\t%d\n", stats.Sessions)
	fmt.Fprintf(w, "indexed\t%d\n", stats.Indexed)
	for typ, n := range stats.Records {
		fmt.Fprintf(w, "%s\t%d\n", typ, n)
	}
	return w.Flush()
}
