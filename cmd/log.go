package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the attendance log",
	Long: `Displays recorded attendance events in the order they were marked.

Examples:
  face-attend log
  face-attend log --date 2026-08-25
  face-attend log --person alice`,
	RunE: runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().String("date", "", "Only events of this day (YYYY-MM-DD)")
	logCmd.Flags().String("person", "", "Only events whose name contains this text")
	logCmd.Flags().Bool("json", false, "Output as JSON")
}

func runLog(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	person := mustGetString(cmd, "person")
	jsonOutput := mustGetBool(cmd, "json")

	if date != "" {
		if _, err := time.Parse(database.DateLayout, date); err != nil {
			return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
		}
	}

	ctx := context.Background()
	svc, stores, err := openService(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	events, err := svc.Log(ctx, database.EventFilter{Date: date, Name: person})
	if err != nil {
		return fmt.Errorf("failed to read attendance log: %w", err)
	}

	if jsonOutput {
		return outputJSON(map[string]any{"events": events, "count": len(events)})
	}

	if len(events) == 0 {
		fmt.Println("No attendance events found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tNAME")
	fmt.Fprintln(w, "----\t----\t----")

	for i := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\n", events[i].Date, events[i].Time, events[i].Name)
	}

	w.Flush()

	fmt.Printf("\nTotal: %d event(s)\n", len(events))

	return nil
}
