package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the attendance log as CSV",
	Long: `Writes the whole attendance log to a CSV file with a Name,Date,Time
header. Without --output the file is named attendance_<today>.csv in the
current directory.

Example:
  face-attend export
  face-attend export --output /tmp/report.csv`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "Output file (default attendance_<today>.csv)")
}

func runExport(cmd *cobra.Command, args []string) error {
	output := mustGetString(cmd, "output")

	ctx := context.Background()
	svc, stores, err := openService(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	events, err := svc.Log(ctx, database.EventFilter{})
	if err != nil {
		return fmt.Errorf("failed to read attendance log: %w", err)
	}

	if output == "" {
		output = svc.ExportName()
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer file.Close()

	if err := attendance.WriteCSV(file, events); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	fmt.Printf("Exported %d event(s) to %s\n", len(events), output)
	return nil
}
