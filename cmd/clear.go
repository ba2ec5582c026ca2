package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear <faces|log|all>",
	Short: "Wipe the face registry, the attendance log, or both",
	Long: `Removes all stored data of the chosen kind.

  faces  deletes every enrollment from the face registry
  log    deletes every attendance event
  all    deletes both

This cannot be undone. The command asks for confirmation unless --yes
is given.

Example:
  face-attend clear log
  face-attend clear all --yes`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"faces", "log", "all"},
	RunE:      runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func runClear(cmd *cobra.Command, args []string) error {
	target := args[0]
	skipConfirm := mustGetBool(cmd, "yes")

	clearFaces := target == "faces" || target == "all"
	clearLog := target == "log" || target == "all"
	if !clearFaces && !clearLog {
		return fmt.Errorf("unknown target %q, expected faces, log or all", target)
	}

	ctx := context.Background()
	svc, stores, err := openService(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	summary, err := svc.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	var parts []string
	if clearFaces {
		parts = append(parts, fmt.Sprintf("%d enrolled person(s)", summary.People))
	}
	if clearLog {
		parts = append(parts, fmt.Sprintf("%d attendance event(s)", summary.Events))
	}
	fmt.Printf("This deletes %s.\n", strings.Join(parts, " and "))

	if !skipConfirm && !confirmAction("\nContinue? [y/N]: ") {
		fmt.Println("Cancelled.")
		return nil
	}

	if clearFaces {
		if err := svc.ResetRegistry(ctx); err != nil {
			return fmt.Errorf("failed to clear face registry: %w", err)
		}
		fmt.Println("Face registry cleared.")
	}
	if clearLog {
		if err := svc.ResetLedger(ctx); err != nil {
			return fmt.Errorf("failed to clear attendance log: %w", err)
		}
		fmt.Println("Attendance log cleared.")
	}
	return nil
}
