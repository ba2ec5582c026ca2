package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List everyone in the face registry",
	Long:  `Displays every enrolled person with the embedding model used at enrollment.`,
	RunE:  runPeople,
}

func init() {
	rootCmd.AddCommand(peopleCmd)

	peopleCmd.Flags().Bool("json", false, "Output as JSON")
}

// personEntry is a registry row without the embedding values.
type personEntry struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Dim      int    `json:"dim"`
	Enrolled string `json:"enrolled"`
}

func runPeople(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	svc, stores, err := openService(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	enrollments, err := svc.People(ctx)
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}

	if jsonOutput {
		entries := make([]personEntry, len(enrollments))
		for i, e := range enrollments {
			entries[i] = personEntry{
				Name:     e.Name,
				Model:    e.Model,
				Dim:      e.Dim,
				Enrolled: e.CreatedAt.Format(time.RFC3339),
			}
		}
		return outputJSON(map[string]any{"people": entries, "count": len(entries)})
	}

	if len(enrollments) == 0 {
		fmt.Println("Nobody is enrolled yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tDIM\tENROLLED")
	fmt.Fprintln(w, "----\t-----\t---\t--------")

	for i := range enrollments {
		e := &enrollments[i]
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Name, e.Model, e.Dim, e.CreatedAt.Format("2006-01-02 15:04"))
	}

	w.Flush()

	fmt.Printf("\nTotal: %d person(s)\n", len(enrollments))

	return nil
}
