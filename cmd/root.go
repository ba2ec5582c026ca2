package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "face-attend",
	Short: "Face recognition attendance, from enrollment to CSV export",
	Long: `Face Attend records who showed up by looking at them. People are
enrolled from a photo, the embedding sidecar turns faces into vectors,
and a scan matches a camera frame against everyone enrolled and marks
the first attendance of the day.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "Directory for the attendance database and snapshots (overrides DATA_DIR)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
