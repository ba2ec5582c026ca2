package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image-path>",
	Short: "Match a photo against the registry without recording attendance",
	Long: `Detect the largest face in a photo and report who it matches, if
anyone. Nothing is written to the attendance log; use this to check a
photo or tune the match threshold.

Example:
  face-attend identify visitor.jpg
  face-attend identify visitor.jpg --threshold 0.5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Float64("threshold", 0, "Match distance cutoff (overrides the model profile)")
	identifyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := loadConfig()
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Match.Threshold = threshold
	}

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()
	svc := newService(cfg, stores)

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	match, face, err := svc.IdentifyImage(ctx, imageData)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(map[string]any{
			"matched": match != nil,
			"match":   match,
			"face":    face,
		})
	}

	if len(face.BBox) == 4 {
		fmt.Printf("Face: %.0fx%.0f px, detection score %.2f\n",
			face.BBox[2]-face.BBox[0], face.BBox[3]-face.BBox[1], face.DetScore)
	}
	if match == nil {
		fmt.Println("No match in the registry.")
		return nil
	}
	fmt.Printf("Match: %s (distance %.4f)\n", match.Name, match.Distance)
	return nil
}
