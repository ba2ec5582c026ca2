package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [image-path]",
	Short: "Scan a frame and record attendance",
	Long: `Scan a frame for a face, match it against the registry and record
today's attendance for the recognized person. A person is recorded at
most once per day; later scans report that they are already in.

The frame comes from the image path argument or, when omitted, from a
snapshot of the camera at CAMERA_URL.

Examples:
  face-attend scan frame.jpg
  face-attend scan                      # snapshot the camera once
  face-attend scan --watch --interval 3 # keep scanning until Ctrl+C
  face-attend scan --save-snapshot      # keep annotated frames in the data dir`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("watch", false, "Keep scanning the camera until interrupted")
	scanCmd.Flags().Int("interval", 5, "Seconds between scans with --watch")
	scanCmd.Flags().Float64("threshold", 0, "Match distance cutoff (overrides the model profile)")
	scanCmd.Flags().Bool("save-snapshot", false, "Save an annotated snapshot of each detected face")
	scanCmd.Flags().Bool("json", false, "Output as JSON")
}

type scanOptions struct {
	jsonOutput   bool
	saveSnapshot bool
	snapshotDir  string
}

func runScan(cmd *cobra.Command, args []string) error {
	watch := mustGetBool(cmd, "watch")
	interval := mustGetInt(cmd, "interval")

	if watch && len(args) > 0 {
		return errors.New("cannot combine --watch with an image path")
	}
	if interval <= 0 {
		return errors.New("--interval must be positive")
	}

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

	var camera *capture.Camera
	if cfg.Camera.URL != "" {
		camera = capture.NewCamera(cfg.Camera.URL)
	}

	opts := scanOptions{
		jsonOutput:   mustGetBool(cmd, "json"),
		saveSnapshot: mustGetBool(cmd, "save-snapshot"),
		snapshotDir:  cfg.Storage.DataDir,
	}

	if watch {
		return runScanWatch(ctx, svc, camera, opts, interval)
	}

	imagePath := ""
	if len(args) > 0 {
		imagePath = args[0]
	}
	return scanOnce(ctx, svc, camera, imagePath, opts)
}

func scanOnce(ctx context.Context, svc *attendance.Service, camera *capture.Camera, imagePath string, opts scanOptions) error {
	var frame []byte
	var err error
	switch {
	case imagePath != "":
		frame, err = os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", imagePath, err)
		}
	case camera != nil:
		frame, err = camera.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to snapshot camera: %w", err)
		}
	default:
		return errors.New("provide an image path or set CAMERA_URL")
	}

	result, err := svc.Scan(ctx, frame)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		if err := outputJSON(result); err != nil {
			return err
		}
	} else {
		printScanResult(result)
	}

	if opts.saveSnapshot && result.Face != nil {
		path, err := saveAnnotatedSnapshot(frame, result.Face.BBox, opts.snapshotDir)
		if err != nil {
			fmt.Printf("Warning: failed to save snapshot: %v\n", err)
		} else if !opts.jsonOutput {
			fmt.Printf("Snapshot saved to %s\n", path)
		}
	}
	return nil
}

// runScanWatch scans the camera on a fixed interval until interrupted.
// Frames without a face are normal between arrivals and stay quiet; other
// errors are reported and the loop keeps going.
func runScanWatch(ctx context.Context, svc *attendance.Service, camera *capture.Camera, opts scanOptions, interval int) error {
	if camera == nil {
		return errors.New("--watch needs a camera, set CAMERA_URL")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	fmt.Printf("Watching camera every %ds. Press Ctrl+C to stop.\n", interval)

	for {
		if err := scanOnce(ctx, svc, camera, "", opts); err != nil && !errors.Is(err, capture.ErrNoFace) {
			fmt.Printf("Warning: %v\n", err)
		}

		select {
		case <-sigChan:
			fmt.Println("\nStopped.")
			return nil
		case <-ticker.C:
		}
	}
}

func printScanResult(result *attendance.ScanResult) {
	if !result.Matched {
		fmt.Println("Face not recognized.")
		return
	}
	if result.Mark.Already {
		fmt.Printf("%s already recorded today (distance %.4f)\n", result.Match.Name, result.Match.Distance)
		return
	}
	fmt.Printf("Welcome, %s! (distance %.4f)\n", result.Match.Name, result.Match.Distance)
	fmt.Printf("Attendance recorded for %s at %s\n", result.Mark.Date, result.Mark.Time)
}

// saveAnnotatedSnapshot draws the face box on the frame and stores it under
// the data directory.
func saveAnnotatedSnapshot(frame []byte, bbox []float64, dir string) (string, error) {
	annotated, err := capture.Annotate(frame, bbox)
	if err != nil {
		return "", fmt.Errorf("failed to annotate frame: %w", err)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	path := filepath.Join(dir, capture.SnapshotFilename())
	if err := os.WriteFile(path, annotated, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}
