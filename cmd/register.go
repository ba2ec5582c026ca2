package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register [name]",
	Short: "Enroll a person from a photo",
	Long: `Enroll a person in the face registry from a photo.

The photo is sent to the embedding sidecar, the largest detected face
becomes the person's embedding. Re-enrolling an existing person replaces
their embedding.

With --dir, every photo in a folder is enrolled in one go. The file name
without extension becomes the person name; underscores turn into spaces
(alice_nguyen.jpg enrolls "alice nguyen").

Examples:
  face-attend register "Alice Nguyen" --image alice.jpg
  face-attend register --dir ./staff-photos
  face-attend register --dir ./staff-photos -r --concurrency 2`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("image", "", "Photo file to enroll from")
	registerCmd.Flags().String("dir", "", "Enroll every photo in a folder, file name = person name")
	registerCmd.Flags().BoolP("recursive", "r", false, "Search for photos recursively in subdirectories")
	registerCmd.Flags().Int("concurrency", 4, "Number of parallel workers for folder enrollment")
}

// isImageFile checks if a file has an image extension the sidecar can decode
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	supported := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
		".bmp":  true,
		".tiff": true,
		".tif":  true,
	}
	return supported[ext]
}

// personNameFromFile derives the person name from a photo file name.
func personNameFromFile(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(stem, "_", " ")
}

func runRegister(cmd *cobra.Command, args []string) error {
	imagePath := mustGetString(cmd, "image")
	folder := mustGetString(cmd, "dir")

	if folder == "" && len(args) == 0 {
		return errors.New("either provide a person name with --image or use --dir")
	}
	if folder != "" && (len(args) > 0 || imagePath != "") {
		return errors.New("cannot combine --dir with a person name or --image")
	}
	if folder == "" && imagePath == "" {
		return errors.New("--image is required when enrolling a single person")
	}

	ctx := context.Background()
	svc, stores, err := openService(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	if folder != "" {
		return runRegisterFolder(ctx, cmd, svc, folder)
	}
	return runRegisterSingle(ctx, svc, args[0], imagePath)
}

func runRegisterSingle(ctx context.Context, svc *attendance.Service, name, imagePath string) error {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", imagePath, err)
	}

	face, err := svc.RegisterImage(ctx, name, imageData)
	if err != nil {
		return fmt.Errorf("failed to enroll %s: %w", name, err)
	}

	fmt.Printf("Enrolled %s\n", strings.TrimSpace(name))
	if len(face.BBox) == 4 {
		fmt.Printf("  Face: %.0fx%.0f px, detection score %.2f\n",
			face.BBox[2]-face.BBox[0], face.BBox[3]-face.BBox[1], face.DetScore)
	}
	fmt.Printf("  Embedding: %d values\n", face.Dim)
	return nil
}

// collectPhotos gathers image files from a folder, optionally recursively.
func collectPhotos(folder string, recursive bool) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("cannot access folder %s: %w", folder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", folder)
	}

	var filePaths []string
	if recursive {
		err := filepath.WalkDir(folder, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isImageFile(d.Name()) {
				filePaths = append(filePaths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot walk folder %s: %w", folder, err)
		}
		return filePaths, nil
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("cannot read folder %s: %w", folder, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isImageFile(entry.Name()) {
			filePaths = append(filePaths, filepath.Join(folder, entry.Name()))
		}
	}
	return filePaths, nil
}

func runRegisterFolder(ctx context.Context, cmd *cobra.Command, svc *attendance.Service, folder string) error {
	recursive := mustGetBool(cmd, "recursive")
	concurrency := mustGetInt(cmd, "concurrency")

	filePaths, err := collectPhotos(folder, recursive)
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the folder.")
		return nil
	}

	fmt.Printf("Found %d photo(s) to enroll\n\n", len(filePaths))

	bar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var (
		successCount int
		enrollErrors []string
		mu           sync.Mutex
		wg           sync.WaitGroup
		sem          = make(chan struct{}, concurrency)
	)

	for _, filePath := range filePaths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			name := personNameFromFile(path)
			imageData, err := os.ReadFile(path)
			if err == nil {
				_, err = svc.RegisterImage(ctx, name, imageData)
			}
			mu.Lock()
			if err != nil {
				enrollErrors = append(enrollErrors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			} else {
				successCount++
			}
			mu.Unlock()
			bar.Add(1)
		}(filePath)
	}
	wg.Wait()
	fmt.Println()

	for _, errMsg := range enrollErrors {
		fmt.Printf("Failed: %s\n", errMsg)
	}

	if successCount == 0 {
		return fmt.Errorf("no photos were enrolled successfully")
	}
	fmt.Printf("\nDone! Enrolled %d of %d photo(s)\n", successCount, len(filePaths))
	return nil
}
