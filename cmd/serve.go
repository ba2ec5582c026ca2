package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attend/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk web server",
	Long: `Start the Face Attend web server.
The server provides the kiosk UI for scanning faces at the door plus a
JSON API for enrollment, attendance listings and CSV export.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	port := mustGetInt(cmd, "port")
	if port == 0 {
		port = cfg.Web.Port
	}

	fmt.Printf("Opening %s storage...\n", storageName(cfg.Storage.Backend))
	stores, err := openStores(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer stores.Close()
	fmt.Printf("Storage backend: %s\n", stores.Backend)

	svc := newService(cfg, stores)

	profile := cfg.ModelProfile()
	fmt.Printf("Embedding sidecar: %s (model %s, dim %d, threshold %.2f)\n",
		cfg.Embedding.URL, cfg.Embedding.Model, profile.Dim, profile.Threshold)
	if cfg.Camera.URL != "" {
		fmt.Printf("Camera: %s\n", cfg.Camera.URL)
	} else {
		fmt.Println("Camera: not configured, scans need an uploaded frame")
	}

	server := web.NewServer(svc, port, cfg.Web.AllowedOrigins)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attend on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

func storageName(backend string) string {
	if backend == "" {
		return "sqlite"
	}
	return backend
}
