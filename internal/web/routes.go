package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/kozaktomas/face-attend/internal/web/static"
)

func (s *Server) setupRoutes() {
	// Create handlers; the mutating ones invalidate the stats cache.
	statsHandler := handlers.NewStatsHandler(s.service)
	configHandler := handlers.NewConfigHandler(s.service)
	peopleHandler := handlers.NewPeopleHandler(s.service, statsHandler)
	scanHandler := handlers.NewScanHandler(s.service, statsHandler)
	attendanceHandler := handlers.NewAttendanceHandler(s.service, statsHandler)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Registry
		r.Get("/people", peopleHandler.List)
		r.Post("/people", peopleHandler.Register)
		r.Delete("/people", peopleHandler.RemoveAll)
		r.Get("/people/empty", peopleHandler.Empty)

		// Kiosk scanning
		r.Post("/scan", scanHandler.Scan)
		r.Post("/identify", scanHandler.Identify)

		// Attendance log
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/export", attendanceHandler.Export)
		r.Delete("/attendance", attendanceHandler.RemoveAll)

		// Stats and live profile
		r.Get("/stats", statsHandler.Get)
		r.Get("/config", configHandler.Get)
	})

	// Serve the kiosk UI
	s.router.Get("/*", s.serveUI)
}

// serveUI serves the embedded kiosk page and its assets.
func (s *Server) serveUI(w http.ResponseWriter, r *http.Request) {
	if static.HasDist() {
		fs := static.GetFileSystem()
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}

		f, err := fs.Open(path)
		if err == nil {
			defer f.Close()

			stat, err := f.Stat()
			if err == nil && !stat.IsDir() {
				contentType := "application/octet-stream"
				switch {
				case strings.HasSuffix(path, ".html"):
					contentType = "text/html; charset=utf-8"
				case strings.HasSuffix(path, ".css"):
					contentType = "text/css; charset=utf-8"
				case strings.HasSuffix(path, ".js"):
					contentType = "application/javascript; charset=utf-8"
				case strings.HasSuffix(path, ".json"):
					contentType = "application/json"
				case strings.HasSuffix(path, ".svg"):
					contentType = "image/svg+xml"
				case strings.HasSuffix(path, ".png"):
					contentType = "image/png"
				case strings.HasSuffix(path, ".ico"):
					contentType = "image/x-icon"
				}

				w.Header().Set("Content-Type", contentType)
				w.WriteHeader(http.StatusOK)
				io.Copy(w, f)
				return
			}
		}

		// Unknown paths fall back to the kiosk page.
		indexFile, err := fs.Open("/index.html")
		if err == nil {
			defer indexFile.Close()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			io.Copy(w, indexFile)
			return
		}
	}

	// Fallback: point at the API if no UI is embedded.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Face Attend</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Face Attend</h1>
        <p>The kiosk UI is not embedded in this build.</p>
        <p>API is available at <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
