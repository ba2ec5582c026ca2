package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

// DefaultModel is the embedding model assumed when EMBED_MODEL is unset or
// names a model missing from the catalog.
const DefaultModel = "facenet"

type Config struct {
	Camera    CameraConfig
	Embedding EmbeddingConfig
	Match     MatchConfig
	Storage   StorageConfig
	Web       WebConfig
	Models    ModelsConfig
}

type CameraConfig struct {
	URL string // snapshot endpoint of the kiosk camera (e.g., http://cam.local/snapshot.jpg)
}

type EmbeddingConfig struct {
	URL   string // face embedding sidecar, defaults to http://localhost:8000
	Model string // defaults to facenet
	Dim   int    // overrides the catalog dimension when > 0
}

type MatchConfig struct {
	Threshold float64 // overrides the catalog threshold when > 0
}

type StorageConfig struct {
	Backend      string // sqlite, postgres or memory (default sqlite)
	DataDir      string // where the sqlite file and snapshots live (default ./data)
	DatabaseURL  string // PostgreSQL connection URL for the postgres backend
	MaxOpenConns int    // maximum open connections (default 25)
	MaxIdleConns int    // maximum idle connections (default 5)
}

type WebConfig struct {
	Port           int      // HTTP listen port (default 8080)
	AllowedOrigins []string // extra CORS origins beyond localhost
}

type ModelsConfig struct {
	Models map[string]ModelProfile `yaml:"models"`
}

// ModelProfile describes the output of one embedding model: the vector
// length it produces and the Euclidean distance below which two faces
// count as the same person.
type ModelProfile struct {
	Dim       int     `yaml:"dim"`
	Threshold float64 `yaml:"threshold"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// splitOrigins parses a comma separated origin whitelist.
func splitOrigins(s string) []string {
	var origins []string
	for _, origin := range strings.Split(s, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Camera: CameraConfig{
			URL: os.Getenv("CAMERA_URL"),
		},
		Embedding: EmbeddingConfig{
			URL:   envString("EMBED_URL", "http://localhost:8000"),
			Model: envString("EMBED_MODEL", DefaultModel),
			Dim:   envInt("EMBED_DIM", 0),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0),
		},
		Storage: StorageConfig{
			Backend:      os.Getenv("STORAGE_BACKEND"),
			DataDir:      envString("DATA_DIR", "./data"),
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: splitOrigins(os.Getenv("WEB_ALLOWED_ORIGINS")),
		},
		Models: models,
	}
}

// ModelProfile resolves the embedding dimension and match threshold for the
// configured model. Environment overrides win over the catalog; an unknown
// model falls back to the default model's profile.
func (c *Config) ModelProfile() ModelProfile {
	profile, ok := c.Models.Models[c.Embedding.Model]
	if !ok {
		profile = c.Models.Models[DefaultModel]
	}
	if c.Embedding.Dim > 0 {
		profile.Dim = c.Embedding.Dim
	}
	if c.Match.Threshold > 0 {
		profile.Threshold = c.Match.Threshold
	}
	return profile
}
