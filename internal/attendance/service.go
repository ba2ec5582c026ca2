// Package attendance implements the attendance workflow: enrolling people,
// matching captured faces against the registry and recording at most one
// attendance event per person per day.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
)

// ErrEmptyName rejects enrollments and attendance marks without a person name.
var ErrEmptyName = errors.New("person name must not be empty")

// Service ties the registry, the ledger and the capture pipeline together.
type Service struct {
	registry database.RegistryWriter
	ledger   database.LedgerWriter
	detector *capture.Client
	camera   *capture.Camera

	model     string
	dim       int
	threshold float64
	now       func() time.Time
}

// Options configures a Service. Zero values fall back to sane defaults;
// Detector and Camera stay nil when the deployment has no sidecar or camera.
type Options struct {
	Detector  *capture.Client
	Camera    *capture.Camera
	Model     string           // embedding model name stored with enrollments
	Dim       int              // embedding length, defaults to 128
	Threshold float64          // match distance cutoff, defaults to facematch.DefaultThreshold
	Now       func() time.Time // clock override for tests
}

func New(registry database.RegistryWriter, ledger database.LedgerWriter, opts Options) *Service {
	if opts.Dim <= 0 {
		opts.Dim = 128
	}
	if opts.Threshold <= 0 {
		opts.Threshold = facematch.DefaultThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Model == "" && opts.Detector != nil {
		opts.Model = opts.Detector.Model()
	}

	return &Service{
		registry:  registry,
		ledger:    ledger,
		detector:  opts.Detector,
		camera:    opts.Camera,
		model:     opts.Model,
		dim:       opts.Dim,
		threshold: opts.Threshold,
		now:       opts.Now,
	}
}

// MarkResult reports the outcome of recording an attendance event.
type MarkResult struct {
	Name    string `json:"name"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Already bool   `json:"already_recorded"`
}

// ScanResult is the outcome of one full scan: detection, matching and,
// for a recognized person, the attendance mark.
type ScanResult struct {
	Matched bool             `json:"matched"`
	Match   *facematch.Match `json:"match,omitempty"`
	Face    *capture.Face    `json:"face,omitempty"`
	Mark    *MarkResult      `json:"attendance,omitempty"`
}

// Summary aggregates headline numbers for dashboards.
type Summary struct {
	People int `json:"people"`
	Events int `json:"events"`
	Today  int `json:"today"`
}

// Register enrolls a person with a precomputed face embedding. Re-enrolling
// an existing person replaces their embedding.
func (s *Service) Register(ctx context.Context, name string, embedding []float32) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(embedding) != s.dim {
		return fmt.Errorf("%w: got %d values, registry expects %d", facematch.ErrDimensionMismatch, len(embedding), s.dim)
	}

	enrollment := database.Enrollment{
		Name:      name,
		Embedding: embedding,
		Model:     s.model,
		Dim:       s.dim,
		CreatedAt: s.now(),
	}
	if err := s.registry.Put(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to store enrollment: %w", err)
	}
	return nil
}

// RegisterImage enrolls a person from a photo. The dominant face in the
// frame becomes the person's reference embedding.
func (s *Service) RegisterImage(ctx context.Context, name string, imageData []byte) (*capture.Face, error) {
	if s.detector == nil {
		return nil, errors.New("no embedding sidecar configured")
	}

	face, err := s.detector.EmbedLargestFace(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if err := s.Register(ctx, name, face.Embedding); err != nil {
		return nil, err
	}
	return face, nil
}

// Identify matches an embedding against every enrolled person and returns
// the closest match under the threshold, or nil when nobody is close
// enough. An empty registry short-circuits to no match.
func (s *Service) Identify(ctx context.Context, embedding []float32) (*facematch.Match, error) {
	enrollments, err := s.registry.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	candidates := make([]facematch.Candidate, len(enrollments))
	for i, e := range enrollments {
		candidates[i] = facematch.Candidate{Name: e.Name, Embedding: e.Embedding}
	}
	return facematch.Closest(embedding, candidates, s.threshold)
}

// IdentifyImage runs detection on a frame and identifies the dominant face.
// It never touches the ledger.
func (s *Service) IdentifyImage(ctx context.Context, imageData []byte) (*facematch.Match, *capture.Face, error) {
	if s.detector == nil {
		return nil, nil, errors.New("no embedding sidecar configured")
	}

	face, err := s.detector.EmbedLargestFace(ctx, imageData)
	if err != nil {
		return nil, nil, err
	}
	match, err := s.Identify(ctx, face.Embedding)
	if err != nil {
		return nil, nil, err
	}
	return match, face, nil
}

// Scan is the kiosk operation: grab a frame, find the dominant face, match
// it and record attendance for the recognized person. A nil imageData pulls
// a fresh frame from the configured camera. An unrecognized face is not an
// error; the result reports Matched false.
func (s *Service) Scan(ctx context.Context, imageData []byte) (*ScanResult, error) {
	if imageData == nil {
		if s.camera == nil {
			return nil, errors.New("no frame given and no camera configured")
		}
		frame, err := s.camera.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to grab camera frame: %w", err)
		}
		imageData = frame
	}

	match, face, err := s.IdentifyImage(ctx, imageData)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Face: face}
	if match == nil {
		return result, nil
	}

	mark, err := s.MarkAttendance(ctx, match.Name)
	if err != nil {
		return nil, err
	}
	result.Matched = true
	result.Match = match
	result.Mark = mark
	return result, nil
}

// MarkAttendance records that a person is present today. The first mark of
// the day wins; repeats report Already without adding an event.
func (s *Service) MarkAttendance(ctx context.Context, name string) (*MarkResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	at := s.now()
	event := database.Event{
		Name: name,
		Date: at.Format(database.DateLayout),
		Time: at.Format(database.TimeLayout),
	}
	inserted, err := s.ledger.Mark(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}

	return &MarkResult{
		Name:    event.Name,
		Date:    event.Date,
		Time:    event.Time,
		Already: !inserted,
	}, nil
}

// People lists everyone in the registry.
func (s *Service) People(ctx context.Context) ([]database.Enrollment, error) {
	return s.registry.All(ctx)
}

// RegistryEmpty reports whether anyone is enrolled at all.
func (s *Service) RegistryEmpty(ctx context.Context) (bool, error) {
	count, err := s.registry.Count(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Log returns attendance events, optionally narrowed by a filter, in the
// order they were recorded.
func (s *Service) Log(ctx context.Context, filter database.EventFilter) ([]database.Event, error) {
	return s.ledger.Filter(ctx, filter)
}

// Summary computes the dashboard numbers: enrolled people, total events
// and events recorded today.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	people, err := s.registry.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count registry: %w", err)
	}
	events, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count ledger: %w", err)
	}
	today, err := s.ledger.Filter(ctx, database.EventFilter{Date: s.now().Format(database.DateLayout)})
	if err != nil {
		return nil, fmt.Errorf("failed to load today's events: %w", err)
	}

	return &Summary{
		People: people,
		Events: events,
		Today:  len(today),
	}, nil
}

// Profile describes the matching setup the service runs with. The kiosk UI
// and operators read it to see which model and threshold are live.
type Profile struct {
	Model     string  `json:"model"`
	Dim       int     `json:"dim"`
	Threshold float64 `json:"threshold"`
	Detector  bool    `json:"detector"`
	Camera    bool    `json:"camera"`
}

// Profile returns the active matching setup.
func (s *Service) Profile() Profile {
	return Profile{
		Model:     s.model,
		Dim:       s.dim,
		Threshold: s.threshold,
		Detector:  s.detector != nil,
		Camera:    s.camera != nil,
	}
}

// ResetRegistry removes every enrollment. Callers confirm with the user
// before invoking this.
func (s *Service) ResetRegistry(ctx context.Context) error {
	return s.registry.RemoveAll(ctx)
}

// ResetLedger wipes the attendance log. Callers confirm with the user
// before invoking this.
func (s *Service) ResetLedger(ctx context.Context) error {
	return s.ledger.RemoveAll(ctx)
}
