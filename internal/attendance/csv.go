package attendance

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// csvHeader is the fixed first line of every export.
const csvHeader = "Name,Date,Time"

// WriteCSV writes attendance events as CSV in recorded order. Values are
// written verbatim with no quoting or escaping: dates and times are fixed
// format, and kiosk deployments keep names comma free. encoding/csv would
// quote fields and break strict consumers of this format.
func WriteCSV(w io.Writer, events []database.Event) error {
	if _, err := fmt.Fprintf(w, "%s\n", csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, event := range events {
		if _, err := fmt.Fprintf(w, "%s,%s,%s\n", event.Name, event.Date, event.Time); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}

// ExportFilename names an export after the day it was taken.
func ExportFilename(at time.Time) string {
	return fmt.Sprintf("attendance_%s.csv", at.Format(database.DateLayout))
}

// ExportCSV writes the complete attendance log to w.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	events, err := s.ledger.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load attendance log: %w", err)
	}
	return WriteCSV(w, events)
}

// ExportName returns the filename for an export taken now.
func (s *Service) ExportName() string {
	return ExportFilename(s.now())
}
