package database

import (
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/facematch"
)

// DateLayout is the wire and storage format for calendar days.
const DateLayout = "2006-01-02"

// TimeLayout is the wire and storage format for times of day.
const TimeLayout = "15:04:05"

// Enrollment represents one registered person: the name as entered at
// enrollment plus the face embedding captured for them. Backends key
// enrollments by the normalized form of Name, so re-enrolling Jose after
// José replaces the earlier entry.
type Enrollment struct {
	Name      string
	Embedding []float32
	Model     string
	Dim       int
	CreatedAt time.Time
}

// Event represents one attendance record: a person was seen on a calendar
// day. Date is formatted with DateLayout, Time with TimeLayout, both in the
// wall clock of the process that marked it.
type Event struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// EventFilter narrows ledger listings. The zero value matches everything.
type EventFilter struct {
	// Date keeps only events of this exact calendar day when non-empty.
	Date string
	// Name keeps only events whose name contains this substring, compared
	// case- and diacritic-insensitively, when non-empty.
	Name string
}

// Matches reports whether an event passes the filter. Backends without a
// nicer native query share this so that filter semantics stay identical
// across them.
func (f EventFilter) Matches(event Event) bool {
	if f.Date != "" && event.Date != f.Date {
		return false
	}
	if f.Name != "" {
		name := facematch.NormalizeName(event.Name)
		needle := facematch.NormalizeName(f.Name)
		if !strings.Contains(name, needle) {
			return false
		}
	}
	return true
}
