package punchgen

import (
	"time"

	"github.com/jornada/fichaje/internal/ingest"
)

// Config holds configuration for the punch generator run
type Config struct {
	BaseURL    string        // Base URL of the service
	NumUsers   int           // Number of synthetic users to generate
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated punches
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Day is the generated punch sequence for one synthetic user. Rows are
// chronological; the service's state guard requires submitting them in
// order.
type Day struct {
	UserID   string       `json:"fk_user"`
	UserName string       `json:"usuario_nombre"`
	Shape    int          `json:"shape"`
	Expected string       `json:"expected_estado"`
	Rows     []ingest.Row `json:"rows"`
}

// AckResponse represents the response from punch registration
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// StatusResponse represents a user status entry
type StatusResponse struct {
	UserID   string `json:"fk_user"`
	UserName string `json:"usuario_nombre"`
	Estado   string `json:"estado"`
}

// Stats holds run statistics
type Stats struct {
	DaysGenerated     int
	PunchesGenerated  int
	PunchesSubmitted  int
	PunchesSuccessful int
	PunchesDuplicate  int
	PunchesFailed     int
	StatusesRetrieved int
	ActiveUsers       int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
