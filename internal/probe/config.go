// Package probe exercises a running lead scoring server over HTTP and
// checks that its responses honor the listing contract.
package probe

import "time"

// Default probe settings.
const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultWorkers = 4
	DefaultTimeout = 10 * time.Second
	DefaultMin     = 0.5
	DefaultWait    = 15 * time.Second
)

// Config holds probe settings.
type Config struct {
	BaseURL  string        // Base URL of the service
	Workers  int           // Concurrent requests
	Timeout  time.Duration // Per-request timeout
	MinScore float64       // Threshold used by the min_score cases
	Wait     time.Duration // How long to retry the health check; 0 tries once
}

// DefaultConfig returns a Config for a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Workers:  DefaultWorkers,
		Timeout:  DefaultTimeout,
		MinScore: DefaultMin,
		Wait:     DefaultWait,
	}
}

// Case is one filtered listing request.
type Case struct {
	Name     string
	Industry string
	Role     string
	Location string
	MinScore float64
	Sort     string
}

// Result is the outcome of one case.
type Result struct {
	Case  Case
	Rows  int
	Error error
}

// Report summarizes a probe run.
type Report struct {
	Leads    int           // rows in the unfiltered listing
	Cases    int           // listing cases checked
	Failed   int           // cases with a violation
	Exported int           // rows in the CSV export of the first filtered case
	Duration time.Duration // wall time of the run
	Results  []Result
}
