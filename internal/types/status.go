package types

// Outcomes of handling one upload notification.
const (
	OutcomeWritten      = "written"
	OutcomeSkipped      = "skipped"
	OutcomeKeptOriginal = "kept-original"
	OutcomeFailed       = "failed"
)

const (
	PROCESSED = "PROCESSED"
	FAILED    = "FAILED"
	SKIPPED   = "SKIPPED"
)

// Result describes what a handler did with one notification record.
type Result struct {
	Handler string
	Bucket  string
	Key     string
	Outcome string
	Reason  string
	Written []string
}

// StatusData represents the inner payload
type StatusData struct {
	Bucket   string   `json:"bucket"`
	Key      string   `json:"key"`
	Handler  string   `json:"handler"`
	Status   string   `json:"status"`
	Outputs  []string `json:"outputs,omitempty"`
	ErrorMsg string   `json:"errorMsg"`
}

// StatusMessage represents the full message envelope
type StatusMessage struct {
	Pattern string     `json:"pattern"`
	Data    StatusData `json:"data"`
}
