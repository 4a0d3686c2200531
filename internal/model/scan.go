package model

import "time"

// ScanState is the lifecycle state of the orchestrator.
type ScanState string

const (
	StateIdle     ScanState = "idle"
	StateScanning ScanState = "scanning"
	StateReview   ScanState = "review"
	StateComplete ScanState = "complete"
)

// ScanPhase is the overall phase shown while a scan runs.
type ScanPhase string

const (
	PhaseStarting  ScanPhase = "starting"
	PhaseScanning  ScanPhase = "scanning"
	PhaseAnalyzing ScanPhase = "analyzing"
	PhaseComplete  ScanPhase = "complete"
)

// SourceStatus is the per-source phase reported into ScanProgress.
type SourceStatus string

const (
	SourcePending     SourceStatus = "pending"
	SourceUnavailable SourceStatus = "unavailable"
	SourceScanning    SourceStatus = "scanning"
	SourceAnalyzing   SourceStatus = "analyzing"
	SourceComplete    SourceStatus = "complete"
	SourceFailed      SourceStatus = "failed"
)

// Terminal reports whether the source has stopped running.
func (s SourceStatus) Terminal() bool {
	return s == SourceUnavailable || s == SourceComplete || s == SourceFailed
}

// SourceProgress is one source's half of ScanProgress.
type SourceProgress struct {
	Status          SourceStatus `json:"status"`
	ItemsScanned    int          `json:"items_scanned"`
	CandidatesFound int          `json:"candidates_found"`
	Current         string       `json:"current,omitempty"`
}

// SourceUpdate is what a collaborator pushes while it runs. Counts are
// absolute, not deltas. An empty Status leaves the status unchanged.
type SourceUpdate struct {
	Status          SourceStatus `json:"status,omitempty"`
	ItemsScanned    int          `json:"items_scanned"`
	CandidatesFound int          `json:"candidates_found"`
	Current         string       `json:"current,omitempty"`
}

// ScanProgress is the scan-lifetime progress view.
type ScanProgress struct {
	Generation uint64         `json:"generation"`
	Phase      ScanPhase      `json:"phase"`
	Purchases  SourceProgress `json:"purchases"`
	Email      SourceProgress `json:"email"`
	StartedAt  time.Time      `json:"started_at"`
}

// ItemsScanned sums raw items across both sources.
func (p ScanProgress) ItemsScanned() int {
	return p.Purchases.ItemsScanned + p.Email.ItemsScanned
}

// SessionResult is the immutable outcome of one completed scan.
type SessionResult struct {
	ID             string        `json:"id"`
	Candidates     []Candidate   `json:"candidates"`
	ItemsScanned   int           `json:"items_scanned"`
	Duration       time.Duration `json:"duration_ns"`
	StartedAt      time.Time     `json:"started_at"`
	PurchaseStatus SourceStatus  `json:"purchase_status"`
	EmailStatus    SourceStatus  `json:"email_status"`
	Error          string        `json:"error,omitempty"`
}
