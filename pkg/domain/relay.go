package domain

import "time"

// RelayJob carries only the submission id. Workers re-read current state on
// claim, so a job enqueued against a later-modified submission never acts on
// a stale snapshot.
type RelayJob struct {
	SubmissionID string    `json:"submissionId"`
	Attempts     int       `json:"attempts,omitempty"`
	MaxAttempts  int       `json:"maxAttempts,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
	NotBefore    time.Time `json:"notBefore,omitempty"` // earliest retry time
}

// RelayStats is the admin view of the relay pipeline.
type RelayStats struct {
	Pending  int64 `json:"pending"`
	Delayed  int64 `json:"delayed"`
	InFlight int64 `json:"inFlight"`
	Failed   int64 `json:"failed"`
	// Backlog counts APPROVED submissions with no relay reference yet,
	// i.e. everything the next sweeps still owe the secondary ledger.
	Backlog int64 `json:"backlog"`
}
