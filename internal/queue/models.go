package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusReconciling  Status = "reconciling"
	StatusReconciled   Status = "reconciled"
	StatusCleaning     Status = "cleaning"
	StatusCleaned      Status = "cleaned"
	StatusZipping      Status = "zipping"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// DaemonStopReason is the error message set when items are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusTranscribed,
	StatusReconciling,
	StatusReconciled,
	StatusCleaning,
	StatusCleaned,
	StatusZipping,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusTranscribing: {},
	StatusReconciling:  {},
	StatusCleaning:     {},
	StatusZipping:      {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map an in-flight status back to the stable status
// it entered from, so interrupted work is retried from the stage boundary.
var stageRollbackTransitions = []statusTransition{
	{from: StatusTranscribing, to: StatusPending},
	{from: StatusReconciling, to: StatusTranscribed},
	{from: StatusCleaning, to: StatusReconciled},
	{from: StatusZipping, to: StatusCleaned},
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID              int64
	SourcePath      string
	Title           string
	Status          Status
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	MergedFile      string
	CleanFile       string
	FinalFile       string
	LastHeartbeat   *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// RollbackStatus returns the stable status an in-flight status entered from.
// Non-processing statuses return false.
func RollbackStatus(status Status) (Status, bool) {
	for _, transition := range stageRollbackTransitions {
		if transition.from == status {
			return transition.to, true
		}
	}
	return "", false
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.ProgressStage = "Failed"
	i.LastHeartbeat = nil
}
