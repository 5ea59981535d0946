package model

import (
	"strings"
	"time"
)

// ProcessingStatus is the overall lifecycle state of a media item.
type ProcessingStatus string

const (
	StatusQueued     ProcessingStatus = "queued"
	StatusProcessing ProcessingStatus = "processing"
	StatusReady      ProcessingStatus = "ready"
	StatusPartial    ProcessingStatus = "partial"
	StatusError      ProcessingStatus = "error"
)

var processingStatusSet = map[ProcessingStatus]struct{}{
	StatusQueued:     {},
	StatusProcessing: {},
	StatusReady:      {},
	StatusPartial:    {},
	StatusError:      {},
}

// ParseProcessingStatus converts a string into a known ProcessingStatus.
func ParseProcessingStatus(value string) (ProcessingStatus, bool) {
	normalized := ProcessingStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := processingStatusSet[normalized]
	return normalized, ok
}

// Terminal reports whether no further automatic transition occurs without a
// new enqueue.
func (s ProcessingStatus) Terminal() bool {
	switch s {
	case StatusReady, StatusPartial, StatusError:
		return true
	default:
		return false
	}
}

// RenditionStatus is the per-format outcome state of one rendition job.
type RenditionStatus string

const (
	RenditionQueued     RenditionStatus = "queued"
	RenditionProcessing RenditionStatus = "processing"
	RenditionDone       RenditionStatus = "done"
	RenditionError      RenditionStatus = "error"
	RenditionSkipped    RenditionStatus = "skipped"
)

// MediaItem is an uploaded asset that derived renditions are produced from.
// The raw object key is immutable once set; status and rendition rows are
// mutated only by the worker after a job starts.
type MediaItem struct {
	ID           int64            `json:"id"`
	OwnerID      int64            `json:"owner_id"`
	RawObjectKey string           `json:"raw_object_key"`
	ThumbnailKey string           `json:"thumbnail_key,omitempty"`
	Status       ProcessingStatus `json:"status"`
	Generation   int64            `json:"generation"`
	ErrorMessage string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	DeletedAt    *time.Time       `json:"-"`
}

// RenditionJob records one target output format's processing outcome for a
// media item. At most one row exists per (item, format); a re-enqueue
// supersedes the previous generation's rows rather than merging with them.
type RenditionJob struct {
	ID           int64           `json:"-"`
	MediaItemID  int64           `json:"-"`
	Generation   int64           `json:"generation"`
	Format       string          `json:"format"`
	Status       RenditionStatus `json:"status"`
	OutputKey    string          `json:"output_key,omitempty"`
	OutputURL    string          `json:"output_url,omitempty"`
	OutputBytes  int64           `json:"output_bytes,omitempty"`
	Attempts     int64           `json:"attempts"`
	ErrorMessage string          `json:"error,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// RenditionSummary aggregates per-format states for polling clients.
type RenditionSummary struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
	Skipped    int `json:"skipped"`
	Total      int `json:"total"`
}

// Summarize counts rendition jobs by status.
func Summarize(jobs []RenditionJob) RenditionSummary {
	summary := RenditionSummary{Total: len(jobs)}
	for _, job := range jobs {
		switch job.Status {
		case RenditionQueued:
			summary.Queued++
		case RenditionProcessing:
			summary.Processing++
		case RenditionDone:
			summary.Done++
		case RenditionError:
			summary.Error++
		case RenditionSkipped:
			summary.Skipped++
		}
	}
	return summary
}

// ReduceOverallStatus folds a generation's rendition outcomes into the item's
// terminal status: ready when every job finished as done or skipped, error
// when none produced output, partial otherwise. The ready rule is applied
// first, so an item whose every format was intentionally skipped reports
// ready rather than error.
func ReduceOverallStatus(jobs []RenditionJob) ProcessingStatus {
	done := 0
	finished := 0
	for _, job := range jobs {
		switch job.Status {
		case RenditionDone:
			done++
			finished++
		case RenditionSkipped:
			finished++
		}
	}
	switch {
	case finished == len(jobs):
		return StatusReady
	case done == 0:
		return StatusError
	default:
		return StatusPartial
	}
}
