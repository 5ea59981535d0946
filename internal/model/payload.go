package model

import "fmt"

// TaskTypeProcessMedia is the queue task type handled by the worker.
const TaskTypeProcessMedia = "media:process"

// ProcessingPayload is the queue-level unit of work wrapping one media item's
// processing request.
type ProcessingPayload struct {
	MediaItemID     int64  `json:"media_item_id"`
	SourceObjectKey string `json:"source_object_key"`
	OwnerID         int64  `json:"owner_id"`
}

// TaskKey derives the deterministic queue task id for an item, so repeated
// enqueue calls for the same item collapse onto a single pending or active
// job.
func TaskKey(mediaItemID int64) string {
	return fmt.Sprintf("media:process:%d", mediaItemID)
}
