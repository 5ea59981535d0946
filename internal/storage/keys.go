package storage

import "fmt"

// RenditionKey returns the deterministic object key for one rendition, scoped
// by item id so re-processing overwrites the previous output.
func RenditionKey(mediaItemID int64, format string) string {
	return fmt.Sprintf("media/%d/renditions/%s.mp4", mediaItemID, format)
}

// ThumbnailKey returns the deterministic object key for the item's thumbnail.
func ThumbnailKey(mediaItemID int64) string {
	return fmt.Sprintf("media/%d/thumb.jpg", mediaItemID)
}
