package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Boptone/boptone-ai-sub008/internal/model"
	"github.com/Boptone/boptone-ai-sub008/internal/repository/queue"
	"github.com/Boptone/boptone-ai-sub008/internal/telemetry"
)

type createMediaRequest struct {
	OwnerID      int64  `json:"owner_id"`
	RawObjectKey string `json:"raw_object_key"`
}

type enqueueResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type statusResponse struct {
	ID           int64                  `json:"id"`
	Status       model.ProcessingStatus `json:"status"`
	ThumbnailKey string                 `json:"thumbnail_key,omitempty"`
	Summary      model.RenditionSummary `json:"summary"`
	Jobs         []model.RenditionJob   `json:"jobs"`
}

// handleCreateMedia records a media item after the upload handler has
// persisted the raw object.
func (s *Server) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	var req createMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		telemetry.Logger.Error("User error: Failed to decode media item from request", zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Invalid media item format", http.StatusBadRequest)
		return
	}
	if req.OwnerID <= 0 || req.RawObjectKey == "" {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "owner_id and raw_object_key are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := s.services.Store.CreateMediaItem(ctx, req.OwnerID, req.RawObjectKey)
	if err != nil {
		telemetry.Logger.Error("System error: Failed to create media item", zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Failed to create media item", http.StatusInternalServerError)
		return
	}

	s.services.Metrics.IncrementServerRequestCounter("success")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

// handleEnqueue schedules a processing job for the item. Re-enqueue while a
// job is pending or active is idempotent; re-enqueue after a terminal state
// starts a fresh generation.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := s.services.Store.GetMediaItem(ctx, id)
	if err != nil {
		telemetry.Logger.Error("System error: Failed to look up media item", zap.Int64("id", id), zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Media item not found", http.StatusNotFound)
		return
	}

	payload := model.ProcessingPayload{
		MediaItemID:     item.ID,
		SourceObjectKey: item.RawObjectKey,
		OwnerID:         item.OwnerID,
	}
	if err := s.services.Queue.EnqueueProcessing(ctx, payload); err != nil {
		if errors.Is(err, queue.ErrDuplicateJob) {
			s.services.Metrics.IncrementQueuePushCounter("duplicate")
			s.services.Metrics.IncrementServerRequestCounter("success")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(enqueueResponse{ID: item.ID, Status: "already_queued"})
			return
		}
		telemetry.Logger.Error("System error: Failed to enqueue job", zap.Int64("id", id), zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Failed to enqueue job", http.StatusInternalServerError)
		return
	}

	if err := s.services.Store.MarkQueued(ctx, item.ID); err != nil {
		telemetry.Logger.Error("System error: Failed to mark item queued", zap.Int64("id", id), zap.Error(err))
	}

	telemetry.Logger.Info("Job submitted successfully",
		zap.Int64("media_item_id", item.ID),
		zap.String("source_object_key", item.RawObjectKey),
	)

	s.services.Metrics.IncrementQueuePushCounter("job_pushed")
	s.services.Metrics.IncrementServerRequestCounter("success")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(enqueueResponse{ID: item.ID, Status: string(model.StatusQueued)})
}

// handleStatus is the polled read path: overall status plus per-format
// rendition records. Pure read, owner only.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		return
	}

	requester, ok := requesterID(r)
	if !ok {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Missing requester identity", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := s.services.Store.GetMediaItem(ctx, id)
	if err != nil {
		telemetry.Logger.Error("System error: Failed to look up media item", zap.Int64("id", id), zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Media item not found", http.StatusNotFound)
		return
	}
	if item.OwnerID != requester {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	jobs, err := s.services.Store.ListRenditions(ctx, item.ID)
	if err != nil {
		telemetry.Logger.Error("System error: Failed to list renditions", zap.Int64("id", id), zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []model.RenditionJob{}
	}

	s.services.Metrics.IncrementServerRequestCounter("success")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		ID:           item.ID,
		Status:       item.Status,
		ThumbnailKey: item.ThumbnailKey,
		Summary:      model.Summarize(jobs),
		Jobs:         jobs,
	})
}

// handleDelete soft-deletes the item. Stored objects are not purged.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		return
	}

	requester, ok := requesterID(r)
	if !ok {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Missing requester identity", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := s.services.Store.GetMediaItem(ctx, id)
	if err != nil {
		telemetry.Logger.Error("System error: Failed to look up media item", zap.Int64("id", id), zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Media item not found", http.StatusNotFound)
		return
	}
	if item.OwnerID != requester {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := s.services.Store.SoftDelete(ctx, item.ID); err != nil {
		telemetry.Logger.Error("System error: Failed to delete media item", zap.Int64("id", id), zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	s.services.Metrics.IncrementServerRequestCounter("success")
	w.WriteHeader(http.StatusNoContent)
}
