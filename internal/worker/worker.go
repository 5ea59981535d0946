package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/Boptone/boptone-ai-sub008/internal/model"
	"github.com/Boptone/boptone-ai-sub008/internal/service"
	"github.com/Boptone/boptone-ai-sub008/internal/storage"
	"github.com/Boptone/boptone-ai-sub008/internal/telemetry"
	"github.com/Boptone/boptone-ai-sub008/internal/transcode"
)

const maxErrorMessageLen = 1024

// WorkerService consumes processing jobs one at a time and drives each item
// through the rendition pipeline.
type WorkerService struct {
	*service.Services
	runner   transcode.Runner
	tempDir  string
	redisOpt asynq.RedisClientOpt
	server   *asynq.Server
}

// NewWorkerService builds a worker around the shared services container.
func NewWorkerService(svc *service.Services, runner transcode.Runner, tempDir string, redisOpt asynq.RedisClientOpt) *WorkerService {
	return &WorkerService{
		Services: svc,
		runner:   runner,
		tempDir:  tempDir,
		redisOpt: redisOpt,
	}
}

// Start registers the task handler and consumes jobs until the context is
// cancelled. Concurrency is fixed at one so a single job is in flight per
// worker process.
func (w *WorkerService) Start(ctx context.Context) error {
	w.server = asynq.NewServer(w.redisOpt, asynq.Config{
		Concurrency: 1,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(model.TaskTypeProcessMedia, w.HandleProcessTask)

	if err := w.server.Start(mux); err != nil {
		return fmt.Errorf("start queue consumer: %w", err)
	}

	telemetry.Logger.Info("Worker started", zap.String("task_type", model.TaskTypeProcessMedia))
	<-ctx.Done()

	telemetry.Logger.Info("Shutting down worker gracefully")
	w.server.Shutdown()
	return nil
}

// HandleProcessTask unwraps the queue payload and processes the item. Errors
// returned here are retried by the queue up to its retry budget unless marked
// with asynq.SkipRetry.
func (w *WorkerService) HandleProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload model.ProcessingPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid processing payload: %v: %w", err, asynq.SkipRetry)
	}
	return w.processItem(ctx, payload)
}

// processItem runs the pipeline for one item: lookup, fresh rendition
// generation, sequential per-format transcode and upload, thumbnail, and the
// overall status reduction. Per-rendition failures are recorded in place and
// never abort sibling formats.
func (w *WorkerService) processItem(ctx context.Context, payload model.ProcessingPayload) error {
	item, err := w.Store.GetMediaItem(ctx, payload.MediaItemID)
	if err != nil {
		return fmt.Errorf("look up media item %d: %w", payload.MediaItemID, err)
	}
	if item == nil {
		telemetry.Logger.Error("Media item missing at job start, failing permanently",
			zap.Int64("media_item_id", payload.MediaItemID))
		return fmt.Errorf("media item %d not found: %w", payload.MediaItemID, asynq.SkipRetry)
	}

	generation, err := w.Store.BeginProcessing(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("begin processing item %d: %w", item.ID, err)
	}

	workDir := filepath.Join(w.tempDir, fmt.Sprintf("media-%d-%s", item.ID, uuid.New().String()))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "source"+filepath.Ext(payload.SourceObjectKey))
	if err := w.Objects.FetchFile(ctx, payload.SourceObjectKey, inputPath); err != nil {
		return fmt.Errorf("fetch source %q: %w", payload.SourceObjectKey, err)
	}

	formats := model.Catalog()
	if err := w.Store.ResetRenditions(ctx, item.ID, generation, model.CatalogNames()); err != nil {
		return fmt.Errorf("reset renditions for item %d: %w", item.ID, err)
	}

	sourceHeight := 0
	if height, probeErr := w.runner.ProbeHeight(ctx, inputPath); probeErr != nil {
		telemetry.Logger.Warn("Source probe failed, attempting all tiers",
			zap.Int64("media_item_id", item.ID), zap.Error(probeErr))
	} else {
		sourceHeight = height
	}

	for _, format := range formats {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.processRendition(ctx, item.ID, inputPath, workDir, format, sourceHeight)
	}

	w.processThumbnail(ctx, item.ID, inputPath, workDir)

	jobs, err := w.Store.ListRenditions(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("list renditions for item %d: %w", item.ID, err)
	}

	overall := model.ReduceOverallStatus(jobs)
	if err := w.Store.FinishProcessing(ctx, item.ID, overall, ""); err != nil {
		return fmt.Errorf("finish processing item %d: %w", item.ID, err)
	}
	w.Metrics.IncrementJobCounter(string(overall))

	telemetry.Logger.Info("Processing job finished",
		zap.Int64("media_item_id", item.ID),
		zap.Int64("generation", generation),
		zap.String("status", string(overall)))
	return nil
}

// processRendition attempts one format. A tier above the probed source height
// is skipped rather than upscaled; tool and upload failures are recorded on
// the rendition row and the loop continues.
func (w *WorkerService) processRendition(ctx context.Context, itemID int64, inputPath, workDir string, format model.RenditionFormat, sourceHeight int) {
	if sourceHeight > 0 && format.MaxHeight > sourceHeight {
		if err := w.Store.MarkRenditionSkipped(ctx, itemID, format.Name); err != nil {
			telemetry.Logger.Error("Failed to record skipped rendition",
				zap.Int64("media_item_id", itemID), zap.String("format", format.Name), zap.Error(err))
			return
		}
		w.Metrics.IncrementRenditionCounter(string(model.RenditionSkipped))
		return
	}

	if err := w.Store.MarkRenditionProcessing(ctx, itemID, format.Name); err != nil {
		telemetry.Logger.Error("Failed to mark rendition processing",
			zap.Int64("media_item_id", itemID), zap.String("format", format.Name), zap.Error(err))
		return
	}

	outputPath := filepath.Join(workDir, format.Name+".mp4")
	if err := w.runner.Transcode(ctx, inputPath, outputPath, format); err != nil {
		w.recordRenditionError(ctx, itemID, format.Name, err)
		return
	}

	key := storage.RenditionKey(itemID, format.Name)
	result, err := w.Objects.PutFile(ctx, key, outputPath, "video/mp4")
	if err != nil {
		w.recordRenditionError(ctx, itemID, format.Name, err)
		return
	}

	if err := w.Store.MarkRenditionDone(ctx, itemID, format.Name, result.Key, result.URL, result.Size); err != nil {
		telemetry.Logger.Error("Failed to record rendition output",
			zap.Int64("media_item_id", itemID), zap.String("format", format.Name), zap.Error(err))
		return
	}
	w.Metrics.IncrementRenditionCounter(string(model.RenditionDone))
}

func (w *WorkerService) recordRenditionError(ctx context.Context, itemID int64, format string, cause error) {
	telemetry.Logger.Warn("Rendition failed",
		zap.Int64("media_item_id", itemID), zap.String("format", format), zap.Error(cause))
	if err := w.Store.MarkRenditionError(ctx, itemID, format, truncateError(cause)); err != nil {
		telemetry.Logger.Error("Failed to record rendition error",
			zap.Int64("media_item_id", itemID), zap.String("format", format), zap.Error(err))
		return
	}
	w.Metrics.IncrementRenditionCounter(string(model.RenditionError))
}

// processThumbnail extracts and uploads a frame near the start of the source.
// Failure here never fails the job.
func (w *WorkerService) processThumbnail(ctx context.Context, itemID int64, inputPath, workDir string) {
	thumbPath := filepath.Join(workDir, "thumb.jpg")
	if err := w.runner.ExtractThumbnail(ctx, inputPath, thumbPath); err != nil {
		telemetry.Logger.Warn("Thumbnail extraction failed",
			zap.Int64("media_item_id", itemID), zap.Error(err))
		return
	}

	key := storage.ThumbnailKey(itemID)
	result, err := w.Objects.PutFile(ctx, key, thumbPath, "image/jpeg")
	if err != nil {
		telemetry.Logger.Warn("Thumbnail upload failed",
			zap.Int64("media_item_id", itemID), zap.Error(err))
		return
	}

	if err := w.Store.SetThumbnail(ctx, itemID, result.Key); err != nil {
		telemetry.Logger.Error("Failed to record thumbnail",
			zap.Int64("media_item_id", itemID), zap.Error(err))
	}
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
