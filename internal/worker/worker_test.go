package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Boptone/boptone-ai-sub008/internal/model"
	"github.com/Boptone/boptone-ai-sub008/internal/repository/store"
	"github.com/Boptone/boptone-ai-sub008/internal/service"
	"github.com/Boptone/boptone-ai-sub008/internal/storage"
	"github.com/Boptone/boptone-ai-sub008/test/mocks"
)

// fakeRunner stands in for the external transcode tool. Per-format errors let
// tests fail exactly one tier.
type fakeRunner struct {
	height       int
	probeErr     error
	transcodeErr map[string]error
	thumbErr     error
}

func (f *fakeRunner) Transcode(ctx context.Context, inputPath, outputPath string, format model.RenditionFormat) error {
	if err := f.transcodeErr[format.Name]; err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("rendition"), 0o644)
}

func (f *fakeRunner) ExtractThumbnail(ctx context.Context, inputPath, outputPath string) error {
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(outputPath, []byte("thumb"), 0o644)
}

func (f *fakeRunner) ProbeHeight(ctx context.Context, inputPath string) (int, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.height, nil
}

// fakeObjects is an in-memory object store.
type fakeObjects struct {
	fetchErr error
	putErr   map[string]error
	puts     map[string]int64
}

func (f *fakeObjects) FetchFile(ctx context.Context, key, localPath string) error {
	if f.fetchErr != nil {
		return f.fetchErr
	}
	return os.WriteFile(localPath, []byte("raw source"), 0o644)
}

func (f *fakeObjects) PutFile(ctx context.Context, key, localPath, contentType string) (storage.PutResult, error) {
	if err := f.putErr[key]; err != nil {
		return storage.PutResult{}, err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return storage.PutResult{}, err
	}
	if f.puts == nil {
		f.puts = map[string]int64{}
	}
	f.puts[key] = info.Size()
	return storage.PutResult{Key: key, URL: "http://cdn/" + key, Size: info.Size()}, nil
}

func newTestWorker(t *testing.T, runner *fakeRunner, objects storage.ObjectStore) (*WorkerService, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "media.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	metricsMock := mocks.NewMetricsClient(t)
	metricsMock.On("IncrementRenditionCounter", mock.AnythingOfType("string")).Return().Maybe()
	metricsMock.On("IncrementJobCounter", mock.AnythingOfType("string")).Return().Maybe()

	svc := service.NewServices(metricsMock, st, nil, objects)
	return NewWorkerService(svc, runner, t.TempDir(), asynq.RedisClientOpt{}), st
}

func payloadFor(item *model.MediaItem) model.ProcessingPayload {
	return model.ProcessingPayload{
		MediaItemID:     item.ID,
		SourceObjectKey: item.RawObjectKey,
		OwnerID:         item.OwnerID,
	}
}

func TestProcessItemHappyPath(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{height: 1080}
	objects := &fakeObjects{}
	w, st := newTestWorker(t, runner, objects)

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/42.mp4")
	require.NoError(t, err)

	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	fetched, err := st.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, fetched.Status)
	require.NotNil(t, fetched.CompletedAt)
	assert.Equal(t, storage.ThumbnailKey(item.ID), fetched.ThumbnailKey)

	jobs, err := st.ListRenditions(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, jobs, len(model.Catalog()))
	for _, job := range jobs {
		assert.Equal(t, model.RenditionDone, job.Status, "format %s", job.Format)
		assert.NotEmpty(t, job.OutputURL)
		assert.Positive(t, job.OutputBytes)
		assert.EqualValues(t, 1, job.Attempts)
	}
}

func TestProcessItemPartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{
		height:       1080,
		transcodeErr: map[string]error{"1080p": errors.New("UnsupportedCodec")},
	}
	objects := &fakeObjects{}
	w, st := newTestWorker(t, runner, objects)

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/43.mp4")
	require.NoError(t, err)

	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	fetched, err := st.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartial, fetched.Status)

	jobs, err := st.ListRenditions(ctx, item.ID)
	require.NoError(t, err)
	byFormat := map[string]model.RenditionJob{}
	for _, job := range jobs {
		byFormat[job.Format] = job
	}

	failed := byFormat["1080p"]
	assert.Equal(t, model.RenditionError, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "UnsupportedCodec")
	assert.Empty(t, failed.OutputURL)

	for _, format := range []string{"720p", "480p"} {
		job := byFormat[format]
		assert.Equal(t, model.RenditionDone, job.Status, "one failure must not short-circuit %s", format)
		assert.NotEmpty(t, job.OutputURL)
	}
}

func TestProcessItemAllRenditionsFail(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{
		height: 1080,
		transcodeErr: map[string]error{
			"1080p": errors.New("tool crash"),
			"720p":  errors.New("tool crash"),
			"480p":  errors.New("tool crash"),
		},
	}
	w, st := newTestWorker(t, runner, &fakeObjects{})

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/44.mp4")
	require.NoError(t, err)

	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	fetched, err := st.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, fetched.Status)
}

func TestProcessItemSkipsTiersAboveSource(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{height: 480}
	w, st := newTestWorker(t, runner, &fakeObjects{})

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/45.mp4")
	require.NoError(t, err)

	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	jobs, err := st.ListRenditions(ctx, item.ID)
	require.NoError(t, err)
	byFormat := map[string]model.RenditionStatus{}
	for _, job := range jobs {
		byFormat[job.Format] = job.Status
	}
	assert.Equal(t, model.RenditionSkipped, byFormat["1080p"])
	assert.Equal(t, model.RenditionSkipped, byFormat["720p"])
	assert.Equal(t, model.RenditionDone, byFormat["480p"])

	fetched, err := st.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, fetched.Status, "skipped tiers count as finished")
}

func TestProcessItemProbeFailureAttemptsAllTiers(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{probeErr: errors.New("probe crash")}
	w, st := newTestWorker(t, runner, &fakeObjects{})

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/46.mp4")
	require.NoError(t, err)

	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	jobs, err := st.ListRenditions(ctx, item.ID)
	require.NoError(t, err)
	for _, job := range jobs {
		assert.Equal(t, model.RenditionDone, job.Status, "format %s attempted despite probe failure", job.Format)
	}
}

func TestProcessItemThumbnailFailureTolerated(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{height: 1080, thumbErr: errors.New("no frame")}
	w, st := newTestWorker(t, runner, &fakeObjects{})

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/47.mp4")
	require.NoError(t, err)

	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	fetched, err := st.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, fetched.Status)
	assert.Empty(t, fetched.ThumbnailKey)
}

func TestProcessItemUploadFailureRecordedPerRendition(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{height: 1080}
	w, st := newTestWorker(t, runner, nil)

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/48.mp4")
	require.NoError(t, err)

	objects := &fakeObjects{
		putErr: map[string]error{
			storage.RenditionKey(item.ID, "720p"): errors.New("storage unreachable"),
		},
	}
	w.Objects = objects

	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	jobs, err := st.ListRenditions(ctx, item.ID)
	require.NoError(t, err)
	byFormat := map[string]model.RenditionJob{}
	for _, job := range jobs {
		byFormat[job.Format] = job
	}
	assert.Equal(t, model.RenditionError, byFormat["720p"].Status)
	assert.Contains(t, byFormat["720p"].ErrorMessage, "storage unreachable")
	assert.Equal(t, model.RenditionDone, byFormat["1080p"].Status)
	assert.Equal(t, model.RenditionDone, byFormat["480p"].Status)

	fetched, err := st.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartial, fetched.Status)
}

func TestProcessItemMissingItemFailsPermanently(t *testing.T) {
	ctx := context.Background()
	w, st := newTestWorker(t, &fakeRunner{height: 1080}, &fakeObjects{})

	err := w.processItem(ctx, model.ProcessingPayload{MediaItemID: 999999, SourceObjectKey: "media/raw/none.mp4"})
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry, "missing item must not be retried")

	jobs, err := st.ListRenditions(ctx, 999999)
	require.NoError(t, err)
	assert.Empty(t, jobs, "no rendition rows may be created for a missing item")
}

func TestProcessItemDeletedItemFailsPermanently(t *testing.T) {
	ctx := context.Background()
	w, st := newTestWorker(t, &fakeRunner{height: 1080}, &fakeObjects{})

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/49.mp4")
	require.NoError(t, err)
	require.NoError(t, st.SoftDelete(ctx, item.ID))

	err = w.processItem(ctx, payloadFor(item))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessItemSourceFetchFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	objects := mocks.NewObjectStore(t)
	objects.On("FetchFile", mock.Anything, "media/raw/50.mp4", mock.AnythingOfType("string")).
		Return(errors.New("connection refused")).Once()
	w, st := newTestWorker(t, &fakeRunner{height: 1080}, objects)

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/50.mp4")
	require.NoError(t, err)

	err = w.processItem(ctx, payloadFor(item))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "infrastructure failures stay retryable")

	jobs, err := st.ListRenditions(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, jobs, "renditions are not created until the source is readable")
}

func TestProcessItemReenqueueSupersedesPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{height: 1080, transcodeErr: map[string]error{"480p": errors.New("tool crash")}}
	w, st := newTestWorker(t, runner, &fakeObjects{})

	item, err := st.CreateMediaItem(ctx, 7, "media/raw/51.mp4")
	require.NoError(t, err)

	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	fetched, err := st.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartial, fetched.Status)

	runner.transcodeErr = nil
	require.NoError(t, w.processItem(ctx, payloadFor(item)))

	fetched, err = st.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, fetched.Status)
	assert.EqualValues(t, 2, fetched.Generation)

	jobs, err := st.ListRenditions(ctx, item.ID)
	require.NoError(t, err)
	for _, job := range jobs {
		assert.EqualValues(t, 2, job.Generation, "old generation rows are superseded")
		assert.Equal(t, model.RenditionDone, job.Status)
		assert.EqualValues(t, 1, job.Attempts, "fresh generation starts its attempt count over")
	}
}

func TestHandleProcessTaskInvalidPayload(t *testing.T) {
	w, _ := newTestWorker(t, &fakeRunner{}, &fakeObjects{})

	task := asynq.NewTask(model.TaskTypeProcessMedia, []byte(`{"media_item_id":`))
	err := w.HandleProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
