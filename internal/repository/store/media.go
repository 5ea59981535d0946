package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Boptone/boptone-ai-sub008/internal/model"
)

const mediaItemColumns = `id, owner_id, raw_object_key, thumbnail_key, status,
    generation, error_message, created_at, updated_at, completed_at, deleted_at`

// CreateMediaItem inserts a new item for a completed upload. The raw object
// key is recorded once and never changed afterwards.
func (s *Store) CreateMediaItem(ctx context.Context, ownerID int64, rawObjectKey string) (*model.MediaItem, error) {
	if ownerID <= 0 {
		return nil, errors.New("owner id is required")
	}
	if rawObjectKey == "" {
		return nil, errors.New("raw object key is required")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO media_items (owner_id, raw_object_key, status, generation, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?)`,
		ownerID,
		rawObjectKey,
		model.StatusQueued,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert media item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetMediaItem(ctx, id)
}

// GetMediaItem fetches a media item by identifier. Soft-deleted items are
// treated as not found; a nil item with a nil error means no row matched.
func (s *Store) GetMediaItem(ctx context.Context, id int64) (*model.MediaItem, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+mediaItemColumns+` FROM media_items WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	item, err := scanMediaItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media item: %w", err)
	}
	return item, nil
}

// MarkQueued moves the item back to the queued state for a fresh job
// generation. A re-enqueue during active processing is a deliberate restart.
func (s *Store) MarkQueued(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE media_items SET status = ?, error_message = NULL, completed_at = NULL, updated_at = ?
         WHERE id = ? AND deleted_at IS NULL`,
		model.StatusQueued,
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark queued: %w", err)
	}
	return nil
}

// BeginProcessing marks the item processing and bumps its generation. The
// returned generation stamps the fresh rendition rows so they supersede any
// previous attempt's rows.
func (s *Store) BeginProcessing(ctx context.Context, id int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE media_items
         SET status = ?, generation = generation + 1, error_message = NULL, completed_at = NULL, updated_at = ?
         WHERE id = ? AND deleted_at IS NULL`,
		model.StatusProcessing,
		timestamp,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("begin processing: %w", err)
	}

	var generation int64
	err = s.db.QueryRowContext(ctx, `SELECT generation FROM media_items WHERE id = ?`, id).Scan(&generation)
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return generation, nil
}

// FinishProcessing records the job's overall outcome and completion time.
func (s *Store) FinishProcessing(ctx context.Context, id int64, status model.ProcessingStatus, errorMessage string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE media_items SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
         WHERE id = ? AND deleted_at IS NULL`,
		status,
		nullableString(errorMessage),
		timestamp,
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish processing: %w", err)
	}
	return nil
}

// SetThumbnail records the uploaded thumbnail's object key.
func (s *Store) SetThumbnail(ctx context.Context, id int64, key string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE media_items SET thumbnail_key = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		key,
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("set thumbnail: %w", err)
	}
	return nil
}

// SoftDelete hides the item from enqueue and status reads. Raw and derived
// objects are left in place.
func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE media_items SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		timestamp,
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete media item: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaItem(row rowScanner) (*model.MediaItem, error) {
	var (
		item         model.MediaItem
		thumbnailKey sql.NullString
		status       string
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
		completedAt  sql.NullString
		deletedAt    sql.NullString
	)

	if err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.RawObjectKey,
		&thumbnailKey,
		&status,
		&item.Generation,
		&errorMessage,
		&createdAt,
		&updatedAt,
		&completedAt,
		&deletedAt,
	); err != nil {
		return nil, err
	}

	parsed, ok := model.ParseProcessingStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown processing status %q", status)
	}
	item.Status = parsed
	item.ThumbnailKey = thumbnailKey.String
	item.ErrorMessage = errorMessage.String

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	item.CreatedAt = created

	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	item.UpdatedAt = updated

	if item.CompletedAt, err = parseTimestamp(completedAt); err != nil {
		return nil, err
	}
	if item.DeletedAt, err = parseTimestamp(deletedAt); err != nil {
		return nil, err
	}

	return &item, nil
}
