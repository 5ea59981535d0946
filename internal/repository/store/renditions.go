package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Boptone/boptone-ai-sub008/internal/model"
)

const renditionColumns = `id, media_item_id, generation, format, status,
    output_key, output_url, output_bytes, attempts, error_message, started_at, completed_at`

// ResetRenditions replaces the item's rendition rows with a fresh queued set
// for the given generation. Old rows are superseded, not merged.
func (s *Store) ResetRenditions(ctx context.Context, mediaItemID, generation int64, formats []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin renditions tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rendition_jobs WHERE media_item_id = ?`, mediaItemID); err != nil {
		return fmt.Errorf("clear rendition jobs: %w", err)
	}

	for _, format := range formats {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO rendition_jobs (media_item_id, generation, format, status) VALUES (?, ?, ?, ?)`,
			mediaItemID,
			generation,
			format,
			model.RenditionQueued,
		); err != nil {
			return fmt.Errorf("insert rendition job %q: %w", format, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit renditions: %w", err)
	}
	return nil
}

// ListRenditions returns the item's rendition jobs in catalog insertion order.
func (s *Store) ListRenditions(ctx context.Context, mediaItemID int64) ([]model.RenditionJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+renditionColumns+` FROM rendition_jobs WHERE media_item_id = ? ORDER BY id`,
		mediaItemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rendition jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.RenditionJob
	for rows.Next() {
		job, err := scanRenditionJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rendition jobs: %w", err)
	}
	return jobs, nil
}

// MarkRenditionProcessing stamps the start time and increments the attempt
// count for one format.
func (s *Store) MarkRenditionProcessing(ctx context.Context, mediaItemID int64, format string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE rendition_jobs
         SET status = ?, attempts = attempts + 1, started_at = ?, error_message = NULL
         WHERE media_item_id = ? AND format = ?`,
		model.RenditionProcessing,
		timestamp,
		mediaItemID,
		format,
	)
	if err != nil {
		return fmt.Errorf("mark rendition processing: %w", err)
	}
	return nil
}

// MarkRenditionDone records the uploaded output's location and size.
func (s *Store) MarkRenditionDone(ctx context.Context, mediaItemID int64, format, outputKey, outputURL string, outputBytes int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE rendition_jobs
         SET status = ?, output_key = ?, output_url = ?, output_bytes = ?, error_message = NULL, completed_at = ?
         WHERE media_item_id = ? AND format = ?`,
		model.RenditionDone,
		outputKey,
		outputURL,
		outputBytes,
		timestamp,
		mediaItemID,
		format,
	)
	if err != nil {
		return fmt.Errorf("mark rendition done: %w", err)
	}
	return nil
}

// MarkRenditionError preserves the failure message for one format. Sibling
// formats are unaffected.
func (s *Store) MarkRenditionError(ctx context.Context, mediaItemID int64, format, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE rendition_jobs
         SET status = ?, error_message = ?, output_key = NULL, output_url = NULL, output_bytes = NULL, completed_at = ?
         WHERE media_item_id = ? AND format = ?`,
		model.RenditionError,
		message,
		timestamp,
		mediaItemID,
		format,
	)
	if err != nil {
		return fmt.Errorf("mark rendition error: %w", err)
	}
	return nil
}

// MarkRenditionSkipped marks a format intentionally not attempted for this
// item.
func (s *Store) MarkRenditionSkipped(ctx context.Context, mediaItemID int64, format string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE rendition_jobs SET status = ?, completed_at = ? WHERE media_item_id = ? AND format = ?`,
		model.RenditionSkipped,
		timestamp,
		mediaItemID,
		format,
	)
	if err != nil {
		return fmt.Errorf("mark rendition skipped: %w", err)
	}
	return nil
}

func scanRenditionJob(row rowScanner) (*model.RenditionJob, error) {
	var (
		job          model.RenditionJob
		status       string
		outputKey    sql.NullString
		outputURL    sql.NullString
		outputBytes  sql.NullInt64
		errorMessage sql.NullString
		startedAt    sql.NullString
		completedAt  sql.NullString
	)

	if err := row.Scan(
		&job.ID,
		&job.MediaItemID,
		&job.Generation,
		&job.Format,
		&status,
		&outputKey,
		&outputURL,
		&outputBytes,
		&job.Attempts,
		&errorMessage,
		&startedAt,
		&completedAt,
	); err != nil {
		return nil, fmt.Errorf("scan rendition job: %w", err)
	}

	job.Status = model.RenditionStatus(status)
	job.OutputKey = outputKey.String
	job.OutputURL = outputURL.String
	job.OutputBytes = outputBytes.Int64
	job.ErrorMessage = errorMessage.String

	var err error
	if job.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return nil, err
	}
	if job.CompletedAt, err = parseTimestamp(completedAt); err != nil {
		return nil, err
	}

	return &job, nil
}
