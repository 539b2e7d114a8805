package sqlite

import (
	"database/sql"
	"strings"

	"github.com/vertextoedge/resumefetch/internal/domain"
)

const recordColumns = `id, url, path, status, resumed_from, bytes_written,
	total_length, http_status, error, started_at, finished_at`

// CreateRecord inserts a new in-progress record
func (s *Store) CreateRecord(rec *domain.DownloadRecord) error {
	if rec.Status == "" {
		rec.Status = domain.StatusInProgress
	}

	query := `
		INSERT INTO downloads (
			id, url, path, status, resumed_from, bytes_written,
			total_length, http_status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		rec.ID, rec.URL, rec.Path, rec.Status, rec.ResumedFrom, rec.BytesWritten,
		rec.TotalLength, rec.HTTPStatus, rec.StartedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FinishRecord stores the terminal state of a record
func (s *Store) FinishRecord(rec *domain.DownloadRecord) error {
	query := `
		UPDATE downloads
		SET status = ?,
			resumed_from = ?,
			bytes_written = ?,
			total_length = ?,
			http_status = ?,
			error = ?,
			finished_at = ?
		WHERE id = ?
	`

	var errMsg sql.NullString
	if rec.Error != "" {
		errMsg = sql.NullString{String: rec.Error, Valid: true}
	}
	var finishedAt sql.NullTime
	if rec.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *rec.FinishedAt, Valid: true}
	}

	result, err := s.db.Exec(query,
		rec.Status, rec.ResumedFrom, rec.BytesWritten, rec.TotalLength,
		rec.HTTPStatus, errMsg, finishedAt, rec.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrRecordMissing
	}
	return nil
}

// GetRecord retrieves a record by ID
func (s *Store) GetRecord(id string) (*domain.DownloadRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM downloads WHERE id = ?`

	rec, err := scanRecord(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrRecordMissing
	}
	return rec, err
}

// ListRecent returns the newest records first
func (s *Store) ListRecent(limit int) ([]*domain.DownloadRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + recordColumns + ` FROM downloads ORDER BY seq DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.DownloadRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetStats returns counts by status and total bytes written
func (s *Store) GetStats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM downloads GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case domain.StatusCompleted, domain.StatusAlreadyComplete:
			stats.Completed += count
		case domain.StatusFailed:
			stats.Failed += count
		case domain.StatusCancelled:
			stats.Cancelled += count
		case domain.StatusInProgress:
			stats.InProgress += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var written sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(bytes_written) FROM downloads`).Scan(&written); err != nil {
		return nil, err
	}
	stats.BytesWritten = written.Int64

	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a single downloads row
func scanRecord(row scanner) (*domain.DownloadRecord, error) {
	rec := &domain.DownloadRecord{}
	var errMsg sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.URL, &rec.Path, &rec.Status, &rec.ResumedFrom,
		&rec.BytesWritten, &rec.TotalLength, &rec.HTTPStatus, &errMsg,
		&rec.StartedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if errMsg.Valid {
		rec.Error = errMsg.String
	}
	if finishedAt.Valid {
		rec.FinishedAt = &finishedAt.Time
	}
	return rec, nil
}

// isUniqueConstraintError checks if the error is a unique constraint violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed: UNIQUE")
}
