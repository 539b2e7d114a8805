package repository

import (
	"github.com/vertextoedge/resumefetch/internal/domain"
)

// HistoryRepository defines the interface for the download history log
type HistoryRepository interface {
	// CreateRecord inserts a new in-progress record
	CreateRecord(rec *domain.DownloadRecord) error

	// FinishRecord stores the terminal state of a record
	// Returns domain.ErrRecordMissing if the record does not exist
	FinishRecord(rec *domain.DownloadRecord) error

	// GetRecord retrieves a record by ID
	// Returns domain.ErrRecordMissing if the record does not exist
	GetRecord(id string) (*domain.DownloadRecord, error)

	// ListRecent returns the newest records first
	ListRecent(limit int) ([]*domain.DownloadRecord, error)

	// GetStats returns counts by status and total bytes written
	GetStats() (*domain.HistoryStats, error)
}
