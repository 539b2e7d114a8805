package repository

// Store combines all repository interfaces
type Store interface {
	HistoryRepository

	// Close closes the underlying storage
	Close() error

	// Ping checks storage connectivity
	Ping() error
}
