package port

import (
	"github.com/vertextoedge/resumefetch/internal/domain/repository"
)

// HistoryRepository is an alias to the domain repository interface
type HistoryRepository = repository.HistoryRepository

// Store is an alias to the domain repository interface
type Store = repository.Store
