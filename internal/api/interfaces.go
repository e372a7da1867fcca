// interfaces.go - Handler dependency interfaces for clean separation of concerns
package api

import (
	"github.com/debt-dashboard/backend/internal/dataset"
)

// DatasetProvider supplies the active dataset snapshot.
// This allows mocking in tests.
type DatasetProvider interface {
	Current() (*dataset.Snapshot, bool)
	Reload() error
}
