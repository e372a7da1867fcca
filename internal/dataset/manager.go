package dataset

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/debt-dashboard/backend/internal/models"
	"github.com/debt-dashboard/backend/internal/store"
)

// Snapshot is one immutable loaded-and-prepared dataset. It lives until
// the next reload replaces it; queries against it are pure functions.
type Snapshot struct {
	ID            string
	Client        models.ClientInfo
	LoadedAt      time.Time
	RecordCount   int
	SkippedCount  int
	PrepareErrors []models.PrepareError
	Store         store.Store
}

// Manager owns the current snapshot and replaces it atomically on
// reload. Readers hold the snapshot they grabbed; the old backing store
// is closed only after the swap.
type Manager struct {
	mu      sync.RWMutex
	snap    *Snapshot
	path    string
	backend string
	tempDir string
	log     *zap.Logger
}

// NewManager creates a manager for the dataset at path. backend selects
// the store implementation (store.BackendMemory or store.BackendDuckDB);
// tempDir is where the DuckDB backend keeps its files.
func NewManager(path, backend, tempDir string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if backend == "" {
		backend = store.BackendMemory
	}
	return &Manager{
		path:    path,
		backend: backend,
		tempDir: tempDir,
		log:     log,
	}
}

// Load reads, prepares, and installs a fresh snapshot. On any LoadError
// the current snapshot (if one exists) stays in place.
func (m *Manager) Load() error {
	start := time.Now()

	raw, err := Load(m.path)
	if err != nil {
		return err
	}

	contracts, prepErrs := Prepare(raw)
	skipped := len(raw.Contracts) - len(contracts)

	snapshotID := uuid.New().String()

	var st store.Store
	switch m.backend {
	case store.BackendMemory:
		st = store.NewMemStore(contracts)
	case store.BackendDuckDB:
		st, err = store.NewDuckStore(m.tempDir, snapshotID, contracts, m.log)
		if err != nil {
			return fmt.Errorf("duckdb backend: %w", err)
		}
	default:
		return fmt.Errorf("unknown dataset backend: %s", m.backend)
	}

	snap := &Snapshot{
		ID:            snapshotID,
		Client:        models.ClientInfo{CompanyName: raw.Client.CompanyName, Document: raw.Client.Document},
		LoadedAt:      time.Now().UTC(),
		RecordCount:   len(contracts),
		SkippedCount:  skipped,
		PrepareErrors: prepErrs,
		Store:         st,
	}

	m.mu.Lock()
	old := m.snap
	m.snap = snap
	m.mu.Unlock()

	if old != nil {
		if err := old.Store.Close(); err != nil {
			m.log.Warn("failed to close replaced store", zap.Error(err))
		}
	}

	m.log.Info("dataset loaded",
		zap.String("snapshot", snapshotID),
		zap.String("path", m.path),
		zap.String("backend", m.backend),
		zap.Int("records", len(contracts)),
		zap.Int("skipped", skipped),
		zap.Int("prepareErrors", len(prepErrs)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Current returns the active snapshot, or false when nothing has been
// loaded yet.
func (m *Manager) Current() (*Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return nil, false
	}
	return m.snap, true
}

// Reload re-reads the configured dataset file.
func (m *Manager) Reload() error {
	return m.Load()
}

// Close releases the active snapshot's store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil
	}
	err := m.snap.Store.Close()
	m.snap = nil
	return err
}
