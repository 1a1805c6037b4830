package override

import (
	"context"
	"fmt"
	"sync"

	"github.com/iwvelando/backlog-forecast/pkg/contour"
	"go.uber.org/zap"
)

// Manager is the in-memory working set of overrides. It is filled once from
// the store by Load and then updated on every edit. Edits are applied in
// memory first and then written to the store; a failed write is returned
// wrapped in ErrPersist and the in-memory value is kept.
type Manager struct {
	// writeMu orders edits so the store sees them in the same order as the
	// working set. Readers only take mu.
	writeMu sync.Mutex
	mu      sync.RWMutex
	entries map[string]Entry
	store   Store
	logger  *zap.Logger
	version uint64
}

// NewManager creates a Manager backed by store. A nil store keeps overrides
// in memory only.
func NewManager(store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		entries: make(map[string]Entry),
		store:   store,
		logger:  logger,
	}
}

// Load replaces the working set with the store contents.
func (m *Manager) Load(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	entries, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load overrides: %w", err)
	}
	if entries == nil {
		entries = make(map[string]Entry)
	}

	m.mu.Lock()
	m.entries = entries
	m.version++
	m.mu.Unlock()

	m.logger.Info("overrides loaded",
		zap.String("op", "override.Load"),
		zap.Int("entries", len(entries)),
	)
	return nil
}

// Get returns the working-set entry for contractID.
func (m *Manager) Get(contractID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[contractID]
	return entry.clone(), ok
}

// Snapshot returns a copy of the working set, safe to hand to a projection run.
func (m *Manager) Snapshot() map[string]Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Entry, len(m.entries))
	for id, entry := range m.entries {
		out[id] = entry.clone()
	}
	return out
}

// Version increases on every change to the working set.
func (m *Manager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Set merges update into the entry for contractID. Setting a contour moves
// the contract to manual contour mode.
func (m *Manager) Set(ctx context.Context, contractID string, update Entry) (Entry, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	merged := m.entries[contractID].Merge(update)
	m.entries[contractID] = merged
	m.version++
	m.mu.Unlock()

	if err := m.store.Set(ctx, contractID, merged); err != nil {
		m.logger.Warn("failed to persist override",
			zap.String("op", "override.Set"),
			zap.String("contract", contractID),
			zap.Error(err),
		)
		return merged.clone(), fmt.Errorf("%w: %v", ErrPersist, err)
	}

	m.logger.Debug("override saved",
		zap.String("op", "override.Set"),
		zap.String("contract", contractID),
	)
	return merged.clone(), nil
}

// SetEndMonths overrides the remaining period count for contractID.
func (m *Manager) SetEndMonths(ctx context.Context, contractID string, months int) (Entry, error) {
	return m.Set(ctx, contractID, Entry{EndMonths: IntPtr(months)})
}

// SetContour fixes the contour for contractID (manual mode).
func (m *Manager) SetContour(ctx context.Context, contractID string, t contour.Type) (Entry, error) {
	return m.Set(ctx, contractID, Entry{Contour: ContourPtr(t)})
}

// Clear removes every override for contractID, returning it to automatic
// contour selection and estimated duration.
func (m *Manager) Clear(ctx context.Context, contractID string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	delete(m.entries, contractID)
	m.version++
	m.mu.Unlock()

	if err := m.store.Delete(ctx, contractID); err != nil {
		m.logger.Warn("failed to persist override removal",
			zap.String("op", "override.Clear"),
			zap.String("contract", contractID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
