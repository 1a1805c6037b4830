// Package override holds per-contract user overrides for projection end
// months and contour, and persists them through a Store.
package override

import (
	"context"
	"errors"

	"github.com/iwvelando/backlog-forecast/pkg/contour"
)

// ErrPersist marks a failed store write. The in-memory value has already been
// applied when it is returned.
var ErrPersist = errors.New("override not persisted")

// Entry is the override state of one contract. Nil fields are not overridden.
type Entry struct {
	EndMonths *int          `json:"endMonths,omitempty" yaml:"endMonths,omitempty"`
	Contour   *contour.Type `json:"contour,omitempty" yaml:"contour,omitempty"`
}

// Empty reports whether the entry overrides nothing.
func (e Entry) Empty() bool {
	return e.EndMonths == nil && e.Contour == nil
}

// Merge returns e with every non-nil field of update applied.
func (e Entry) Merge(update Entry) Entry {
	merged := e.clone()
	if update.EndMonths != nil {
		v := *update.EndMonths
		merged.EndMonths = &v
	}
	if update.Contour != nil {
		v := *update.Contour
		merged.Contour = &v
	}
	return merged
}

func (e Entry) clone() Entry {
	var out Entry
	if e.EndMonths != nil {
		v := *e.EndMonths
		out.EndMonths = &v
	}
	if e.Contour != nil {
		v := *e.Contour
		out.Contour = &v
	}
	return out
}

// Store is durable key/value storage of override entries keyed by contract id.
type Store interface {
	Get(ctx context.Context, contractID string) (Entry, bool, error)
	List(ctx context.Context) (map[string]Entry, error)
	Set(ctx context.Context, contractID string, entry Entry) error
	Delete(ctx context.Context, contractID string) error
	Close() error
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// ContourPtr returns a pointer to t.
func ContourPtr(t contour.Type) *contour.Type {
	return &t
}
