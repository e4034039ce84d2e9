package rates

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	apperrors "interpreting-pricing/internal/errors"
	"interpreting-pricing/internal/logging"
)

// Registry serves the current table to readers without locking and swaps in
// a whole new table on administrative updates.
type Registry struct {
	current atomic.Pointer[Table]

	// writeMu serializes writers; readers never take it
	writeMu sync.Mutex

	onSwap func(*Table)
}

// NewRegistry creates a registry holding an empty table
func NewRegistry() *Registry {
	r := &Registry{}
	empty, _ := NewTable(nil, 0)
	r.current.Store(empty)
	return r
}

// OnSwap registers a hook called after every successful swap
func (r *Registry) OnSwap(fn func(*Table)) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.onSwap = fn
}

// Current returns the active table
func (r *Registry) Current() *Table {
	return r.current.Load()
}

// Rate looks the key up in the active table
func (r *Registry) Rate(ctx context.Context, k Key) (Row, error) {
	return r.Current().Rate(ctx, k)
}

// Find lists rows of the active table matching the filter
func (r *Registry) Find(f Filter) []Row {
	return r.Current().Find(f)
}

// Replace installs rows as the complete catalog
func (r *Registry) Replace(rows []Row) (*Table, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.swap(rows, nil)
}

// ReplaceCategory swaps the rows of one category and keeps every other category
func (r *Registry) ReplaceCategory(category Category, rows []Row) (*Table, error) {
	return r.ReplaceCategoryWith(category, rows, nil)
}

// ReplaceCategoryWith is ReplaceCategory with a commit hook. The hook runs
// under the writer lock once the new table is built and before it becomes
// current; a hook error leaves the current table in place.
func (r *Registry) ReplaceCategoryWith(category Category, rows []Row, commit func(*Table) error) (*Table, error) {
	for _, row := range rows {
		if row.Category != category {
			return nil, apperrors.Input("row %s does not belong to category %s", row.Key, category)
		}
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	merged := make([]Row, 0, r.Current().Len()+len(rows))
	for _, row := range r.Current().rows {
		if row.Category != category {
			merged = append(merged, row)
		}
	}
	merged = append(merged, rows...)
	return r.swap(merged, commit)
}

func (r *Registry) swap(rows []Row, commit func(*Table) error) (*Table, error) {
	next, err := NewTable(rows, r.Current().Version+1)
	if err != nil {
		return nil, err
	}
	if commit != nil {
		if err := commit(next); err != nil {
			return nil, err
		}
	}
	r.current.Store(next)

	logging.Component("registry").Info("rate table swapped",
		zap.Int64("version", next.Version),
		zap.String("id", next.ID.String()),
		zap.Int("rows", next.Len()),
		zap.String("hash", next.ContentHash[:12]),
	)
	if r.onSwap != nil {
		r.onSwap(next)
	}
	return next, nil
}
