package rates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "interpreting-pricing/internal/errors"
)

// Table is an immutable, version-tagged rate catalog.
// A new table is built for every administrative change; rows are never edited in place.
type Table struct {
	ID          uuid.UUID
	Version     int64
	ContentHash string
	CreatedAt   time.Time

	rows  []Row
	index map[Key]int
}

// NewTable validates the catalog invariants and indexes rows by key.
// Per service and qualifier there must be exactly one first block, and an
// additional block only where that first block exists.
func NewTable(rows []Row, version int64) (*Table, error) {
	rs := make([]Row, len(rows))
	copy(rs, rows)
	sortRows(rs)

	index := make(map[Key]int, len(rs))
	for i, r := range rs {
		if _, dup := index[r.Key]; dup {
			return nil, apperrors.Config("duplicate rate row %s", r.Key)
		}
		if r.BlockMinutes <= 0 {
			return nil, apperrors.Config("rate row %s has non-positive block duration %d", r.Key, r.BlockMinutes)
		}
		index[r.Key] = i
	}

	for _, r := range rs {
		if r.Sequence != AdditionalBlock {
			continue
		}
		if _, ok := index[KeyFor(r.Service, r.Qualifier, FirstBlock)]; !ok {
			return nil, apperrors.Config("additional block %s has no first block", r.Key)
		}
	}

	return &Table{
		ID:          uuid.New(),
		Version:     version,
		ContentHash: contentHash(rs),
		CreatedAt:   time.Now().UTC(),
		rows:        rs,
		index:       index,
	}, nil
}

// Lookup returns the row for a key
func (t *Table) Lookup(k Key) (Row, bool) {
	i, ok := t.index[k]
	if !ok {
		return Row{}, false
	}
	return t.rows[i], true
}

// Rate returns the row for a key or a NOT_FOUND error
func (t *Table) Rate(ctx context.Context, k Key) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	row, ok := t.Lookup(k)
	if !ok {
		return Row{}, apperrors.NotFound("rate", k.String())
	}
	return row, nil
}

// Find returns rows matching the filter in canonical order
func (t *Table) Find(f Filter) []Row {
	var out []Row
	for _, r := range t.rows {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Rows returns a copy of all rows
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Key.String() < rows[j].Key.String()
	})
}

// contentHash hashes the canonical JSON of the sorted rows
func contentHash(rows []Row) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, r := range rows {
		_ = enc.Encode(r)
	}
	return hex.EncodeToString(h.Sum(nil))
}
