package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeStore struct {
	mu        sync.Mutex
	persisted []Row
	recorded  []*Table
	err       error
}

func (f *fakeStore) Persist(_ context.Context, rows []Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.persisted = append(f.persisted, rows...)
	return nil
}

func (f *fakeStore) RecordTable(_ context.Context, t *Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, t)
	return nil
}

func TestRegenerate(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{}

	table, err := reg.Regenerate(context.Background(), store, CategoryParaprofessional, dec("24"))
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if table.Len() != 32 || len(store.persisted) != 32 {
		t.Errorf("table rows = %d, persisted = %d, want 32", table.Len(), len(store.persisted))
	}
	if len(store.recorded) != 1 || store.recorded[0] != table {
		t.Error("activated table not recorded")
	}

	// without a store the swap still happens
	if _, err := reg.Regenerate(context.Background(), nil, CategoryRecognised, dec("20")); err != nil {
		t.Fatalf("regenerate without store: %v", err)
	}
	if reg.Current().Len() != 64 {
		t.Errorf("rows = %d, want 64", reg.Current().Len())
	}
}

func TestRegenerateKeepsTableWhenPersistFails(t *testing.T) {
	reg := NewRegistry()
	before := reg.Current()

	_, err := reg.Regenerate(context.Background(), &fakeStore{err: errors.New("connection refused")}, CategoryProfessional, dec("28"))
	if err == nil {
		t.Fatal("expected persist error")
	}
	if reg.Current() != before {
		t.Error("table swapped despite persist failure")
	}
}

func TestConcurrentRegenerateKeepsStoreAndTableInStep(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed string) {
			defer wg.Done()
			if _, err := reg.Regenerate(context.Background(), store, CategoryParaprofessional, dec(seed)); err != nil {
				t.Errorf("regenerate %s: %v", seed, err)
			}
		}(fmt.Sprintf("%d.00", 20+i))
	}
	wg.Wait()

	k := KeyFor(Service{Category: CategoryParaprofessional, Scheduling: OnDemand, Channel: Audio, Mode: Consecutive}, StandardHours, FirstBlock)
	active, ok := reg.Current().Lookup(k)
	if !ok {
		t.Fatalf("no row for %s", k)
	}

	var lastPersisted Row
	for _, r := range store.persisted {
		if r.Key == k {
			lastPersisted = r
		}
	}
	if !lastPersisted.General.ClientWithTax.Equal(active.General.ClientWithTax) {
		t.Errorf("last persisted price %s, active price %s", lastPersisted.General.ClientWithTax, active.General.ClientWithTax)
	}
	if reg.Current().Version != 8 {
		t.Errorf("version = %d, want 8", reg.Current().Version)
	}
}
