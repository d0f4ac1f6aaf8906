// Package directory keeps the user's caller identities. Records are
// materialized in memory so lookups never wait on disk, and every write goes
// through the persistence Backend before it becomes visible.
package directory

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
)

// Backend is the persistence contract the directory writes through.
type Backend interface {
	Load(ctx context.Context) ([]Record, error)
	Upsert(ctx context.Context, r Record) error
	Delete(ctx context.Context, key Key) error
	DeleteAll(ctx context.Context) error
}

// Directory is safe for concurrent use. Construct it once at startup and share it.
type Directory struct {
	backend Backend

	// wmu orders writers and reloads against each other, so a reload never
	// installs a snapshot older than an acknowledged write.
	wmu sync.Mutex

	mu      sync.RWMutex
	order   []Key
	records map[Key]Record
}

// Open loads every record from backend. A nil backend gives a directory that
// lives only in memory.
func Open(ctx context.Context, backend Backend) (*Directory, error) {
	d := &Directory{
		backend: backend,
		records: make(map[Key]Record),
	}
	if err := d.Reload(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload replaces the in-memory view with the backend's current content.
func (d *Directory) Reload(ctx context.Context) error {
	if d.backend == nil {
		return nil
	}
	d.wmu.Lock()
	defer d.wmu.Unlock()

	loaded, err := d.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load directory: %w", err)
	}

	order := make([]Key, 0, len(loaded))
	records := make(map[Key]Record, len(loaded))
	for _, r := range loaded {
		k := r.Key()
		if _, ok := records[k]; !ok {
			order = append(order, k)
		}
		records[k] = r
	}

	d.mu.Lock()
	d.order = order
	d.records = records
	d.mu.Unlock()
	return nil
}

// Upsert inserts r or replaces the record with the same key. A replaced
// record keeps its position.
func (d *Directory) Upsert(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	d.wmu.Lock()
	defer d.wmu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.backend != nil {
		if err := d.backend.Upsert(ctx, r); err != nil {
			return fmt.Errorf("upsert %s: %w", r.Key(), err)
		}
	}
	k := r.Key()
	if _, ok := d.records[k]; !ok {
		d.order = append(d.order, k)
	}
	d.records[k] = r
	return nil
}

// Delete removes the record for key. Deleting a missing key is not an error.
func (d *Directory) Delete(ctx context.Context, key Key) error {
	d.wmu.Lock()
	defer d.wmu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.backend != nil {
		if err := d.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	if _, ok := d.records[key]; !ok {
		return nil
	}
	delete(d.records, key)
	if i := slices.Index(d.order, key); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
	return nil
}

// DeleteAll empties the directory.
func (d *Directory) DeleteAll(ctx context.Context) error {
	d.wmu.Lock()
	defer d.wmu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.backend != nil {
		if err := d.backend.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete all: %w", err)
		}
	}
	d.order = nil
	d.records = make(map[Key]Record)
	return nil
}

// Get returns the record stored under key.
func (d *Directory) Get(key Key) (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.records[key]
	return r, ok
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// List returns a snapshot of every record in directory order.
func (d *Directory) List() []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Record, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.records[k])
	}
	return out
}

// All yields every record. Each iteration works on a snapshot taken when it
// starts, so the sequence can be ranged over again and never sees a partial write.
func (d *Directory) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range d.List() {
			if !yield(r) {
				return
			}
		}
	}
}

// Scan is the full-table pass used for phone matching. Phone equivalence is
// not string equality, so there is no index to consult.
func (d *Directory) Scan() iter.Seq[Record] {
	return d.All()
}
