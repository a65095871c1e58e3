// ABOUTME: Generic indexed record collection backed by a key-value store
// ABOUTME: Arena slice plus id index, keyed upserts and deletes of single records
package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/advisor-crm/models"
)

// Collection holds every record of one entity type in memory and writes each
// change through to the backend under {name}/{id}.
type Collection[T any, P interface {
	*T
	models.Record
}] struct {
	name    string
	backend Backend
	now     func() time.Time
	randN   func(n int64) int64
	fix     func(v *T)

	mu    sync.RWMutex
	items []T
	index map[int64]int
}

func newCollection[T any, P interface {
	*T
	models.Record
}](name string, backend Backend, now func() time.Time, randN func(int64) int64) *Collection[T, P] {
	return &Collection[T, P]{
		name:    name,
		backend: backend,
		now:     now,
		randN:   randN,
		index:   make(map[int64]int),
	}
}

// normalize makes fix run on every record read from the backend or replaced
// from outside before it is stored.
func (c *Collection[T, P]) normalize(fix func(v *T)) {
	c.fix = fix
}

// Name returns the collection name.
func (c *Collection[T, P]) Name() string {
	return c.name
}

func (c *Collection[T, P]) load() error {
	keys, err := c.backend.KeysWithPrefix(c.name + "/")
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = c.items[:0]
	c.index = make(map[int64]int, len(keys))
	for _, key := range keys {
		if _, err := parseRecordKey(c.name, key); err != nil {
			continue
		}
		data, ok, err := c.backend.Get(key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("failed to decode %s: %w", key, err)
		}
		if c.fix != nil {
			c.fix(&v)
		}
		c.index[P(&v).RecordID()] = len(c.items)
		c.items = append(c.items, v)
	}
	return nil
}

func (c *Collection[T, P]) persist(v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", c.name, err)
	}
	if err := c.backend.Set(recordKey(c.name, P(v).RecordID()), data); err != nil {
		return fmt.Errorf("failed to save %s record: %w", c.name, err)
	}
	return nil
}

// put stores v in memory. Caller holds the write lock.
func (c *Collection[T, P]) put(v T) {
	id := P(&v).RecordID()
	if slot, ok := c.index[id]; ok {
		c.items[slot] = v
		return
	}
	c.index[id] = len(c.items)
	c.items = append(c.items, v)
}

// remove swaps the last record into the freed slot. Caller holds the write lock.
func (c *Collection[T, P]) remove(id int64) bool {
	slot, ok := c.index[id]
	if !ok {
		return false
	}
	last := len(c.items) - 1
	if slot != last {
		c.items[slot] = c.items[last]
		c.index[P(&c.items[slot]).RecordID()] = slot
	}
	var zero T
	c.items[last] = zero
	c.items = c.items[:last]
	delete(c.index, id)
	return true
}

// newID draws unixMillis + [0,1000) until it is unused. Caller holds the lock.
func (c *Collection[T, P]) newID(now time.Time) int64 {
	for {
		id := now.UnixMilli() + c.randN(1000)
		if _, taken := c.index[id]; !taken {
			return id
		}
	}
}

// All returns a copy of every record in insertion order, modulo deletions.
func (c *Collection[T, P]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Filter returns the records matching keep.
func (c *Collection[T, P]) Filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for _, v := range c.items {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Find returns the first record matching match.
func (c *Collection[T, P]) Find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.items {
		if match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Get returns the record with id.
func (c *Collection[T, P]) Get(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slot, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[slot], true
}

// Len returns the number of records.
func (c *Collection[T, P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Insert assigns a fresh id and both timestamps, then persists v.
func (c *Collection[T, P]) Insert(v T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	P(&v).SetRecordID(c.newID(now))
	P(&v).Stamp(now, true)
	if err := c.persist(&v); err != nil {
		var zero T
		return zero, err
	}
	c.put(v)
	return v, nil
}

// FindOrInsert returns the first record matching match, or inserts v as
// Insert does when none matches. The lookup and the insert share one lock.
// The returned bool reports whether v was inserted.
func (c *Collection[T, P]) FindOrInsert(match func(T) bool, v T) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cur := range c.items {
		if match(cur) {
			return cur, false, nil
		}
	}
	now := c.now()
	P(&v).SetRecordID(c.newID(now))
	P(&v).Stamp(now, true)
	if err := c.persist(&v); err != nil {
		var zero T
		return zero, false, err
	}
	c.put(v)
	return v, true, nil
}

// Put upserts v as is, keeping its id and timestamps. Used for seeding and
// for records pulled from the remote mirror.
func (c *Collection[T, P]) Put(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.persist(&v); err != nil {
		return err
	}
	c.put(v)
	return nil
}

// Update runs mutate on a copy of the record. When mutate reports a change
// the copy gets a fresh UpdatedAt and replaces the stored record; otherwise
// nothing is written. The returned bool reports whether a change was stored.
func (c *Collection[T, P]) Update(id int64, mutate func(v *T, now time.Time) bool) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	slot, ok := c.index[id]
	if !ok {
		return zero, false, fmt.Errorf("%s %d: %w", c.name, id, ErrNotFound)
	}

	v := c.items[slot]
	now := c.now()
	if !mutate(&v, now) {
		return v, false, nil
	}
	P(&v).SetRecordID(id)
	P(&v).Stamp(now, false)
	if err := c.persist(&v); err != nil {
		return zero, false, err
	}
	c.items[slot] = v
	return v, true, nil
}

// Delete removes the record and reports whether it existed.
func (c *Collection[T, P]) Delete(id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[id]; !ok {
		return false, nil
	}
	if err := c.backend.Delete(recordKey(c.name, id)); err != nil {
		return false, fmt.Errorf("failed to delete %s %d: %w", c.name, id, err)
	}
	c.remove(id)
	return true, nil
}

// ReplaceAll makes records the full content of the collection: records are
// upserted one by one and local records missing from it are deleted.
func (c *Collection[T, P]) ReplaceAll(records []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keep := make(map[int64]bool, len(records))
	for i := range records {
		if c.fix != nil {
			c.fix(&records[i])
		}
		if err := c.persist(&records[i]); err != nil {
			return err
		}
		c.put(records[i])
		keep[P(&records[i]).RecordID()] = true
	}

	var stale []int64
	for id := range c.index {
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		if err := c.backend.Delete(recordKey(c.name, id)); err != nil {
			return fmt.Errorf("failed to delete %s %d: %w", c.name, id, err)
		}
		c.remove(id)
	}
	return nil
}
