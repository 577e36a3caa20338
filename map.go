// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ordmap is an open-addressing hash map that remembers the order in
// which its entries were inserted.
//
// # Layout
//
// A Map is backed by a flat table of N slots. Each slot holds a key, a value
// and a state: empty, occupied or tombstone. Collisions are resolved with
// linear probing starting at hash(key)%N and wrapping around at N. A probe
// for a key terminates at the first empty slot. Deleted entries leave a
// tombstone behind so that probe chains for other keys passing through the
// slot remain intact. Tombstones are never reused in place; they are dropped
// only when the table is rebuilt.
//
// Alongside the slots the table keeps two index arrays, forward and
// backward, of length N+1. They thread the occupied slots into a circular
// doubly-linked list in insertion order. Index N is a sentinel that is never
// a valid slot: forward[N] is the first entry, backward[N] is the last entry,
// and N itself is the End() position of iteration. Because the links are
// slot indexes rather than pointers, the list costs two words per slot and
// never needs its own allocation.
//
//	 slots      0     1     2     3     4     5     6     7   | 8 (sentinel)
//	          +-----+-----+-----+-----+-----+-----+-----+-----+
//	 state    |  .  | k=3 |  x  | k=1 |  .  |  .  | k=2 |  .  |
//	          +-----+-----+-----+-----+-----+-----+-----+-----+
//	 forward     -     8     -     6     -     -     1     -      3
//	 backward    -     6     -     8     -     -     3     -      1
//
// The diagram shows keys 1, 2, 3 inserted in that order into an 8 slot
// table, with slot 2 a tombstone. Iteration starts at forward[8]=3 and
// follows forward until it returns to the sentinel.
//
// # Rehashing
//
// Before every Insert and Erase the map checks its occupancy against
// capacity = N*6/8:
//
//   - Insert: if occupied+tombstones > capacity the table doubles. Otherwise,
//     if tombstones outnumber occupied slots and occupied+tombstones exceeds
//     half of capacity, the table is rebuilt at the same size to drop the
//     tombstones.
//   - Erase: if 4*occupied < capacity the table halves, but never below
//     minTableSize slots.
//
// A rebuild allocates a fresh table, swaps it in, and replays the entries of
// the old table in insertion order through the regular insert path. The new
// table therefore has the same iteration order, and a fresh linked list.
// These thresholds guarantee that at least one empty slot exists whenever a
// probe runs, so probing always terminates.
//
// # Iterators
//
// Iterator is a small comparable value. Any Insert, Erase, Clear or Index
// that changes the map, including through an implicit rehash, invalidates
// every outstanding Iterator and every pointer returned by Index or
// Iterator.ValuePtr. Using an invalidated iterator, or dereferencing End(),
// is a programming error and is not detected.
package ordmap

import (
	"fmt"
	"iter"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	debug = false

	// minTableSize is the smallest number of slots a table is ever built
	// with, including when shrinking.
	minTableSize = 8

	// capacity = tableSize*loadNumerator/loadDenominator.
	loadNumerator   = 6
	loadDenominator = 8
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotTombstone
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotOccupied:
		return "occupied"
	case slotTombstone:
		return "tombstone"
	default:
		return fmt.Sprintf("slotState(%d)", s)
	}
}

// slot holds a key and value. The key and value are only meaningful when
// state is slotOccupied.
type slot[K comparable, V any] struct {
	key   K
	value V
	state slotState
}

// Entry is a key/value pair, used to construct a Map from a literal list.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// table is the storage of a Map: the slots plus the insertion order links
// over them. A Map swaps whole tables when it rebuilds, so a *table is also
// the identity an Iterator is bound to.
type table[K comparable, V any] struct {
	slots []slot[K, V]
	bonds bonds
	// The number of slots. It is also the index of the sentinel in bonds.
	size uintptr
	// The number of occupied+tombstone slots past which Insert grows the
	// table.
	capacity uintptr
	// The number of occupied slots (i.e. the number of elements in the map).
	used int
	// The number of tombstone slots.
	deleted int
}

func newTable[K comparable, V any](size uintptr) *table[K, V] {
	if size < minTableSize {
		size = minTableSize
	}
	t := &table[K, V]{
		slots:    make([]slot[K, V], size),
		size:     size,
		capacity: size * loadNumerator / loadDenominator,
	}
	t.bonds.init(size)
	return t
}

// inc advances probe position i by one, wrapping around at the table size.
func (t *table[K, V]) inc(i uintptr) uintptr {
	i++
	if i == t.size {
		i = 0
	}
	return i
}

// Map is a hash map from keys to values which iterates in insertion order.
// By default, a Map[K,V] uses the same hash function as Go's builtin
// map[K]V, though a different hash function can be specified using the
// WithHash option.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	hash hashFn[K]
	seed uintptr
	t    *table[K, V]
}

// New constructs a new Map with the specified initial number of slots. An
// initialSize below minTableSize, including 0, yields the default size.
func New[K comparable, V any](initialSize int, options ...option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		hash: defaultHasher[K](),
		seed: randomSeed(),
	}
	for _, op := range options {
		op.apply(m)
	}

	size := uintptr(minTableSize)
	if initialSize > minTableSize {
		size = uintptr(initialSize)
	}
	m.t = newTable[K, V](size)
	m.checkInvariants()
	return m
}

// FromSeq constructs a Map holding the pairs yielded by seq. Pairs whose key
// was already yielded are ignored.
func FromSeq[K comparable, V any](seq iter.Seq2[K, V], options ...option[K, V]) *Map[K, V] {
	m := New[K, V](0, options...)
	for k, v := range seq {
		m.Insert(k, v)
	}
	return m
}

// FromRange constructs a Map holding the entries in [first, last), which are
// typically obtained from another Map. last must be reachable from first.
func FromRange[K comparable, V any](first, last Iterator[K, V], options ...option[K, V]) *Map[K, V] {
	m := New[K, V](0, options...)
	for it := first; it != last; it = it.Next() {
		m.Insert(it.Key(), it.Value())
	}
	return m
}

// FromEntries constructs a Map holding the specified entries in order.
// Entries whose key appears earlier in the list are ignored.
func FromEntries[K comparable, V any](entries []Entry[K, V], options ...option[K, V]) *Map[K, V] {
	m := New[K, V](0, options...)
	for _, e := range entries {
		m.InsertEntry(e)
	}
	return m
}

// Clone returns a copy of the map with the same hash function, seed, table
// layout and iteration order.
func (m *Map[K, V]) Clone() *Map[K, V] {
	t := *m.t
	t.slots = append([]slot[K, V](nil), m.t.slots...)
	t.bonds = m.t.bonds.clone()
	c := &Map[K, V]{
		hash: m.hash,
		seed: m.seed,
		t:    &t,
	}
	c.checkInvariants()
	return c
}

// Insert inserts an entry into the map at the end of the iteration order.
// If an entry with the same key already exists, Insert does nothing and
// returns false; in particular the existing value is not overwritten.
func (m *Map[K, V]) Insert(key K, value V) bool {
	m.rehashBeforeInsert()
	inserted := m.insert(key, value)
	m.checkInvariants()
	return inserted
}

// InsertEntry is Insert for an Entry.
func (m *Map[K, V]) InsertEntry(e Entry[K, V]) bool {
	return m.Insert(e.Key, e.Value)
}

// insert is Insert without the rehash policy. It is also how a rebuild
// replays entries into a fresh table.
func (m *Map[K, V]) insert(key K, value V) bool {
	i, ok := m.lookup(key)
	if ok {
		if debug {
			fmt.Printf("insert(%v): present at index=%d\n", key, i)
		}
		return false
	}

	t := m.t
	s := &t.slots[i]
	s.key = key
	s.value = value
	s.state = slotOccupied
	t.link(i)
	t.used++
	if debug {
		fmt.Printf("insert(%v): index=%d used=%d deleted=%d\n", key, i, t.used, t.deleted)
	}
	return true
}

// Erase removes the entry for key from the map, returning whether it was
// present. It is a noop to erase a non-existent key.
func (m *Map[K, V]) Erase(key K) bool {
	m.rehashBeforeErase()

	i, ok := m.lookup(key)
	if !ok {
		if debug {
			fmt.Printf("erase(%v): not found\n", key)
		}
		m.checkInvariants()
		return false
	}

	t := m.t
	t.unlink(i)
	// Drop the key and value so that anything they reference can be
	// collected. The tombstone keeps the probe chain intact.
	t.slots[i] = slot[K, V]{state: slotTombstone}
	t.used--
	t.deleted++
	if debug {
		fmt.Printf("erase(%v): index=%d used=%d deleted=%d\n", key, i, t.used, t.deleted)
	}
	m.checkInvariants()
	return true
}

// lookup probes for key. If the key is present it returns its slot index and
// true. Otherwise it returns the index of the empty slot that terminated the
// probe, which is where the key would be inserted, and false.
func (m *Map[K, V]) lookup(key K) (uintptr, bool) {
	t := m.t
	for i := m.hash(&key, m.seed) % t.size; ; i = t.inc(i) {
		s := &t.slots[i]
		switch s.state {
		case slotEmpty:
			return i, false
		case slotOccupied:
			if s.key == key {
				return i, true
			}
		}
		// Tombstones and other keys continue the probe.
	}
}

// Find returns an iterator positioned at the entry for key, or End() if the
// key is not present.
func (m *Map[K, V]) Find(key K) Iterator[K, V] {
	i, ok := m.lookup(key)
	if !ok {
		return m.End()
	}
	return Iterator[K, V]{t: m.t, pos: i}
}

// Get retrieves the value from the map for the specified key, returning
// ok=false if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	i, ok := m.lookup(key)
	if !ok {
		return value, false
	}
	return m.t.slots[i].value, true
}

// At returns the value for key. If the key is not present the returned error
// wraps ErrKeyNotFound.
func (m *Map[K, V]) At(key K) (V, error) {
	v, ok := m.Get(key)
	if !ok {
		return v, errors.Wrapf(ErrKeyNotFound, "key %v", key)
	}
	return v, nil
}

// Index returns a pointer to the value for key, first inserting the zero
// value at the end of the iteration order if the key is not present. It is
// the equivalent of taking the address of m[key] for a builtin map, if Go
// allowed that. The pointer is invalidated by the next Insert, Erase, Clear
// or inserting Index call.
func (m *Map[K, V]) Index(key K) *V {
	i, ok := m.lookup(key)
	if !ok {
		var zero V
		m.Insert(key, zero)
		// Insert may have rebuilt the table, so the earlier index is stale.
		i, _ = m.lookup(key)
	}
	return &m.t.slots[i].value
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.t.used
}

// Empty returns true if the map has no entries.
func (m *Map[K, V]) Empty() bool {
	return m.t.used == 0
}

// Clear removes all entries from the map. Entries are erased one at a time
// in iteration order, so the table shrinks as they are removed.
func (m *Map[K, V]) Clear() {
	keys := make([]K, 0, m.Len())
	m.Keys(func(k K) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		m.Erase(k)
	}
}

// Swap exchanges the contents of m and other, including their hash
// functions. Iterators keep referring to the entries they were positioned
// on, which now belong to the other map.
func (m *Map[K, V]) Swap(other *Map[K, V]) {
	m.hash, other.hash = other.hash, m.hash
	m.seed, other.seed = other.seed, m.seed
	m.t, other.t = other.t, m.t
}

// HashFunction returns the hash function used by the map, bound to the
// map's seed.
func (m *Map[K, V]) HashFunction() func(key K) uintptr {
	hash, seed := m.hash, m.seed
	return func(key K) uintptr {
		return hash(&key, seed)
	}
}

// String returns the entries in iteration order formatted like fmt formats
// a builtin map, e.g. "map[1:a 2:b]".
func (m *Map[K, V]) String() string {
	var buf strings.Builder
	buf.WriteString("map[")
	sep := ""
	m.All(func(k K, v V) bool {
		fmt.Fprintf(&buf, "%s%v:%v", sep, k, v)
		sep = " "
		return true
	})
	buf.WriteString("]")
	return buf.String()
}

// tableSize returns the number of slots in the current table.
func (m *Map[K, V]) tableSize() int {
	return int(m.t.size)
}

func (m *Map[K, V]) rehashBeforeInsert() {
	t := m.t
	n := uintptr(t.used + t.deleted)
	switch {
	case n > t.capacity:
		m.rehash(2 * t.size)
	case 2*n > t.capacity && t.deleted > t.used:
		m.rehash(t.size)
	}
}

func (m *Map[K, V]) rehashBeforeErase() {
	t := m.t
	if 4*uintptr(t.used) >= t.capacity {
		return
	}
	newSize := t.size / 2
	if newSize < minTableSize {
		newSize = minTableSize
	}
	// At the floor there is nothing to gain unless tombstones can be
	// dropped.
	if newSize == t.size && t.deleted == 0 {
		return
	}
	m.rehash(newSize)
}

// rehash rebuilds the map into a table of newSize slots. The old table is
// swapped out for an empty one and its entries are replayed in insertion
// order, which reconstructs the links of the new table as a side effect.
func (m *Map[K, V]) rehash(newSize uintptr) {
	old := m.t
	m.t = newTable[K, V](newSize)
	if debug {
		fmt.Printf("rehash: size=%d->%d used=%d deleted=%d\n",
			old.size, m.t.size, old.used, old.deleted)
	}

	for i := old.first(); i != old.size; i = old.bonds.forward[i] {
		s := &old.slots[i]
		m.insert(s.key, s.value)
	}
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		t := m.t
		if t.size < minTableSize {
			panic(fmt.Sprintf("invariant failed: table size %d < %d", t.size, minTableSize))
		}
		if uintptr(len(t.slots)) != t.size ||
			uintptr(len(t.bonds.forward)) != t.size+1 ||
			uintptr(len(t.bonds.backward)) != t.size+1 {
			panic(fmt.Sprintf("invariant failed: size=%d slots=%d forward=%d backward=%d",
				t.size, len(t.slots), len(t.bonds.forward), len(t.bonds.backward)))
		}
		if c := t.size * loadNumerator / loadDenominator; c != t.capacity {
			panic(fmt.Sprintf("invariant failed: capacity %d, expected %d", t.capacity, c))
		}

		// For every occupied slot, verify we can retrieve the key by probing.
		// Count the number of used and deleted slots.
		var used, deleted int
		for i := uintptr(0); i < t.size; i++ {
			s := &t.slots[i]
			switch s.state {
			case slotEmpty:
			case slotTombstone:
				deleted++
			case slotOccupied:
				if j, ok := m.lookup(s.key); !ok || j != i {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v not found by probing\n%s",
						i, s.key, m.debugString()))
				}
				used++
			default:
				panic(fmt.Sprintf("invariant failed: slot(%d): bad state %s", i, s.state))
			}
		}
		if used != t.used {
			panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, t.used, m.debugString()))
		}
		if deleted != t.deleted {
			panic(fmt.Sprintf("invariant failed: found %d deleted slots, but deleted count is %d\n%s",
				deleted, t.deleted, m.debugString()))
		}
		if uintptr(used+deleted) >= t.size {
			panic(fmt.Sprintf("invariant failed: no empty slot remains\n%s", m.debugString()))
		}

		// The links form a single circle through the sentinel covering
		// exactly the occupied slots.
		var n int
		prev := t.size
		for i := t.first(); i != t.size; i = t.bonds.forward[i] {
			if n >= used {
				panic(fmt.Sprintf("invariant failed: list longer than %d entries\n%s",
					used, m.debugString()))
			}
			if t.slots[i].state != slotOccupied {
				panic(fmt.Sprintf("invariant failed: list visits %s slot %d\n%s",
					t.slots[i].state, i, m.debugString()))
			}
			if t.bonds.backward[i] != prev {
				panic(fmt.Sprintf("invariant failed: backward(%d)=%d, expected %d\n%s",
					i, t.bonds.backward[i], prev, m.debugString()))
			}
			prev = i
			n++
		}
		if n != used || t.bonds.backward[t.size] != prev {
			panic(fmt.Sprintf("invariant failed: list has %d entries ending at %d, expected %d\n%s",
				n, t.bonds.backward[t.size], used, m.debugString()))
		}
	}
}

func (m *Map[K, V]) debugString() string {
	t := m.t
	var buf strings.Builder
	fmt.Fprintf(&buf, "size=%d  capacity=%d  used=%d  deleted=%d\n",
		t.size, t.capacity, t.used, t.deleted)
	for i := uintptr(0); i < t.size; i++ {
		switch s := &t.slots[i]; s.state {
		case slotOccupied:
			h := m.hash(&s.key, m.seed)
			fmt.Fprintf(&buf, "  %4d: %v [home=%d prev=%d next=%d]\n",
				i, s.key, h%t.size, t.bonds.backward[i], t.bonds.forward[i])
		default:
			fmt.Fprintf(&buf, "  %4d: %s\n", i, s.state)
		}
	}
	fmt.Fprintf(&buf, "  %4d: sentinel [last=%d first=%d]\n",
		t.size, t.bonds.backward[t.size], t.bonds.forward[t.size])
	return buf.String()
}
