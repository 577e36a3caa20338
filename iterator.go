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

package ordmap

// bonds links the occupied slots of a table in insertion order. Both slices
// are size+1 in length; index size is the sentinel, whose forward and
// backward entries are the first and last occupied slots.
type bonds struct {
	forward  []uintptr
	backward []uintptr
}

func (b *bonds) init(size uintptr) {
	b.forward = make([]uintptr, size+1)
	b.backward = make([]uintptr, size+1)
	b.forward[size] = size
	b.backward[size] = size
}

func (b bonds) clone() bonds {
	return bonds{
		forward:  append([]uintptr(nil), b.forward...),
		backward: append([]uintptr(nil), b.backward...),
	}
}

// first returns the index of the first entry in insertion order, or the
// sentinel if the table is empty.
func (t *table[K, V]) first() uintptr {
	return t.bonds.forward[t.size]
}

// link appends slot i to the end of the insertion order, i.e. immediately
// before the sentinel.
func (t *table[K, V]) link(i uintptr) {
	last := t.bonds.backward[t.size]
	t.bonds.forward[last] = i
	t.bonds.backward[i] = last
	t.bonds.forward[i] = t.size
	t.bonds.backward[t.size] = i
}

// unlink removes slot i from the insertion order, joining its neighbors.
func (t *table[K, V]) unlink(i uintptr) {
	prev, next := t.bonds.backward[i], t.bonds.forward[i]
	t.bonds.forward[prev] = next
	t.bonds.backward[next] = prev
}

// Iterator is a position in the insertion order of a Map: either an entry
// or the End() position. Iterators are comparable with ==; two iterators
// are equal iff they refer to the same position in the same table, and
// iterators from different maps are never equal.
//
// An Iterator is invalidated by any structural change to its Map. Calling
// Key, Value or ValuePtr on End(), or calling Next on End(), is a
// programming error.
type Iterator[K comparable, V any] struct {
	t   *table[K, V]
	pos uintptr
}

// Begin returns an iterator positioned at the oldest entry, or End() if the
// map is empty.
func (m *Map[K, V]) Begin() Iterator[K, V] {
	return Iterator[K, V]{t: m.t, pos: m.t.first()}
}

// End returns the position one past the newest entry.
func (m *Map[K, V]) End() Iterator[K, V] {
	return Iterator[K, V]{t: m.t, pos: m.t.size}
}

// Next returns the iterator positioned at the following entry, or End()
// after the newest entry.
func (it Iterator[K, V]) Next() Iterator[K, V] {
	it.pos = it.t.bonds.forward[it.pos]
	return it
}

// Prev returns the iterator positioned at the preceding entry. Prev of End()
// is the newest entry. Prev of the oldest entry is End().
func (it Iterator[K, V]) Prev() Iterator[K, V] {
	it.pos = it.t.bonds.backward[it.pos]
	return it
}

// Done returns true if the iterator is positioned at End().
func (it Iterator[K, V]) Done() bool {
	return it.pos == it.t.size
}

// Key returns the key of the entry. Keys cannot be modified in place.
func (it Iterator[K, V]) Key() K {
	return it.t.slots[it.pos].key
}

// Value returns the value of the entry.
func (it Iterator[K, V]) Value() V {
	return it.t.slots[it.pos].value
}

// ValuePtr returns a pointer to the value of the entry, allowing it to be
// updated in place.
func (it Iterator[K, V]) ValuePtr() *V {
	return &it.t.slots[it.pos].value
}

// Front returns the oldest entry in the map.
func (m *Map[K, V]) Front() (key K, value V, ok bool) {
	if m.Empty() {
		return key, value, false
	}
	it := m.Begin()
	return it.Key(), it.Value(), true
}

// Back returns the newest entry in the map.
func (m *Map[K, V]) Back() (key K, value V, ok bool) {
	if m.Empty() {
		return key, value, false
	}
	it := m.End().Prev()
	return it.Key(), it.Value(), true
}

// All calls yield sequentially for each key and value present in the map,
// oldest first. If yield returns false, iteration stops. The map must not be
// modified during iteration.
//
// All has the signature of a range function, so the map can be iterated
// with:
//
//	for k, v := range m.All {
//	  fmt.Printf("%v: %v\n", k, v)
//	}
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	t := m.t
	for i := t.first(); i != t.size; i = t.bonds.forward[i] {
		s := &t.slots[i]
		if !yield(s.key, s.value) {
			return
		}
	}
}

// Backward is All in reverse: newest entry first.
func (m *Map[K, V]) Backward(yield func(key K, value V) bool) {
	t := m.t
	for i := t.bonds.backward[t.size]; i != t.size; i = t.bonds.backward[i] {
		s := &t.slots[i]
		if !yield(s.key, s.value) {
			return
		}
	}
}

// Keys calls yield for each key in insertion order.
func (m *Map[K, V]) Keys(yield func(key K) bool) {
	m.All(func(k K, _ V) bool {
		return yield(k)
	})
}

// Values calls yield for each value in insertion order.
func (m *Map[K, V]) Values(yield func(value V) bool) {
	m.All(func(_ K, v V) bool {
		return yield(v)
	})
}
