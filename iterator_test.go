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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIterateForwardBackward(t *testing.T) {
	m := New[int, string](0)
	for i := 0; i < 20; i++ {
		m.Insert(i, string(rune('a'+i)))
	}
	m.Erase(0)
	m.Erase(7)
	m.Erase(19)

	var forward []int
	for it := m.Begin(); it != m.End(); it = it.Next() {
		forward = append(forward, it.Key())
	}
	require.Equal(t, m.toKeys(), forward)
	require.Equal(t, 1, forward[0])
	require.Equal(t, 18, forward[len(forward)-1])

	var backward []int
	for it := m.End().Prev(); it != m.End(); it = it.Prev() {
		backward = append(backward, it.Key())
	}
	require.Len(t, backward, len(forward))
	for i := range forward {
		require.Equal(t, forward[i], backward[len(backward)-1-i])
	}

	var ranged []int
	for k := range m.Backward {
		ranged = append(ranged, k)
	}
	require.Equal(t, backward, ranged)

	// Prev of the first entry is End().
	require.True(t, m.Begin().Prev() == m.End())
	require.True(t, m.Begin().Prev().Done())
}

func TestIteratorUnlinkHead(t *testing.T) {
	m := FromEntries([]Entry[int, int]{{1, 1}, {2, 2}, {3, 3}})
	require.True(t, m.Erase(1))

	// After removing the head, walking back from the new head reaches End().
	it := m.Begin()
	require.Equal(t, 2, it.Key())
	require.True(t, it.Prev() == m.End())

	require.True(t, m.Erase(3))
	require.True(t, m.End().Prev() == m.Begin())
	require.Equal(t, 2, m.End().Prev().Key())

	require.True(t, m.Erase(2))
	require.True(t, m.Begin() == m.End())
	require.True(t, m.End().Prev() == m.End())
}

func TestIteratorEquality(t *testing.T) {
	a := New[int, int](0)
	b := New[int, int](0)

	// Empty maps have identical positions but distinct tables.
	require.True(t, a.Begin() == a.End())
	require.False(t, a.Begin() == b.Begin())
	require.False(t, a.End() == b.End())

	a.Insert(1, 1)
	b.Insert(1, 1)
	require.True(t, a.Find(1) == a.Begin())
	require.False(t, a.Find(1) == b.Find(1))
	require.False(t, a.Find(1) == a.End())
}

func TestIteratorValuePtr(t *testing.T) {
	m := FromEntries([]Entry[string, int]{{"a", 1}, {"b", 2}, {"c", 3}})
	for it := m.Begin(); !it.Done(); it = it.Next() {
		*it.ValuePtr() *= 10
	}
	require.Equal(t, []Entry[string, int]{{"a", 10}, {"b", 20}, {"c", 30}}, m.toEntries())

	it := m.Find("b")
	require.Equal(t, "b", it.Key())
	require.Equal(t, 20, it.Value())
	require.Equal(t, "a", it.Prev().Key())
	require.Equal(t, "c", it.Next().Key())
	require.True(t, it.Next().Next().Done())
}

func TestFrontBack(t *testing.T) {
	m := New[int, string](0)
	_, _, ok := m.Front()
	require.False(t, ok)
	_, _, ok = m.Back()
	require.False(t, ok)

	m.Insert(5, "five")
	m.Insert(3, "three")
	m.Insert(9, "nine")

	k, v, ok := m.Front()
	require.True(t, ok)
	require.Equal(t, 5, k)
	require.Equal(t, "five", v)

	k, v, ok = m.Back()
	require.True(t, ok)
	require.Equal(t, 9, k)
	require.Equal(t, "nine", v)
}

func TestAllStops(t *testing.T) {
	m := New[int, int](0)
	for i := 0; i < 10; i++ {
		m.Insert(i, i)
	}

	var n int
	for k, v := range m.All {
		require.Equal(t, n, k)
		require.Equal(t, k, v)
		n++
		if n == 4 {
			break
		}
	}
	require.Equal(t, 4, n)

	var values []int
	m.Values(func(v int) bool {
		values = append(values, v)
		return len(values) < 3
	})
	require.Equal(t, []int{0, 1, 2}, values)
}

func TestIterationSurvivesRehash(t *testing.T) {
	m := New[int, int](0)
	for i := 0; i < 100; i++ {
		m.Insert(i, -i)
	}
	for i := 0; i < 100; i += 2 {
		m.Erase(i)
	}
	for i := 0; i < 100; i += 2 {
		m.Insert(i, -i)
	}

	// Odd keys in their original order, then even keys in re-insertion
	// order, regardless of the rebuilds in between.
	var expected []int
	for i := 1; i < 100; i += 2 {
		expected = append(expected, i)
	}
	for i := 0; i < 100; i += 2 {
		expected = append(expected, i)
	}
	require.Equal(t, expected, m.toKeys())
	for it := m.Begin(); !it.Done(); it = it.Next() {
		require.Equal(t, -it.Key(), it.Value())
	}
}
