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

package ordmap_test

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/ordmap"
)

func Example() {
	m := ordmap.FromEntries([]ordmap.Entry[int, string]{
		{Key: 1, Value: "a"},
		{Key: 2, Value: "b"},
		{Key: 3, Value: "c"},
	})
	fmt.Println(m)

	m.Erase(2)
	fmt.Println(m)

	m.Insert(2, "d")
	for k, v := range m.All {
		fmt.Printf("%d=%s ", k, v)
	}
	fmt.Println()

	// Output:
	// map[1:a 2:b 3:c]
	// map[1:a 3:c]
	// 1=a 3=c 2=d
}

func ExampleMap_At() {
	m := ordmap.New[int, string](0)
	m.Insert(1, "a")

	if _, err := m.At(99); errors.Is(err, ordmap.ErrKeyNotFound) {
		fmt.Println(err)
	}

	// Output:
	// key 99: ordmap: key not found
}

func ExampleMap_Index() {
	counts := ordmap.New[string, int](0)
	for _, w := range []string{"b", "a", "b", "c", "b", "a"} {
		*counts.Index(w)++
	}
	fmt.Println(counts)

	// Output:
	// map[b:3 a:2 c:1]
}

func ExampleIterator() {
	m := ordmap.FromEntries([]ordmap.Entry[string, int]{
		{Key: "x", Value: 1},
		{Key: "y", Value: 2},
		{Key: "z", Value: 3},
	})
	for it := m.End().Prev(); it != m.End(); it = it.Prev() {
		fmt.Println(it.Key(), it.Value())
	}

	// Output:
	// z 3
	// y 2
	// x 1
}
