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
	"hash/maphash"

	"golang.org/x/exp/rand"
)

// hashFn computes the hash of *key mixed with seed.
type hashFn[K comparable] func(key *K, seed uintptr) uintptr

// processSeed is shared by the default hasher of every map. The per-map seed
// is mixed in on top of it.
var processSeed = maphash.MakeSeed()

// defaultHasher returns a hash function backed by maphash.Comparable, which
// uses the same hash function as Go's builtin map[K]V.
func defaultHasher[K comparable]() hashFn[K] {
	return func(key *K, seed uintptr) uintptr {
		return uintptr(maphash.Comparable(processSeed, *key) ^ uint64(seed))
	}
}

// randomSeed returns a seed for a newly constructed map.
func randomSeed() uintptr {
	return uintptr(rand.Uint64())
}

// option provide an interface to do work on Map while it is being created.
type option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K comparable, V any] struct {
	hash func(key *K, seed uintptr) uintptr
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Map[K,V].
// The hash function is carried over to every table the map rebuilds into,
// and to clones of the map.
func WithHash[K comparable, V any](hash func(key *K, seed uintptr) uintptr) option[K, V] {
	return hashOption[K, V]{hash}
}

type seedOption[K comparable, V any] struct {
	seed uintptr
}

func (op seedOption[K, V]) apply(m *Map[K, V]) {
	m.seed = op.seed
}

// WithSeed is an option to fix the seed passed to the hash function. By
// default every Map draws a random seed.
func WithSeed[K comparable, V any](seed uintptr) option[K, V] {
	return seedOption[K, V]{seed}
}
