// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package heaparray provides a fixed-capacity array that allocates its storage
// exactly once, at construction, and never grows or shrinks afterwards.
//
// Elements whose type implements Dropper (or arrays built with WithDropFunc)
// get explicit teardown: Release destructs every element in index order, Set
// destructs the value it replaces, and an IntoIter that is closed early
// destructs whatever it did not yield.
//
// Note: Array is NOT thread-safe. Concurrent mutation must be guarded by the caller.
package heaparray

import (
	"iter"
	"math/bits"
	"slices"
	"unsafe"

	"github.com/antimetal/containers/pkg/errors"
)

// Array is a fixed-capacity container backed by one contiguous allocation.
// The zero value is an empty array that holds no storage.
type Array[T any] struct {
	data []T
	opts options[T]
}

// New creates an array of count slots, each holding a duplicate of value.
// A count of zero yields the empty array without allocating.
func New[T any](value T, count int, opts ...Option[T]) *Array[T] {
	a := &Array[T]{opts: *applyOptions(opts...)}
	a.data = allocate[T](count)
	for i := range a.data {
		a.data[i] = a.opts.duplicate(value)
	}
	return a
}

// FromSlice creates an array holding a duplicate of every element of items,
// in order.
func FromSlice[T any](items []T, opts ...Option[T]) *Array[T] {
	a := &Array[T]{opts: *applyOptions(opts...)}
	a.data = allocate[T](len(items))
	for i, item := range items {
		a.data[i] = a.opts.duplicate(item)
	}
	return a
}

// Collect creates an array from the values produced by seq. The values are
// moved into the array, not duplicated.
func Collect[T any](seq iter.Seq[T], opts ...Option[T]) *Array[T] {
	items := slices.Collect(seq)
	a := &Array[T]{opts: *applyOptions(opts...)}
	a.data = allocate[T](len(items))
	copy(a.data, items)
	return a
}

// Empty returns an array with no storage.
func Empty[T any]() *Array[T] {
	return &Array[T]{}
}

// maxAllocBytes caps the storage of a single array at the heap address limit
// of the common 64-bit platforms (128 TiB) and at MaxInt32 on 32-bit ones.
// Platforms with a smaller heap (wasm, ios) can still fail inside make.
const maxAllocBytes = 1<<(min(bits.UintSize, 48)-1) - 1

func allocate[T any](count int) []T {
	if count < 0 {
		errors.Violate(errors.ErrNegativeCount, "array length must not be negative, got %d", count)
	}
	if count == 0 {
		return nil
	}
	var zero T
	if size := uint64(unsafe.Sizeof(zero)); size != 0 {
		hi, lo := bits.Mul64(uint64(count), size)
		if hi != 0 || lo > maxAllocBytes {
			errors.Violate(errors.ErrCapacityOverflow,
				"array layout too large: %d elements of %d bytes", count, size)
		}
	}
	return make([]T, count)
}

// Len returns the number of slots in the array
func (a *Array[T]) Len() int {
	return len(a.data)
}

// IsEmpty reports whether the array has no slots
func (a *Array[T]) IsEmpty() bool {
	return len(a.data) == 0
}

// Get returns the element at index i, or false if i is out of range.
func (a *Array[T]) Get(i int) (T, bool) {
	if i < 0 || i >= len(a.data) {
		var zero T
		return zero, false
	}
	return a.data[i], true
}

// GetPtr returns a pointer to the slot at index i, or false if i is out of
// range. The pointer stays valid until the array is released or moved.
// Assigning through it replaces the element without destructing the old
// value; callers that need teardown must use Set.
func (a *Array[T]) GetPtr(i int) (*T, bool) {
	if i < 0 || i >= len(a.data) {
		return nil, false
	}
	return &a.data[i], true
}

// At returns the element at index i. It panics if i is out of range.
func (a *Array[T]) At(i int) T {
	return *a.Ptr(i)
}

// Ptr returns a pointer to the slot at index i. It panics if i is out of range.
// Like GetPtr, assigning through the pointer skips teardown of the replaced
// element; use Set for that.
func (a *Array[T]) Ptr(i int) *T {
	p, ok := a.GetPtr(i)
	if !ok {
		errors.Violate(errors.ErrIndexOutOfRange,
			"index out of bounds: the len is %d but the index is %d", len(a.data), i)
	}
	return p
}

// Set destructs the element at index i and stores v in its place. It panics
// if i is out of range.
func (a *Array[T]) Set(i int, v T) {
	p := a.Ptr(i)
	a.opts.destruct(p)
	*p = v
}

// Slice returns the array's storage as a slice. Writes through the slice are
// writes to the array; appending to it never touches the array's storage.
// A write through the slice does not destruct the element it overwrites;
// callers that need teardown must use Set.
func (a *Array[T]) Slice() []T {
	return a.data[:len(a.data):len(a.data)]
}

// ToSlice returns a newly allocated slice holding a duplicate of every element.
func (a *Array[T]) ToSlice() []T {
	out := make([]T, len(a.data))
	for i := range a.data {
		out[i] = a.opts.duplicate(a.data[i])
	}
	return out
}

// Clone returns a deep copy of the array with its own storage.
func (a *Array[T]) Clone() *Array[T] {
	c := &Array[T]{opts: a.opts}
	c.data = allocate[T](len(a.data))
	for i := range a.data {
		c.data[i] = a.opts.duplicate(a.data[i])
	}
	return c
}

// Move transfers the storage to a new Array and leaves a empty. No element is
// copied or destructed.
func (a *Array[T]) Move() *Array[T] {
	m := &Array[T]{data: a.data, opts: a.opts}
	a.data = nil
	return m
}

// Release destructs every element in index order and drops the storage,
// leaving the array empty. Releasing an empty array does nothing, so a
// deferred Release after a Move or IntoIter is safe.
func (a *Array[T]) Release() {
	data := a.data
	a.data = nil
	for i := range data {
		a.opts.destruct(&data[i])
	}
	clear(data)
}
