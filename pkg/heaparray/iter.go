// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package heaparray

import "iter"

// All yields each index and element in index order.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := range a.data {
			if !yield(i, a.data[i]) {
				return
			}
		}
	}
}

// Values yields each element in index order.
func (a *Array[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := range a.data {
			if !yield(a.data[i]) {
				return
			}
		}
	}
}

// Pointers yields each index with a pointer to its slot, so the loop body can
// modify elements in place. Assigning through a pointer does not destruct
// the element it replaces; callers that need teardown must use Set.
func (a *Array[T]) Pointers() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := range a.data {
			if !yield(i, &a.data[i]) {
				return
			}
		}
	}
}

// IntoIter moves the array's storage into a consuming iterator, leaving a
// empty. Ownership of each yielded element passes to the caller.
func (a *Array[T]) IntoIter() *IntoIter[T] {
	m := a.Move()
	return &IntoIter[T]{data: m.data, opts: m.opts}
}

// IntoIter hands out the elements of a consumed Array one at a time.
//
// An IntoIter abandoned before exhaustion must be closed: Close destructs the
// elements that were never yielded, in index order, and drops the storage.
// Ranging over Seq closes the iterator automatically, including on break.
type IntoIter[T any] struct {
	data []T
	pos  int
	opts options[T]
}

// Next returns the next element, or false once the iterator is exhausted or closed.
func (it *IntoIter[T]) Next() (T, bool) {
	var zero T
	if it.pos >= len(it.data) {
		return zero, false
	}
	v := it.data[it.pos]
	it.data[it.pos] = zero
	it.pos++
	if it.pos == len(it.data) {
		it.data = nil
		it.pos = 0
	}
	return v, true
}

// Len returns the number of elements not yet yielded.
func (it *IntoIter[T]) Len() int {
	return len(it.data) - it.pos
}

// Close destructs every element not yet yielded and drops the storage.
// Calling Close more than once is a no-op.
func (it *IntoIter[T]) Close() {
	data, pos := it.data, it.pos
	it.data, it.pos = nil, 0
	for i := pos; i < len(data); i++ {
		it.opts.destruct(&data[i])
	}
	clear(data)
}

// Seq yields the remaining elements and closes the iterator when the loop
// finishes or breaks.
func (it *IntoIter[T]) Seq() iter.Seq[T] {
	return func(yield func(T) bool) {
		defer it.Close()
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}
