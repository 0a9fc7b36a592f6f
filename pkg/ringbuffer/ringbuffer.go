// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package ringbuffer

import (
	"github.com/antimetal/containers/pkg/errors"
	"github.com/antimetal/containers/pkg/heaparray"
)

// State describes how much of the usable capacity holds unread elements.
type State int

const (
	StateEmpty State = iota
	StatePartial
	StateFull
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateFull:
		return "full"
	default:
		return "unknown"
	}
}

// RingBuffer is a generic, thread-unsafe FIFO queue over a fixed-capacity
// array that overwrites the oldest unread element when it is full.
//
// Emptiness is derived from the cursors alone: the buffer is empty when the
// read cursor sits one slot past the last write. One slot is therefore never
// available for unread data, and a buffer backed by C slots holds at most
// C-1 unread elements.
//
// A freshly constructed buffer is empty even though its backing slots hold
// the construction values; those values are only ever overwritten.
//
// Note: This implementation is NOT thread-safe. If concurrent access is needed,
// synchronization must be handled externally.
type RingBuffer[T any] struct {
	data  *heaparray.Array[T]
	read  int // next read position
	write int // last write position
	opts  *options[T]
}

// New creates a ring buffer whose backing array is a copy of items. It panics
// if items is empty.
func New[T any](items []T, opts ...Option[T]) *RingBuffer[T] {
	if len(items) == 0 {
		errors.Violate(errors.ErrEmptyBacking, "ring buffer capacity must be greater than 0, got 0")
	}
	o := applyOptions(opts...)
	return newRingBuffer(heaparray.FromSlice(items, o.arrayOpts...), o)
}

// Fill creates a ring buffer backed by capacity copies of value. It panics if
// capacity is not positive.
func Fill[T any](value T, capacity int, opts ...Option[T]) *RingBuffer[T] {
	if capacity <= 0 {
		errors.Violate(errors.ErrEmptyBacking, "ring buffer capacity must be greater than 0, got %d", capacity)
	}
	o := applyOptions(opts...)
	return newRingBuffer(heaparray.New(value, capacity, o.arrayOpts...), o)
}

func newRingBuffer[T any](data *heaparray.Array[T], o *options[T]) *RingBuffer[T] {
	r := &RingBuffer[T]{
		data:  data,
		read:  0,
		write: data.Len() - 1,
		opts:  o,
	}
	o.logger.V(1).Info("ring buffer created", "capacity", data.Len(), "usable", data.Len()-1)
	return r
}

func (r *RingBuffer[T]) capacity() int {
	n := r.data.Len()
	if n == 0 {
		errors.Violate(errors.ErrEmptyBacking, "ring buffer used after release")
	}
	return n
}

func (r *RingBuffer[T]) next(i int) int {
	return (i + 1) % r.capacity()
}

// Read removes and returns the oldest unread element, or false if the buffer
// is empty.
func (r *RingBuffer[T]) Read() (T, bool) {
	if r.IsEmpty() {
		var zero T
		return zero, false
	}
	item := r.data.At(r.read)
	r.read = r.next(r.read)
	if r.opts.metrics != nil {
		r.opts.metrics.recordRead(r.Len())
	}
	return item, true
}

// Peek returns the oldest unread element without consuming it.
func (r *RingBuffer[T]) Peek() (T, bool) {
	if r.IsEmpty() {
		var zero T
		return zero, false
	}
	return r.data.At(r.read), true
}

// Write stores item in the slot after the last write. If the buffer is full
// the oldest unread element is discarded first.
func (r *RingBuffer[T]) Write(item T) {
	next := r.next(r.write)

	evicted := r.capacity() > 1 && r.IsFull()
	if evicted {
		if r.opts.onEvict != nil {
			r.opts.onEvict(r.data.At(r.read))
		}
		r.opts.logger.V(2).Info("evicting oldest unread element", "slot", r.read)
	}

	r.data.Set(next, item)
	r.write = next
	if r.read == r.next(r.write) {
		r.read = r.next(r.read)
	}

	if r.opts.metrics != nil {
		r.opts.metrics.recordWrite(r.Len(), evicted)
	}
}

// WriteAll writes each of items in order.
func (r *RingBuffer[T]) WriteAll(items []T) {
	for _, item := range items {
		r.Write(item)
	}
}

// DrainAll reads every unread element, oldest first, leaving the buffer empty.
func (r *RingBuffer[T]) DrainAll() []T {
	result := make([]T, 0, r.Len())
	for {
		item, ok := r.Read()
		if !ok {
			return result
		}
		result = append(result, item)
	}
}

// Snapshot returns the unread elements, oldest first, without consuming them.
func (r *RingBuffer[T]) Snapshot() []T {
	result := make([]T, 0, r.Len())
	for i := r.read; i != r.next(r.write); i = r.next(i) {
		result = append(result, r.data.At(i))
	}
	return result
}

// Len returns the number of unread elements
func (r *RingBuffer[T]) Len() int {
	n := r.capacity()
	return (r.write + 1 - r.read + n) % n
}

// Cap returns the number of backing slots
func (r *RingBuffer[T]) Cap() int {
	return r.data.Len()
}

// UsableCap returns the maximum number of unread elements, one less than Cap.
func (r *RingBuffer[T]) UsableCap() int {
	return r.capacity() - 1
}

// IsEmpty reports whether there is nothing to read
func (r *RingBuffer[T]) IsEmpty() bool {
	return r.read == r.next(r.write)
}

// IsFull reports whether unread elements occupy the whole usable capacity.
func (r *RingBuffer[T]) IsFull() bool {
	return r.Len() == r.UsableCap()
}

// State reports whether the buffer is empty, partially filled or full.
func (r *RingBuffer[T]) State() State {
	switch {
	case r.IsEmpty():
		return StateEmpty
	case r.IsFull():
		return StateFull
	default:
		return StatePartial
	}
}

// Release destructs the backing array. The buffer must not be used afterwards.
func (r *RingBuffer[T]) Release() {
	r.data.Release()
	r.read, r.write = 0, 0
}
