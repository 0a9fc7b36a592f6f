// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package ringbuffer

import (
	"github.com/go-logr/logr"

	"github.com/antimetal/containers/pkg/heaparray"
)

// EvictCallback observes an unread element discarded by a write to a full
// buffer. The element is still owned by the buffer while the callback runs.
type EvictCallback[T any] func(item T)

// Option configures a RingBuffer.
type Option[T any] func(*options[T])

type options[T any] struct {
	onEvict   EvictCallback[T]
	metrics   *Metrics
	logger    logr.Logger
	arrayOpts []heaparray.Option[T]
}

// WithEvictCallback sets a callback invoked for every element evicted by the
// overwrite-oldest policy.
func WithEvictCallback[T any](fn func(item T)) Option[T] {
	return func(o *options[T]) {
		o.onEvict = fn
	}
}

// WithMetrics records buffer activity in m. A nil m is ignored.
func WithMetrics[T any](m *Metrics) Option[T] {
	return func(o *options[T]) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLogger sets the logger. Construction is logged at V(1) and evictions at V(2).
func WithLogger[T any](logger logr.Logger) Option[T] {
	return func(o *options[T]) {
		o.logger = logger
	}
}

// WithArrayOptions forwards clone and drop hooks to the backing array.
func WithArrayOptions[T any](opts ...heaparray.Option[T]) Option[T] {
	return func(o *options[T]) {
		o.arrayOpts = append(o.arrayOpts, opts...)
	}
}

func applyOptions[T any](opts ...Option[T]) *options[T] {
	o := &options[T]{
		logger: logr.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
