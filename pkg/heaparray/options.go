// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package heaparray

import "reflect"

// Cloner is implemented by element types that need more than a shallow copy
// to be duplicated into a new slot. A nil pointer element is copied as nil
// without calling Clone.
type Cloner[T any] interface {
	Clone() T
}

// Dropper is implemented by element types with observable teardown. Drop is
// called exactly once for every non-nil element the array destructs; a nil
// pointer element holds nothing to tear down.
type Dropper interface {
	Drop()
}

// Option configures an Array.
type Option[T any] func(*options[T])

type options[T any] struct {
	clone func(T) T
	drop  func(T)
}

// WithCloneFunc overrides how elements are duplicated. It takes precedence
// over a Cloner implementation on T.
func WithCloneFunc[T any](fn func(T) T) Option[T] {
	return func(o *options[T]) {
		o.clone = fn
	}
}

// WithDropFunc registers a teardown hook run for each destructed element, in
// addition to any Dropper implementation on T. The hook also sees nil
// elements.
func WithDropFunc[T any](fn func(T)) Option[T] {
	return func(o *options[T]) {
		o.drop = fn
	}
}

func applyOptions[T any](opts ...Option[T]) *options[T] {
	o := &options[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options[T]) duplicate(v T) T {
	if o.clone != nil {
		return o.clone(v)
	}
	if c, ok := any(v).(Cloner[T]); ok && !isNilPointer(c) {
		return c.Clone()
	}
	return v
}

// destruct tears down the element stored at p.
func (o *options[T]) destruct(p *T) {
	if d, ok := any(p).(Dropper); ok {
		d.Drop()
	} else if d, ok := any(*p).(Dropper); ok && !isNilPointer(d) {
		d.Drop()
	}
	if o.drop != nil {
		o.drop(*p)
	}
}

// isNilPointer reports whether v wraps a nil pointer.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
