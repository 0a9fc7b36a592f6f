// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package heaparray_test

import (
	"math"
	"math/bits"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/containers/pkg/errors"
	"github.com/antimetal/containers/pkg/heaparray"
)

// ledger counts live copies of tracked values and records teardown order.
type ledger struct {
	live    int
	dropped []int
}

type tracked struct {
	id int
	l  *ledger
}

func (t tracked) Clone() tracked {
	t.l.live++
	return t
}

func (t tracked) Drop() {
	t.l.live--
	t.l.dropped = append(t.l.dropped, t.id)
}

func trackedSlice(l *ledger, n int) []tracked {
	items := make([]tracked, n)
	for i := range items {
		items[i] = tracked{id: i, l: l}
	}
	return items
}

func TestNew(t *testing.T) {
	t.Run("fills every slot", func(t *testing.T) {
		for _, count := range []int{0, 1, 7, 64} {
			a := heaparray.New("x", count)
			assert.Equal(t, count, a.Len())
			assert.Equal(t, count == 0, a.IsEmpty())
			for i := 0; i < count; i++ {
				assert.Equal(t, "x", a.At(i))
			}
		}
	})

	t.Run("zero count holds no storage", func(t *testing.T) {
		a := heaparray.New(42, 0)
		assert.Nil(t, a.Slice())
		assert.Equal(t, []int{}, a.ToSlice())
		_, ok := a.Get(0)
		assert.False(t, ok)
	})

	t.Run("duplicates with Cloner", func(t *testing.T) {
		l := &ledger{}
		a := heaparray.New(tracked{id: 9, l: l}, 4)
		assert.Equal(t, 4, l.live)

		a.Release()
		assert.Equal(t, 0, l.live)
		assert.Equal(t, []int{9, 9, 9, 9}, l.dropped)
	})

	t.Run("negative count", func(t *testing.T) {
		assert.PanicsWithError(t, "array length must not be negative, got -1", func() {
			heaparray.New(1, -1)
		})
	})

	t.Run("layout overflow", func(t *testing.T) {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			assert.True(t, errors.IsContractViolation(r))
			assert.ErrorIs(t, r.(error), errors.ErrCapacityOverflow)
		}()
		heaparray.New([64]byte{}, math.MaxInt/32)
	})

	t.Run("layout above allocation ceiling", func(t *testing.T) {
		if bits.UintSize < 64 {
			t.Skip("count fits the 32-bit heap")
		}
		defer func() {
			r := recover()
			require.NotNil(t, r)
			assert.True(t, errors.IsContractViolation(r))
			assert.ErrorIs(t, r.(error), errors.ErrCapacityOverflow)
		}()
		// fits in an int but not in any heap the runtime can map
		heaparray.New(byte(0), math.MaxInt>>4)
	})
}

func TestFromSlice(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		src := []int{5, 3, 8, 1}
		a := heaparray.FromSlice(src)
		assert.Equal(t, src, a.Slice())
		assert.Equal(t, src, a.ToSlice())
	})

	t.Run("storage is independent of the input", func(t *testing.T) {
		src := []int{1, 2, 3}
		a := heaparray.FromSlice(src)
		src[0] = 100
		assert.Equal(t, 1, a.At(0))
	})

	t.Run("empty input", func(t *testing.T) {
		a := heaparray.FromSlice([]string{})
		assert.True(t, a.IsEmpty())
		assert.Equal(t, 0, a.Len())
	})

	t.Run("collect moves values", func(t *testing.T) {
		a := heaparray.Collect(slices.Values([]string{"a", "b", "c"}))
		assert.Equal(t, []string{"a", "b", "c"}, a.Slice())
	})
}

func TestAccess(t *testing.T) {
	a := heaparray.FromSlice([]int{10, 20, 30})

	t.Run("checked access", func(t *testing.T) {
		v, ok := a.Get(2)
		assert.True(t, ok)
		assert.Equal(t, 30, v)

		for _, i := range []int{3, 4, 100, -1} {
			_, ok := a.Get(i)
			assert.False(t, ok, "index %d", i)
			p, ok := a.GetPtr(i)
			assert.False(t, ok, "index %d", i)
			assert.Nil(t, p)
		}
	})

	t.Run("checked mutable access", func(t *testing.T) {
		p, ok := a.GetPtr(1)
		require.True(t, ok)
		*p = 21
		assert.Equal(t, 21, a.At(1))
	})

	t.Run("unchecked access aborts out of range", func(t *testing.T) {
		assert.PanicsWithError(t, "index out of bounds: the len is 3 but the index is 3", func() {
			a.At(3)
		})
		assert.PanicsWithError(t, "index out of bounds: the len is 3 but the index is 7", func() {
			a.Set(7, 1)
		})
		assert.PanicsWithError(t, "index out of bounds: the len is 3 but the index is -1", func() {
			a.Ptr(-1)
		})
	})

	t.Run("set replaces in place", func(t *testing.T) {
		a.Set(0, 11)
		assert.Equal(t, []int{11, 21, 30}, a.Slice())
	})

	t.Run("slice view aliases storage", func(t *testing.T) {
		s := a.Slice()
		s[2] = 31
		assert.Equal(t, 31, a.At(2))

		grown := append(s, 40)
		assert.Len(t, grown, 4)
		assert.Equal(t, 3, a.Len())
		assert.Equal(t, []int{11, 21, 31}, a.Slice())
	})
}

func TestSetDestructsReplaced(t *testing.T) {
	l := &ledger{}
	a := heaparray.FromSlice(trackedSlice(l, 3))
	require.Equal(t, 3, l.live)

	a.Set(1, tracked{id: 7, l: l}.Clone())
	assert.Equal(t, 3, l.live)
	assert.Equal(t, []int{1}, l.dropped)

	a.Release()
	assert.Equal(t, 0, l.live)
	assert.Equal(t, []int{1, 0, 7, 2}, l.dropped)
}

func TestInPlaceWritesSkipTeardown(t *testing.T) {
	var dropped []int
	a := heaparray.FromSlice([]int{1, 2, 3, 4}, heaparray.WithDropFunc(func(v int) {
		dropped = append(dropped, v)
	}))

	a.Slice()[0] = 10
	*a.Ptr(1) = 20
	p, ok := a.GetPtr(2)
	require.True(t, ok)
	*p = 30
	assert.Empty(t, dropped)

	a.Set(3, 40)
	assert.Equal(t, []int{4}, dropped)

	a.Release()
	assert.Equal(t, []int{4, 10, 20, 30, 40}, dropped)
}

func TestClone(t *testing.T) {
	orig := heaparray.FromSlice([]int{1, 2, 3})
	c := orig.Clone()
	assert.Equal(t, orig.Slice(), c.Slice())

	c.Set(0, 99)
	*c.Ptr(1) = 98
	assert.Equal(t, []int{1, 2, 3}, orig.Slice())
	assert.Equal(t, []int{99, 98, 3}, c.Slice())

	t.Run("clone of empty", func(t *testing.T) {
		e := heaparray.Empty[int]().Clone()
		assert.True(t, e.IsEmpty())
	})

	t.Run("clone func", func(t *testing.T) {
		src := heaparray.FromSlice([][]byte{[]byte("ab")}, heaparray.WithCloneFunc(func(b []byte) []byte {
			return slices.Clone(b)
		}))
		dup := src.Clone()
		dup.At(0)[0] = 'z'
		assert.Equal(t, "ab", string(src.At(0)))
	})
}

func TestRelease(t *testing.T) {
	l := &ledger{}
	a := heaparray.FromSlice(trackedSlice(l, 5))
	require.Equal(t, 5, l.live)

	a.Release()
	assert.Equal(t, 0, l.live)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, l.dropped)
	assert.True(t, a.IsEmpty())

	a.Release()
	assert.Equal(t, 0, l.live)
	assert.Len(t, l.dropped, 5)

	t.Run("drop func", func(t *testing.T) {
		var seen []string
		b := heaparray.New("v", 3, heaparray.WithDropFunc(func(s string) { seen = append(seen, s) }))
		b.Release()
		assert.Equal(t, []string{"v", "v", "v"}, seen)
	})

	t.Run("pointer receiver dropper", func(t *testing.T) {
		var n int
		b := heaparray.New(counter{n: &n}, 4)
		b.Release()
		assert.Equal(t, 4, n)
	})
}

type counter struct {
	n *int
}

func (c *counter) Drop() { *c.n++ }

func TestMove(t *testing.T) {
	l := &ledger{}
	a := heaparray.FromSlice(trackedSlice(l, 2))
	m := a.Move()

	assert.True(t, a.IsEmpty())
	assert.Equal(t, 2, m.Len())

	a.Release()
	assert.Equal(t, 2, l.live)

	m.Release()
	assert.Equal(t, 0, l.live)
}

func TestIteration(t *testing.T) {
	a := heaparray.FromSlice([]int{1, 2, 3, 4})

	t.Run("all", func(t *testing.T) {
		var idx, vals []int
		for i, v := range a.All() {
			idx = append(idx, i)
			vals = append(vals, v)
		}
		assert.Equal(t, []int{0, 1, 2, 3}, idx)
		assert.Equal(t, []int{1, 2, 3, 4}, vals)
	})

	t.Run("values break", func(t *testing.T) {
		var vals []int
		for v := range a.Values() {
			if v == 3 {
				break
			}
			vals = append(vals, v)
		}
		assert.Equal(t, []int{1, 2}, vals)
	})

	t.Run("pointers mutate", func(t *testing.T) {
		for _, p := range a.Pointers() {
			*p *= 10
		}
		assert.Equal(t, []int{10, 20, 30, 40}, a.Slice())
	})
}

func TestIntoIter(t *testing.T) {
	t.Run("yields every element in order", func(t *testing.T) {
		a := heaparray.FromSlice([]string{"a", "b", "c"})
		it := a.IntoIter()
		assert.True(t, a.IsEmpty())
		assert.Equal(t, 3, it.Len())

		assert.Equal(t, []string{"a", "b", "c"}, slices.Collect(it.Seq()))
		assert.Equal(t, 0, it.Len())
		_, ok := it.Next()
		assert.False(t, ok)
	})

	t.Run("abandoned range destructs the rest", func(t *testing.T) {
		l := &ledger{}
		a := heaparray.FromSlice(trackedSlice(l, 6))
		require.Equal(t, 6, l.live)

		var taken []tracked
		for v := range a.IntoIter().Seq() {
			taken = append(taken, v)
			if len(taken) == 2 {
				break
			}
		}
		assert.Equal(t, 2, l.live)
		assert.Equal(t, []int{2, 3, 4, 5}, l.dropped)

		for _, v := range taken {
			v.Drop()
		}
		assert.Equal(t, 0, l.live)
	})

	t.Run("pull then close", func(t *testing.T) {
		l := &ledger{}
		it := heaparray.FromSlice(trackedSlice(l, 4)).IntoIter()

		v, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, 0, v.id)
		assert.Equal(t, 3, it.Len())

		it.Close()
		it.Close()
		assert.Equal(t, 1, l.live)
		assert.Equal(t, []int{1, 2, 3}, l.dropped)

		_, ok = it.Next()
		assert.False(t, ok)
	})

	t.Run("exhausted iterator destructs nothing", func(t *testing.T) {
		l := &ledger{}
		it := heaparray.FromSlice(trackedSlice(l, 3)).IntoIter()
		for range it.Seq() {
		}
		it.Close()
		assert.Equal(t, 3, l.live)
		assert.Empty(t, l.dropped)
	})
}

type conn struct {
	id     int
	closed *[]int
}

func (c *conn) Clone() *conn {
	dup := *c
	return &dup
}

func (c *conn) Drop() {
	*c.closed = append(*c.closed, c.id)
}

func TestNilPointerElements(t *testing.T) {
	t.Run("filled with nil", func(t *testing.T) {
		a := heaparray.New[*conn](nil, 3)
		for v := range a.Values() {
			assert.Nil(t, v)
		}
		assert.NotPanics(t, a.Release)
		assert.True(t, a.IsEmpty())
	})

	t.Run("mixed slots", func(t *testing.T) {
		var closed []int
		a := heaparray.FromSlice([]*conn{nil, {id: 1, closed: &closed}, nil})

		c := a.Clone()
		assert.Nil(t, c.At(0))
		assert.Nil(t, c.At(2))
		assert.NotSame(t, a.At(1), c.At(1))
		assert.Equal(t, 1, c.At(1).id)

		a.Set(0, &conn{id: 5, closed: &closed})
		assert.Empty(t, closed)

		a.Release()
		assert.Equal(t, []int{5, 1}, closed)
		c.Release()
		assert.Equal(t, []int{5, 1, 1}, closed)
	})

	t.Run("drop func still sees nil slots", func(t *testing.T) {
		var closed []int
		var seen int
		a := heaparray.New[*conn](nil, 2, heaparray.WithDropFunc(func(*conn) { seen++ }))

		a.Set(1, &conn{id: 7, closed: &closed})
		assert.Equal(t, 1, seen)
		assert.Empty(t, closed)

		a.Release()
		assert.Equal(t, 3, seen)
		assert.Equal(t, []int{7}, closed)
	})

	t.Run("abandoned iterator", func(t *testing.T) {
		var closed []int
		it := heaparray.FromSlice([]*conn{{id: 1, closed: &closed}, nil, {id: 3, closed: &closed}}).IntoIter()
		v, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, 1, v.id)

		assert.NotPanics(t, it.Close)
		assert.Equal(t, []int{3}, closed)
	})
}

func BenchmarkArray_New(b *testing.B) {
	for i := 0; i < b.N; i++ {
		heaparray.New(i, 1024)
	}
}

func BenchmarkArray_At(b *testing.B) {
	a := heaparray.New(1, 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.At(i & 1023)
	}
}
