// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import "unsafe"

// Queue is a wait-free single-producer single-consumer byte ring backed
// by a shared-memory mapping. At most one goroutine (in this process or
// another) may call the producer primitives (Alloc, Commit, Push); at
// most one may call the consumer primitives (Peek, Pop). Capacity,
// Available, Space, Empty, and Metadata are safe from either side.
//
// A Queue holds no knowledge of how its mapping was created: it only
// manipulates the control block and the contiguous data region the
// mapping engine (layout.go, mapping_linux.go) arranged for it. Obtain
// one through a Builder, never by constructing Queue directly.
type Queue struct {
	cb       *controlBlock
	data     []byte // double-mapped view, length 2*capacity
	capacity uint64
}

// newQueue wraps a mapped control block and its double-mapped data
// region. capacity must already be published on cb.
func newQueue(cb *controlBlock, data []byte, capacity uint64) *Queue {
	return &Queue{cb: cb, data: data, capacity: capacity}
}

// Capacity returns the byte length of the data region. Immutable for the
// lifetime of the Queue.
func (q *Queue) Capacity() int {
	return int(q.capacity)
}

// Metadata returns the opaque metadata region reserved inside the
// control block. It is written once by the create-time initializer and
// is conventionally read-only to every subsequent caller, producer and
// consumer alike.
func (q *Queue) Metadata() []byte {
	return q.cb.metadataBytes()
}

// Empty reports whether the queue currently holds no bytes. Safe for
// either the producer or the consumer to call.
func (q *Queue) Empty() bool {
	return q.cb.rpos.LoadRelaxed() == q.cb.wpos.LoadRelaxed()
}

// Available returns the number of bytes currently readable. Always
// strictly less than Capacity.
func (q *Queue) Available() int {
	return int(q.available())
}

func (q *Queue) available() uint64 {
	r := q.cb.rpos.LoadRelaxed()
	w := q.cb.wpos.LoadRelaxed()
	if w >= r {
		return w - r
	}
	return q.capacity + w - r
}

// Space returns the number of bytes currently writable. One byte of
// capacity is permanently reserved to disambiguate empty from full, so
// Space is always Capacity-1-Available.
func (q *Queue) Space() int {
	return int(q.capacity) - 1 - q.Available()
}

// Peek returns a contiguous view of every currently readable byte,
// without consuming them. The returned slice is valid until the next
// call to Pop. It returns ErrWouldBlock if the queue is empty.
//
// Consumer-only.
func (q *Queue) Peek() ([]byte, error) {
	r := q.cb.rpos.LoadRelaxed()
	var w uint64
	if q.cb.sync.LoadRelaxed() {
		// Acquire pairs with Commit's release store: every byte the
		// producer wrote between its Alloc and this Commit is visible
		// past this point.
		w = q.cb.wpos.LoadAcquire()
	} else {
		w = q.cb.wpos.LoadRelaxed()
	}
	if r == w {
		return nil, ErrWouldBlock
	}
	var avail uint64
	if w >= r {
		avail = w - r
	} else {
		avail = q.capacity + w - r
	}
	// Contiguous even when [r, r+avail) crosses the logical wrap point:
	// the mapping engine mapped the data region twice back-to-back.
	return q.data[r : r+avail], nil
}

// Pop advances the read index past n bytes previously returned by Peek.
// n must satisfy 0 < n <= Available(); violating this is a caller error.
//
// Consumer-only. The consumer is the sole writer of the read index, so
// no read-modify-write is needed — a relaxed store is sufficient for the
// producer to eventually observe the freed space.
func (q *Queue) Pop(n int) {
	if n <= 0 {
		panic("shmq: Pop requires n > 0")
	}
	r := q.cb.rpos.LoadRelaxed()
	next := (r + uint64(n)) % q.capacity
	q.cb.rpos.StoreRelaxed(next)
}

// Alloc reserves n contiguous bytes for the producer to write into and
// returns a view over them. The caller must follow with Commit(n) using
// the same n once it has finished writing. It returns ErrWouldBlock if
// n exceeds Space(). n must satisfy 0 < n < Capacity(); violating this
// is a caller error.
//
// Producer-only. The returned span is never split across the wrap point.
func (q *Queue) Alloc(n int) ([]byte, error) {
	if n <= 0 {
		panic("shmq: Alloc requires n > 0")
	}
	if uint64(n) >= q.capacity {
		panic("shmq: Alloc requires n < Capacity (one slot is always reserved)")
	}
	if n > q.Space() {
		return nil, ErrWouldBlock
	}
	w := q.cb.wpos.LoadRelaxed()
	return q.data[w : w+uint64(n)], nil
}

// Commit publishes n bytes previously written into the span Alloc
// returned. n must be the exact length passed to the matching Alloc.
//
// Producer-only.
func (q *Queue) Commit(n int) {
	if n <= 0 {
		panic("shmq: Commit requires n > 0")
	}
	w := q.cb.wpos.LoadRelaxed()
	next := (w + uint64(n)) % q.capacity
	if q.cb.sync.LoadRelaxed() {
		q.cb.wpos.StoreRelease(next)
	} else {
		q.cb.wpos.StoreRelaxed(next)
	}
}

// Push is a convenience wrapper around Alloc, a bulk copy, and Commit.
// It returns ErrWouldBlock without writing anything if src does not fit.
//
// Producer-only.
func (q *Queue) Push(src []byte) error {
	n := len(src)
	if n == 0 {
		panic("shmq: Push requires a non-empty src")
	}
	dst, err := q.Alloc(n)
	if err != nil {
		return err
	}
	copy(dst, src)
	q.Commit(n)
	return nil
}

// PushValue copies a trivially copyable value into the queue as raw
// bytes. T must not contain pointers, slices, maps, channels, interfaces,
// or anything else the garbage collector tracks — the queue's backing
// storage may be shared memory outside the Go heap and moves bytes, not
// object state.
//
// Producer-only.
func PushValue[T any](q *Queue, v *T) error {
	return q.Push(unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v)))
}

// PeekValue reinterprets the first sizeof(T) readable bytes as a T,
// copying them out. It returns ErrWouldBlock if fewer than sizeof(T)
// bytes are available. See PushValue for T's constraints.
//
// Consumer-only.
func PeekValue[T any](q *Queue) (T, error) {
	var v T
	size := int(unsafe.Sizeof(v))
	b, err := q.Peek()
	if err != nil {
		return v, err
	}
	if len(b) < size {
		return v, ErrWouldBlock
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), size), b[:size])
	return v, nil
}
