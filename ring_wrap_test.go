// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"
)

// pushMirrored is Push followed by writing each pushed byte to both its
// slot and that slot's twin one capacity further on, standing in for the
// double mapping newTestQueue's heap slice does not have.
func pushMirrored(q *Queue, chunk []byte) error {
	w := q.cb.wpos.LoadRelaxed()
	if err := q.Push(chunk); err != nil {
		return err
	}
	for i, c := range chunk {
		j := (w + uint64(i)) % q.capacity
		q.data[j] = c
		q.data[j+q.capacity] = c
	}
	return nil
}

// TestQueueWrapAroundSingleThread drives enough bytes through a small
// queue that rpos/wpos wrap past the end of the data region many times
// over, verifying Peek never returns a slice that straddles the wrap
// point incorrectly (the double mapping is what makes this safe; here
// pushMirrored emulates it over the heap slice).
func TestQueueWrapAroundSingleThread(t *testing.T) {
	q := newTestQueue(t, 32, true)

	var produced, consumed bytes.Buffer
	src := rand.New(rand.NewSource(1))

	for i := 0; i < 100_000; i++ {
		n := 1 + src.Intn(q.Capacity()-1)
		chunk := make([]byte, n)
		src.Read(chunk)

		for {
			if err := pushMirrored(q, chunk); err == nil {
				break
			}
			data, err := q.Peek()
			if err != nil {
				t.Fatalf("iteration %d: Peek while waiting for space: %v", i, err)
			}
			consumed.Write(data)
			q.Pop(len(data))
		}
		produced.Write(chunk)
	}

	for !q.Empty() {
		data, err := q.Peek()
		if err != nil {
			t.Fatalf("drain: Peek: %v", err)
		}
		consumed.Write(data)
		q.Pop(len(data))
	}

	if !bytes.Equal(produced.Bytes(), consumed.Bytes()) {
		t.Fatalf("wrap-around stress: consumed stream diverged from produced stream")
	}
}

// TestQueueWrapAroundGoroutines runs the producer and consumer on
// separate goroutines, the access pattern this package's wait-free
// guarantees are meant for. It is skipped under -race (see RaceEnabled).
func TestQueueWrapAroundGoroutines(t *testing.T) {
	if RaceEnabled {
		t.Skip("race detector cannot see the acquire/release edge between rpos and wpos")
	}

	const messages = 200_000
	q := newTestQueue(t, 256, true)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < messages; i++ {
			msg := []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24)}
			for q.Push(msg) != nil {
				// full, spin until the consumer drains
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < messages; i++ {
			var data []byte
			var err error
			for {
				data, err = q.Peek()
				if err == nil && len(data) >= 4 {
					break
				}
			}
			got := int(data[0]) | int(data[1])<<8 | int(data[2])<<16 | int(data[3])<<24
			if got != i {
				t.Errorf("message %d: got %d", i, got)
			}
			q.Pop(4)
		}
	}()

	wg.Wait()
}
