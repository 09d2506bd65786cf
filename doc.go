// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shmq provides a wait-free single-producer/single-consumer
// byte ring buffer backed by shared memory.
//
// The ring's data region is mapped twice, back to back, so any span up
// to the ring's capacity reads or writes as a single contiguous slice
// even when it straddles the wrap point. Two flavors share the same
// protocol:
//
//   - Named shared: lives under a system-global name in /dev/shm and can
//     be opened independently by any cooperating process.
//   - Private: anonymous and bound to the lifetime of its creating
//     process; useful for inter-thread or parent/child IPC without
//     polluting the shared-memory namespace.
//
// # Quick Start
//
// Producer process:
//
//	b := shmq.NewShared("/orders", 1<<20)
//	q, err := b.Get()
//	defer b.Close()
//
//	buf, err := q.Alloc(len(payload))
//	if shmq.IsWouldBlock(err) {
//	    // consumer hasn't drained enough space yet
//	}
//	copy(buf, payload)
//	q.Commit(len(payload))
//
// Consumer process, started independently:
//
//	b := shmq.OpenShared("/orders")
//	q, err := b.GetContext(ctx) // retries until the producer publishes
//	defer b.Close()
//
//	data, err := q.Peek()
//	if shmq.IsWouldBlock(err) {
//	    // nothing to read yet
//	}
//	process(data)
//	q.Pop(len(data))
//
// # Creator/Opener Race
//
// A named queue's capacity is published last, with release ordering, by
// its creator. An opener that arrives first sees ErrNotFound (the name
// does not exist yet) or ErrNotYetInitialized. GetContext retries with exponential backoff until the context is
// cancelled or the capacity becomes visible; Get is GetContext with a
// context that never cancels, so a misconfigured opener with no
// matching creator blocks forever rather than failing fast — prefer
// GetContext with a bounded context outside of tests.
//
// # Private Queues
//
//	b := shmq.NewPrivate(64 << 10)
//	q, _ := b.Get()
//	defer b.Close()
//
// A private queue's backing name is generated, created, mapped, and
// unlinked before Get returns, so two Builder values never collide on
// its name and nothing under it outlives the mapping.
//
// # Typed Values
//
// PushValue and PeekValue move a single trivially-copyable value in or
// out of the ring without an intermediate []byte:
//
//	type Tick struct{ Seq uint64; Price float64 }
//
//	err := shmq.PushValue(q, &Tick{Seq: 1, Price: 101.5})
//	tick, err := shmq.PeekValue[Tick](q)
//	q.Pop(int(unsafe.Sizeof(Tick{})))
//
// # Metadata
//
// Every queue carries a small fixed-size metadata region alongside its
// control block, for whatever small amount of out-of-band state the
// caller's protocol needs (schema version, producer identity, and
// similar). It is opaque to this package: WithMetadataInit supplies a
// callback that runs once, during creation, before capacity is
// published, and Queue.Metadata returns the live region for later reads
// and writes. This package does not interpret or synchronize its
// contents beyond that initial happens-before guarantee.
//
// # Error Handling
//
// Alloc and Peek return ErrWouldBlock when the ring is full or empty,
// respectively. This error is sourced from [code.hybscloud.com/iox] for
// ecosystem consistency.
//
//	buf, err := q.Alloc(n)
//	if shmq.IsWouldBlock(err) {
//	    // back off and retry
//	}
//
// IsRetryable additionally covers the creator/opener race's
// ErrNotYetInitialized, for callers implementing their own polling loop
// instead of going through GetContext.
//
// # Thread Safety
//
// Exactly one goroutine may call Alloc/Commit/Push on a Queue and
// exactly one goroutine may call Peek/Pop, and they may be different
// goroutines in different processes entirely. Calling Alloc from two
// goroutines concurrently, or Peek from two goroutines concurrently, is
// undefined behavior. A Queue has no notion of multiple producers or
// consumers; that is out of scope for this package.
//
// # Platform Support
//
// The double mapping this package relies on is implemented for
// linux/amd64 and linux/arm64. Other platform/architecture combinations
// build successfully but every operation that would touch shared memory
// returns ErrUnsupportedPlatform.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, [code.hybscloud.com/spin] for CPU pause instructions,
// [golang.org/x/sys/unix] for the mmap/shm_open family of syscalls,
// [github.com/cenkalti/backoff/v5] for the creator/opener retry loop,
// and [go.uber.org/zap] for structured logging of mapping-engine and
// lifecycle events.
package shmq
