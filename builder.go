// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"context"
	"errors"
	"sync"

	"code.hybscloud.com/spin"
	"go.uber.org/zap"
)

// intent selects which of the three construction paths a Builder
// resolves on first realization.
type intent int

const (
	intentCreateShared intent = iota
	intentOpenShared
	intentCreatePrivate
)

// Option configures a Builder. Apply with NewShared, OpenShared, or
// NewPrivate.
type Option func(*Builder)

// WithSync selects the memory-ordering regime: true (the default) uses
// release/acquire ordering on commit/peek; false drops to relaxed and
// requires the caller to establish happens-before by some external
// means.
func WithSync(sync bool) Option {
	return func(b *Builder) { b.sync = sync }
}

// WithMetadataInit registers a callback that runs exactly once, during
// Create, with the control block's metadata region. It is invoked before
// capacity is published, so no opener can observe a partially
// initialized metadata region. Only meaningful for the create-shared and
// create-private intents; ignored for open-shared.
func WithMetadataInit(f func(metadata []byte)) Option {
	return func(b *Builder) { b.mdInit = f }
}

// WithLogger attaches a structured logger for mapping-engine and
// lifecycle events (create, open, retry, teardown). The ring protocol
// itself never logs. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// Builder lazily materializes a Queue according to one of three
// intents, chosen by which constructor produced it:
//
//   - NewShared(name, capacity)  → create a new shared queue on first use
//   - OpenShared(name)           → open an existing shared queue
//   - NewPrivate(capacity)       → create a new private (anonymous) queue
//
// A Builder value may be freely copied before its first Get/GetContext
// call; every field, including sync, copies with it. After realization,
// copying a Builder shares its underlying mapping; only the original's
// Close should be called.
type Builder struct {
	intent   intent
	name     string
	capacity int
	sync     bool
	mdInit   func([]byte)
	log      *zap.Logger

	mu       sync.Mutex
	realized bool
	ownsName bool
	queue    *Queue
	m        *mapping
	err      error
}

// NewShared builds a Builder that creates a new named shared queue of
// the given capacity on first Get/GetContext call.
func NewShared(name string, capacity int, opts ...Option) *Builder {
	if capacity < 2 {
		panic("shmq: capacity must be >= 2")
	}
	b := &Builder{intent: intentCreateShared, name: name, capacity: capacity, sync: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewSharedSize is NewShared with capacity given as a human-readable
// size string ("64KB", "10MB"; see ParseCapacity).
func NewSharedSize(name, size string, opts ...Option) (*Builder, error) {
	capacity, err := ParseCapacity(size)
	if err != nil {
		return nil, err
	}
	return NewShared(name, capacity, opts...), nil
}

// OpenShared builds a Builder that opens an existing named shared queue
// on first Get/GetContext call.
func OpenShared(name string, opts ...Option) *Builder {
	b := &Builder{intent: intentOpenShared, name: name, sync: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewPrivate builds a Builder that creates a new private (anonymous)
// queue of the given capacity on first Get/GetContext call. Its backing
// name is generated and unlinked by the creator immediately after
// mapping; Close only needs to unmap.
func NewPrivate(capacity int, opts ...Option) *Builder {
	if capacity < 2 {
		panic("shmq: capacity must be >= 2")
	}
	b := &Builder{intent: intentCreatePrivate, capacity: capacity, sync: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewPrivateSize is NewPrivate with capacity given as a human-readable
// size string.
func NewPrivateSize(size string, opts ...Option) (*Builder, error) {
	capacity, err := ParseCapacity(size)
	if err != nil {
		return nil, err
	}
	return NewPrivate(capacity, opts...), nil
}

// Realized reports whether Get/GetContext has already materialized (or
// attempted to materialize) this Builder's queue.
func (b *Builder) Realized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realized
}

// CanGet reports whether a realization attempt would currently succeed,
// without any side effect. For open-shared this means the named backing
// object currently exists; create-shared and create-private have no
// external precondition to check and always report true.
func (b *Builder) CanGet() bool {
	if b.intent == intentOpenShared {
		return CanGet(b.name)
	}
	return true
}

// Get realizes the Builder if it has not been already, returning the
// live Queue. Subsequent calls return the same Queue and error without
// repeating any system call.
func (b *Builder) Get() (*Queue, error) {
	return b.GetContext(context.Background())
}

// GetContext is Get with a context bounding the create-shared and
// open-shared intents' retry loop against a name that does not exist yet
// or a creator that has not yet published its capacity. Ignored once
// realization has already occurred.
func (b *Builder) GetContext(ctx context.Context) (*Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.realized {
		return b.queue, b.err
	}
	b.realized = true

	switch b.intent {
	case intentCreateShared:
		b.queue, b.m, b.err = b.realizeCreateShared(ctx)
	case intentOpenShared:
		b.queue, b.m, b.err = b.realizeOpenShared(ctx)
	case intentCreatePrivate:
		b.queue, b.m, b.err = b.realizeCreatePrivate(ctx)
	}
	return b.queue, b.err
}

func (b *Builder) realizeCreateShared(ctx context.Context) (*Queue, *mapping, error) {
	if err := createBacking(b.name, b.capacity, b.sync, b.mdInit, b.log); err != nil {
		return nil, nil, err
	}
	b.ownsName = true

	// The creator maps its own queue through the exact same open path
	// any other process uses; capacity is already published by the time
	// this call is reached, so it should succeed on its first attempt,
	// but the retry loop is reused for safety.
	m, err := openSharedRetry(ctx, b.name, b.log)
	if err != nil {
		return nil, nil, err
	}
	return m.queue, m, nil
}

func (b *Builder) realizeOpenShared(ctx context.Context) (*Queue, *mapping, error) {
	m, err := openSharedRetry(ctx, b.name, b.log)
	if err != nil {
		return nil, nil, err
	}
	return m.queue, m, nil
}

func (b *Builder) realizeCreatePrivate(ctx context.Context) (*Queue, *mapping, error) {
	// Names are pid+counter so a collision should never happen, and
	// createBacking already unlinks a stale object left under the same
	// name. ErrNameConflict can only arise if something recreates the name
	// between that unlink and the exclusive create; spin a handful of
	// times with a fresh name rather than failing outright.
	var name string
	sw := spin.Wait{}
	for attempt := 0; ; attempt++ {
		name = generatePrivateName()
		err := createBacking(name, b.capacity, b.sync, b.mdInit, b.log)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrNameConflict) || attempt >= 7 {
			return nil, nil, err
		}
		sw.Once()
	}

	// Same process just published capacity; no race to poll for.
	m, err := openBacking(name, b.log)
	if err != nil {
		if dErr := deleteBacking(name); dErr != nil {
			b.log.Warn("shmq: failed to unlink private backing after failed open",
				zap.String("name", name), zap.Error(dErr))
		}
		return nil, nil, err
	}

	// Unlink immediately: the mapping keeps the pages alive, so this is
	// the only reference to the name from here on.
	if err := deleteBacking(name); err != nil {
		b.log.Warn("shmq: failed to unlink private backing name",
			zap.String("name", name), zap.Error(err))
	}
	return m.queue, m, nil
}

// Close tears down the Builder's mapping, if realized, and unlinks its
// backing name if this Builder created a named shared queue. Mappings
// are unmapped unconditionally; only the creator of a named queue also
// unlinks the name. Safe to call on an unrealized or already-closed
// Builder.
func (b *Builder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.m != nil {
		err = b.m.unmap()
	}
	if b.ownsName {
		if dErr := deleteBacking(b.name); dErr != nil && err == nil {
			err = dErr
		}
		b.ownsName = false
	}
	b.m = nil
	return err
}
