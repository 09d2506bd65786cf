// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// CanGet reports whether a named backing object currently exists,
// without mapping it. A true result can go stale immediately if another
// process deletes the name; it is a hint, not a guarantee.
func CanGet(name string) bool {
	return canGetBacking(name)
}

// DeleteShared unlinks a named backing object from the shared-memory
// namespace. Existing mappings remain valid for processes that already
// opened them until those processes unmap. Deleting a name that does not
// exist is not an error.
func DeleteShared(name string) error {
	return deleteBacking(name)
}

// openSharedRetry polls openBacking with exponential backoff until it
// succeeds, the context is cancelled, or a non-retryable error occurs.
// This is the caller-side half of the creator/opener race: the creator
// publishes capacity last, so an opener that arrives first sees
// ErrNotFound (no name yet) or ErrNotYetInitialized and must retry.
func openSharedRetry(ctx context.Context, name string, log *zap.Logger) (*mapping, error) {
	runBackoff := backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         200 * time.Millisecond,
	}
	runBackoff.Reset()

	for {
		m, err := openBacking(name, log)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrNotYetInitialized) && !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		log.Debug("shmq: backing object not yet initialized, retrying", zap.String("name", name))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(runBackoff.NextBackOff()):
		}
	}
}
