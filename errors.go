// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates a ring operation cannot proceed immediately:
// Alloc found insufficient space, or Peek found the queue empty.
//
// ErrWouldBlock is a control flow signal, not a failure. This is an alias
// for [iox.ErrWouldBlock] for ecosystem consistency with the rest of the
// hybscloud queue family.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrNotYetInitialized is returned by Open when the creator of a named
// backing object has not yet published its capacity. It is retryable:
// callers should poll, ideally with backoff (see Builder.GetContext).
var ErrNotYetInitialized = errors.New("shmq: backing object not yet initialized")

// ErrNameConflict is returned by Create when a backing object under the
// requested name already exists and could not be replaced.
var ErrNameConflict = errors.New("shmq: name already exists")

// ErrNotFound is returned by Open when no backing object exists under
// the requested name. Deleting a missing name is not an error.
var ErrNotFound = errors.New("shmq: name not found")

// ErrPermissionDenied is returned when the calling process lacks the
// permissions required to create, open, or unlink a backing object.
var ErrPermissionDenied = errors.New("shmq: permission denied")

// ErrUnsupportedPlatform is returned by the mapping engine on platforms
// this module does not implement the double-mapping trick for.
var ErrUnsupportedPlatform = errors.New("shmq: shared-memory mapping not supported on this platform")

// MappingError wraps a failure from the mapping engine (create, resize,
// map, or unmap) together with the underlying system error.
type MappingError struct {
	Op   string // "create", "open", "resize", "map", "unmap", "unlink"
	Name string
	Err  error
}

func (e *MappingError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("shmq: %s %q: %s", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("shmq: %s: %s", e.Op, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

func newMappingError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &MappingError{Op: op, Name: name, Err: err}
}

// IsWouldBlock reports whether err indicates the operation would block
// (queue full on Alloc, queue empty on Peek). Delegates to
// [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsRetryable reports whether err signals a condition a caller should
// retry, such as [ErrNotYetInitialized] while waiting for a named
// object's creator to publish its capacity, or [ErrWouldBlock].
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNotYetInitialized) || iox.IsWouldBlock(err)
}

// IsNotFound reports whether err indicates the named backing object does
// not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
