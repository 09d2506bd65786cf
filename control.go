// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// cacheLineSize is LEVEL1_DCACHE_LINESIZE's assumed value. Each control
// block index lives on its own cache line so producer and consumer never
// false-share a line.
const cacheLineSize = 64

// metadataSize is the fixed size of the opaque metadata region reserved
// inside every control block: large enough for small caller headers
// while keeping the footprint calculation in layout.go a constant.
const metadataSize = 256

// pad is cache-line padding placed between control block fields to
// prevent false sharing.
type pad [cacheLineSize]byte

// controlBlock is the fixed-layout header mapped at the start of every
// queue's backing object. This is the canonical ABI this module commits
// to: a struct field, not a padded union, carries sync.
//
// beginning anchors the struct's address; the data region starts at
// beginning's address plus the page-aligned control prefix computed by
// controlPrefixSize in layout.go.
type controlBlock struct {
	beginning pad
	rpos      atomix.Uint64 // consumer-owned read index, bytes into the data region
	_         pad
	wpos      atomix.Uint64 // producer-owned write index, bytes into the data region
	_         pad
	capacity  atomix.Uint64 // immutable once published; 0 means not yet initialized
	_         pad
	sync      atomix.Bool // true: producer commits/consumer peeks use release/acquire ordering
	_         pad
	metadata  [metadataSize]byte // opaque, caller-owned, written once at create before capacity is published
}

// controlBlockSize is the in-memory size of controlBlock, used by the
// mapping engine to size the control-block prefix.
const controlBlockSize = unsafe.Sizeof(controlBlock{})

// controlBlockAt reinterprets the first controlBlockSize bytes of a
// mapped region as a *controlBlock. base must be at least
// controlBlockSize bytes and must outlive the returned pointer.
func controlBlockAt(base []byte) *controlBlock {
	if len(base) < int(controlBlockSize) {
		panic("shmq: mapping too small for control block")
	}
	return (*controlBlock)(unsafe.Pointer(unsafe.SliceData(base)))
}

// metadataBytes returns a slice view over the control block's opaque
// metadata region.
func (cb *controlBlock) metadataBytes() []byte {
	return cb.metadata[:]
}
