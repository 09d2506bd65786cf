// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux && (amd64 || arm64)

package shmq

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// platformSupported is true wherever this file's build constraint is
// satisfied; see mapping_other.go for the fallback.
const platformSupported = true

// mapping is a live backing object: the fd, the full virtual range
// covering the control-block prefix plus both copies of the data
// region, and the Queue view over it.
type mapping struct {
	file     *os.File
	base     []byte // length footprint(capacity)+capacity == prefix+2*capacity
	capacity int
	queue    *Queue
}

// shmPath maps a queue name to a path under /dev/shm, the Linux tmpfs
// mount conventionally used for POSIX-style shared memory objects.
func shmPath(name string) string {
	return filepath.Join("/dev/shm", strings.TrimPrefix(name, "/"))
}

// canGetBacking reports whether a backing object exists under name,
// without mapping it.
func canGetBacking(name string) bool {
	_, err := os.Stat(shmPath(name))
	return err == nil
}

// deleteBacking unlinks a backing object. Missing is not an error.
func deleteBacking(name string) error {
	err := unix.Unlink(shmPath(name))
	if err == nil || err == unix.ENOENT {
		return nil
	}
	return newMappingError("unlink", name, translateErrno(err))
}

// createBacking allocates, sizes, and initializes a new named backing
// object: unlink-if-present, create exclusively, resize, map, run the
// metadata initializer, publish capacity last, then unmap and close.
// The caller opens its own mapping afterward via openBacking, the same
// path any other process uses.
func createBacking(name string, capacity int, sync bool, mdInit func([]byte), log *zap.Logger) error {
	if !platformSupported {
		return newMappingError("create", name, ErrUnsupportedPlatform)
	}
	path := shmPath(name)

	if err := unix.Unlink(path); err != nil && err != unix.ENOENT {
		return newMappingError("create", name, translateErrno(err))
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0600)
	if err != nil {
		return newMappingError("create", name, translateErrno(err))
	}
	defer unix.Close(fd)

	total := footprint(capacity)
	if err := unix.Ftruncate(fd, int64(total)); err != nil {
		unix.Unlink(path)
		return newMappingError("resize", name, translateErrno(err))
	}

	data, err := unix.Mmap(fd, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Unlink(path)
		return newMappingError("map", name, translateErrno(err))
	}
	defer unix.Munmap(data)

	cb := controlBlockAt(data)
	if mdInit != nil {
		mdInit(cb.metadataBytes())
	}
	cb.sync.StoreRelaxed(sync)
	// Publish last, with release ordering: until this store is visible,
	// any opener reads capacity == 0 and must treat the object as not
	// yet initialized.
	cb.capacity.StoreRelease(uint64(capacity))

	log.Debug("shmq: created backing object",
		zap.String("name", name), zap.Int("capacity", capacity), zap.Bool("sync", sync))
	return nil
}

// openBacking opens an existing backing object and performs the
// double-mapping: a first mapping over the control-block prefix plus
// both copies of the data region (reserving the virtual address range),
// then an overlay mapping of the second data copy at a fixed address
// immediately after the first, backed by the same bytes. Returns
// ErrNotYetInitialized if the creator has not yet published capacity.
func openBacking(name string, log *zap.Logger) (*mapping, error) {
	if !platformSupported {
		return nil, newMappingError("open", name, ErrUnsupportedPlatform)
	}
	path := shmPath(name)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, newMappingError("open", name, translateErrno(err))
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, newMappingError("open", name, translateErrno(err))
	}
	if st.Size < int64(footprint(0)) {
		unix.Close(fd)
		return nil, ErrNotYetInitialized
	}

	probe, err := unix.Mmap(fd, 0, footprint(0), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, newMappingError("map", name, translateErrno(err))
	}
	capVal := controlBlockAt(probe).capacity.LoadAcquire()
	unix.Munmap(probe)

	if capVal == 0 {
		unix.Close(fd)
		return nil, ErrNotYetInitialized
	}

	capacity := int(capVal)
	prefix := controlPrefixSize(capacity)
	total := footprint(capacity) + capacity // prefix + 2*capacity

	// First mapping reserves the full virtual range at a kernel-chosen
	// address. Its tail C bytes lie past the backing object's real
	// extent (prefix+capacity) and must not be touched until the
	// overlay mapping below replaces them — this is the "magic ring
	// buffer" trick: two virtual addresses backed by the same physical
	// page, so a span that wraps past the end of the data region reads
	// and writes contiguously instead of needing a split.
	base, err := unix.Mmap(fd, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, newMappingError("map", name, translateErrno(err))
	}

	overlayAddr := uintptr(unsafe.Pointer(unsafe.SliceData(base))) + uintptr(prefix+capacity)
	if err := mmapFixed(overlayAddr, capacity, fd, int64(prefix)); err != nil {
		unix.Munmap(base)
		unix.Close(fd)
		return nil, newMappingError("map", name, translateErrno(err))
	}

	cb := controlBlockAt(base)
	dataRegion := base[prefix : prefix+2*capacity]
	q := newQueue(cb, dataRegion, uint64(capacity))

	log.Debug("shmq: opened backing object",
		zap.String("name", name), zap.Int("capacity", capacity))

	return &mapping{
		file:     os.NewFile(uintptr(fd), path),
		base:     base,
		capacity: capacity,
		queue:    q,
	}, nil
}

// unmap tears down a mapping's virtual memory and closes its file
// descriptor. The overlay mapping is subsumed by this call because it
// lies inside the same contiguous virtual range as the first mapping.
func (m *mapping) unmap() error {
	if err := unix.Munmap(m.base); err != nil {
		return newMappingError("unmap", "", translateErrno(err))
	}
	return m.file.Close()
}

// mmapFixed overlays length bytes of fd at the given offset onto addr,
// replacing whatever mapping (if any) already covers that range. This is
// the one piece of the mapping engine that [golang.org/x/sys/unix]'s
// high-level Mmap wrapper cannot express, because it never exposes the
// target address argument real mmap(2) takes; reaching the raw syscall
// is unavoidable for the double-mapping trick.
func mmapFixed(addr uintptr, length int, fd int, offset int64) error {
	ret, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		uintptr(length),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_FIXED,
		uintptr(fd),
		uintptr(offset),
	)
	if errno != 0 {
		return errno
	}
	if ret != addr {
		unix.Syscall(unix.SYS_MUNMAP, ret, uintptr(length), 0)
		return fmt.Errorf("shmq: kernel placed overlay mapping at %#x, wanted %#x", ret, addr)
	}
	return nil
}

func translateErrno(err error) error {
	switch err {
	case unix.ENOENT:
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	case unix.EEXIST:
		return fmt.Errorf("%w: %s", ErrNameConflict, err)
	case unix.EACCES, unix.EPERM:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
	default:
		return err
	}
}
