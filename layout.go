// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import "os"

// pageSize is the host's page granularity, used to page-align the
// control-block prefix so the data region starts on a page boundary.
var pageSize = os.Getpagesize()

// controlPrefixSize returns the number of bytes the mapping engine
// reserves for the control block ahead of a data region of the given
// capacity. It is always a multiple of the page size and always large
// enough to hold controlBlockSize bytes (the page size comfortably
// exceeds that on every platform this module targets).
func controlPrefixSize(capacity int) int {
	if capacity == 0 {
		return pageSize
	}
	prefix := pageSize + ceilDiv(capacity-1, pageSize)*pageSize
	if prefix < pageSize {
		prefix = pageSize
	}
	return prefix
}

// footprint returns the total number of bytes the backing object must
// hold for a queue of the given capacity: the control-block prefix plus
// one copy of the data region. Used to size the backing object at create
// time; the first (non-overlay) mapping at open time covers footprint
// plus one more capacity, room for both copies of the data region.
func footprint(capacity int) int {
	if capacity == 0 {
		return pageSize
	}
	return controlPrefixSize(capacity) + capacity
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
