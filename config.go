// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCapacity converts capacity strings like "64KB", "10MB" into a
// byte count suitable for NewShared/NewPrivate. Supports case-insensitive
// single- and two-letter units (K/KB, M/MB, G/GB) and plain byte counts.
func ParseCapacity(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("shmq: empty capacity string")
	}

	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return intFromInt64(val)
	}

	upper := strings.ToUpper(s)

	var multiplier int64
	var numStr string
	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier, numStr = 1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "MB"):
		multiplier, numStr = 1024*1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "GB"):
		multiplier, numStr = 1024*1024*1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "K"):
		multiplier, numStr = 1024, upper[:len(upper)-1]
	case strings.HasSuffix(upper, "M"):
		multiplier, numStr = 1024*1024, upper[:len(upper)-1]
	case strings.HasSuffix(upper, "G"):
		multiplier, numStr = 1024*1024*1024, upper[:len(upper)-1]
	default:
		return 0, fmt.Errorf("shmq: unknown capacity suffix in %q (supported: K/KB, M/MB, G/GB)", s)
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("shmq: invalid capacity number in %q: %w", s, err)
	}

	result := val * multiplier
	if result < 0 || result/multiplier != val {
		return 0, fmt.Errorf("shmq: capacity %q overflows", s)
	}
	return intFromInt64(result)
}

func intFromInt64(v int64) (int, error) {
	if v < 0 || int64(int(v)) != v {
		return 0, fmt.Errorf("shmq: capacity %d out of range", v)
	}
	return int(v), nil
}
