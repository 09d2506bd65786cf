// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"fmt"
	"os"

	"code.hybscloud.com/atomix"
)

// privateCounter is a process-wide monotonic counter combined with the
// process id to generate unique private-queue names. Only uniqueness is
// required, not ordering between goroutines racing to create private
// queues concurrently, so a relaxed fetch-and-add would do just as well.
var privateCounter atomix.Uint64

// generatePrivateName returns a name unique to this process: a leading
// slash, a stable prefix, the process id, and a monotonic counter.
func generatePrivateName() string {
	// AddAcqRel is stronger than this counter needs (only uniqueness,
	// not ordering, matters here) but it is the only fetch-and-add
	// atomix exposes; see code.hybscloud.com/atomix's Uint64.
	n := privateCounter.AddAcqRel(1)
	return fmt.Sprintf("/shmq.%d.%d", os.Getpid(), n)
}
