// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux && (amd64 || arm64)

package shmq_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/shmq"
)

// TestHelperProcess is not a real test. It is re-invoked via exec.Command
// by the tests below, the same helper-process pattern os/exec's own
// tests use to exercise real process boundaries instead of goroutines.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SHMQ_HELPER_PROCESS") != "1" {
		t.Skip("not invoked as a helper process")
	}

	name := os.Getenv("SHMQ_HELPER_NAME")
	b := shmq.OpenShared(name)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q, err := b.GetContext(ctx)
	if err != nil {
		fmt.Println("open error:", err)
		return
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := q.Peek()
		if err == nil {
			fmt.Print(string(data))
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	fmt.Println("peek timed out")
}

func runHelperProcess(t *testing.T, name string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "-test.v")
	cmd.Env = append(os.Environ(), "SHMQ_HELPER_PROCESS=1", "SHMQ_HELPER_NAME="+name)
	return cmd
}

// TestTwoProcessOpenerSeesData starts a producer in this process, writes
// a payload, then spawns a subprocess that opens the same named queue
// purely by name and reads it back.
func TestTwoProcessOpenerSeesData(t *testing.T) {
	name := fmt.Sprintf("/shmq-test-2p-ready-%d", os.Getpid())
	b := shmq.NewShared(name, 4096)
	defer b.Close()

	q, err := b.Get()
	require.NoError(t, err)
	require.NoError(t, q.Push([]byte("cross-process-payload")))

	out, err := runHelperProcess(t, name).CombinedOutput()
	require.NoError(t, err, "helper output:\n%s", out)
	assert.Contains(t, string(out), "cross-process-payload")
}

// TestTwoProcessOpenerWaitsForCreator starts the opener subprocess first,
// against a name nothing has created yet, then creates the shared queue
// in this process after a short delay. This exercises the
// ErrNotYetInitialized retry loop (Builder.GetContext) across a real
// process boundary rather than within one address space.
func TestTwoProcessOpenerWaitsForCreator(t *testing.T) {
	name := fmt.Sprintf("/shmq-test-2p-wait-%d", os.Getpid())

	cmd := runHelperProcess(t, name)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	require.NoError(t, cmd.Start())

	time.Sleep(50 * time.Millisecond)

	b := shmq.NewShared(name, 4096)
	defer b.Close()
	q, err := b.Get()
	require.NoError(t, err)
	require.NoError(t, q.Push([]byte("late-creator")))

	require.NoError(t, cmd.Wait())
	assert.Contains(t, stdout.String(), "late-creator")
}
