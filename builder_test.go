// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux && (amd64 || arm64)

package shmq_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/shmq"
)

func uniqueName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("/shmq-test-%d-%s", os.Getpid(), t.Name())
}

func TestNewSharedCreatesAndMaps(t *testing.T) {
	name := uniqueName(t)
	b := shmq.NewShared(name, 4096)
	defer b.Close()

	q, err := b.Get()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, 4096, q.Capacity())
	assert.True(t, q.Empty())
	assert.True(t, b.Realized())
}

func TestGetIsIdempotent(t *testing.T) {
	name := uniqueName(t)
	b := shmq.NewShared(name, 4096)
	defer b.Close()

	q1, err1 := b.Get()
	q2, err2 := b.Get()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Same(t, q1, q2)
}

func TestOpenSharedSeesProducerData(t *testing.T) {
	name := uniqueName(t)

	producer := shmq.NewShared(name, 4096)
	defer producer.Close()
	pq, err := producer.Get()
	require.NoError(t, err)
	require.NoError(t, pq.Push([]byte("hello from producer")))

	consumer := shmq.OpenShared(name)
	defer consumer.Close()
	cq, err := consumer.Get()
	require.NoError(t, err)

	data, err := cq.Peek()
	require.NoError(t, err)
	assert.Equal(t, "hello from producer", string(data))
}

func TestOpenSharedWithoutCreatorTimesOut(t *testing.T) {
	name := uniqueName(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	b := shmq.OpenShared(name)
	_, err := b.GetContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCanGetReflectsExistence(t *testing.T) {
	name := uniqueName(t)
	opener := shmq.OpenShared(name)
	assert.False(t, opener.CanGet())

	creator := shmq.NewShared(name, 4096)
	_, err := creator.Get()
	require.NoError(t, err)
	assert.True(t, opener.CanGet())

	require.NoError(t, creator.Close())
	assert.False(t, shmq.CanGet(name))
}

func TestCloseUnlinksOwnedName(t *testing.T) {
	name := uniqueName(t)
	b := shmq.NewShared(name, 4096)
	_, err := b.Get()
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.False(t, shmq.CanGet(name))
}

func TestOpenSharedCloseDoesNotUnlinkName(t *testing.T) {
	name := uniqueName(t)
	creator := shmq.NewShared(name, 4096)
	_, err := creator.Get()
	require.NoError(t, err)
	defer creator.Close()

	opener := shmq.OpenShared(name)
	_, err = opener.Get()
	require.NoError(t, err)
	require.NoError(t, opener.Close())

	assert.True(t, shmq.CanGet(name))
}

func TestNewPrivateRoundTrips(t *testing.T) {
	b := shmq.NewPrivate(4096)
	defer b.Close()

	q, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, 4096, q.Capacity())

	require.NoError(t, q.Push([]byte("private payload")))
	data, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, "private payload", string(data))
}

func TestWithMetadataInitRunsBeforePublish(t *testing.T) {
	name := uniqueName(t)
	b := shmq.NewShared(name, 4096, shmq.WithMetadataInit(func(md []byte) {
		copy(md, "schema-v1")
	}))
	defer b.Close()

	q, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, "schema-v1", string(q.Metadata()[:len("schema-v1")]))
}

func TestWithSyncFalseStillRoundTrips(t *testing.T) {
	name := uniqueName(t)
	b := shmq.NewShared(name, 4096, shmq.WithSync(false))
	defer b.Close()

	q, err := b.Get()
	require.NoError(t, err)
	require.NoError(t, q.Push([]byte("relaxed")))
	data, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, "relaxed", string(data))
}
