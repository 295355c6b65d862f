// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/shmq"
)

func TestFileRegionCreateOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.shmq")
	size := shmq.QueueSize(8, 64)

	created, err := shmq.CreateFileRegion(path, size)
	require.NoError(t, err)
	defer created.Close()
	require.GreaterOrEqual(t, len(created.Bytes()), size)
	require.Equal(t, path, created.Path())

	// Creation is exclusive: a second create on the same path fails.
	_, err = shmq.CreateFileRegion(path, size)
	require.Error(t, err)

	opened, err := shmq.OpenFileRegion(path)
	require.NoError(t, err)
	defer opened.Close()
	require.Equal(t, len(created.Bytes()), len(opened.Bytes()))
}

func TestFileRegionSharedMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.shmq")
	size := shmq.QueueSize(4, 32)

	created, err := shmq.CreateFileRegion(path, size)
	require.NoError(t, err)
	defer created.Close()

	q, err := shmq.CreateQueue(created, 4, 32)
	require.NoError(t, err)

	// A second mapping of the same file sees the formatted queue: the
	// path two processes would take.
	opened, err := shmq.OpenFileRegion(path)
	require.NoError(t, err)
	defer opened.Close()

	peer, err := shmq.AttachQueue(opened)
	require.NoError(t, err)
	require.Equal(t, 4, peer.Cap())

	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(peer)
	id, err := client.Submit([]byte("cross"))
	require.NoError(t, err)
	req, err := server.Receive()
	require.NoError(t, err)
	require.Equal(t, id, req.ID)
	require.Equal(t, []byte("cross"), req.Command[:5])

	require.NoError(t, server.Complete(req.ID, []byte("mapped")))
	info, err := client.Await(id)
	require.NoError(t, err)
	require.Equal(t, []byte("mapped"), info[:6])
}

func TestFileRegionRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.shmq")
	created, err := shmq.CreateFileRegion(path, shmq.QueueSize(4, 16))
	require.NoError(t, err)

	require.NoError(t, created.Close())
	require.NoError(t, created.Remove())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
