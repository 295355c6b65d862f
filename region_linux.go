// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileRegion is a file-backed shared mapping, the cross-process Region
// implementation. One component creates the file, the peer opens it;
// both map it MAP_SHARED so the ring counters and futex words are the
// same physical memory in both address spaces.
type FileRegion struct {
	file *os.File
	mem  []byte
	path string
}

// CreateFileRegion creates path exclusively, sizes it, and maps it.
// Fails if the file already exists: region ownership is single-creator.
func CreateFileRegion(path string, size int) (*FileRegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmq: region size must be positive")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shmq: create region file: %w", err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shmq: size region file: %w", err)
	}
	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shmq: mmap region: %w", err)
	}
	return &FileRegion{file: file, mem: mem, path: path}, nil
}

// OpenFileRegion maps an existing region file created by the peer.
func OpenFileRegion(path string) (*FileRegion, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("shmq: open region file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shmq: stat region file: %w", err)
	}
	// Reopen read-write: both sides produce into their ring.
	file.Close()
	file, err = os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shmq: open region file: %w", err)
	}
	size := int(info.Size())
	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shmq: mmap region: %w", err)
	}
	return &FileRegion{file: file, mem: mem, path: path}, nil
}

// Bytes returns the mapped memory.
func (r *FileRegion) Bytes() []byte {
	return r.mem
}

// Path returns the backing file path, for handing to the peer.
func (r *FileRegion) Path() string {
	return r.path
}

// Close unmaps the region and closes the file. The backing file is not
// removed; that is the creator's decision via Remove.
func (r *FileRegion) Close() error {
	if r.mem != nil {
		if err := unix.Munmap(r.mem); err != nil {
			return fmt.Errorf("shmq: munmap region: %w", err)
		}
		r.mem = nil
	}
	return r.file.Close()
}

// Remove deletes the backing file. Call after Close, creator side only.
func (r *FileRegion) Remove() error {
	return os.Remove(r.path)
}
