// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package accessor provides a read-only random-access view over a
// minidump file backed by a memory mapping, the same way
// pe.New memory-maps the target binary with edsrzf/mmap-go instead of
// read/write syscalls.
package accessor

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/fo3dump/x360core/internal/xlog"
)

// Accessor is a read-only view over a dump file. It exclusively owns
// the memory mapping for its lifetime.
type Accessor struct {
	data   mmap.MMap
	f      *os.File
	size   uint32
	logger *xlog.Helper
}

// Open memory-maps path read-only and applies the platform-specific
// random-access hint (see madvise_linux.go / madvise_other.go).
func Open(path string, logger *xlog.Helper) (*Accessor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	if logger == nil {
		logger = xlog.NewHelper(nil)
	}

	if err := adviseRandomAccess(data); err != nil {
		logger.Debugf("madvise hint failed (non-fatal): %v", err)
	}

	return &Accessor{
		data:   data,
		f:      f,
		size:   uint32(len(data)),
		logger: logger,
	}, nil
}

// OpenBytes wraps an in-memory buffer with the same Accessor surface,
// for tests and for callers that already hold the dump in memory.
func OpenBytes(data []byte, logger *xlog.Helper) *Accessor {
	if logger == nil {
		logger = xlog.NewHelper(nil)
	}
	return &Accessor{data: data, size: uint32(len(data)), logger: logger}
}

// Close tears down the mapping.
func (a *Accessor) Close() error {
	var err error
	if a.data != nil {
		err = a.data.Unmap()
	}
	if a.f != nil {
		if cerr := a.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Size returns the total mapped size.
func (a *Accessor) Size() uint32 { return a.size }

// Read returns a byte slice [offset, offset+length) or (nil, false) if
// the read would cross file_size.
func (a *Accessor) Read(offset, length uint32) ([]byte, bool) {
	end := offset + length
	if length == 0 || end < offset || end > a.size {
		return nil, false
	}
	return a.data[offset:end], true
}

// ReadInto copies into buffer, returning false (and leaving buffer
// untouched) if the read would cross file_size.
func (a *Accessor) ReadInto(offset uint32, buffer []byte) bool {
	chunk, ok := a.Read(offset, uint32(len(buffer)))
	if !ok {
		return false
	}
	copy(buffer, chunk)
	return true
}
