// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

//go:build linux

package accessor

import "golang.org/x/sys/unix"

// adviseRandomAccess hints MADV_RANDOM since AlignedHeapScanner strides
// the mapping in scattered 16-byte jumps rather than sequentially.
func adviseRandomAccess(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Madvise(data, unix.MADV_RANDOM)
}
