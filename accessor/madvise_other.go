// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

//go:build !linux

package accessor

// adviseRandomAccess is a no-op on platforms without madvise.
func adviseRandomAccess(data []byte) error {
	return nil
}
