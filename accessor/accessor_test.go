// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package accessor

import "testing"

func TestReadBounds(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	a := OpenBytes(data, nil)

	got, ok := a.Read(0, 4)
	if !ok || len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Fatalf("unexpected read: %v ok=%v", got, ok)
	}

	if _, ok := a.Read(12, 8); ok {
		t.Fatalf("expected read crossing size to fail")
	}

	if _, ok := a.Read(16, 1); ok {
		t.Fatalf("expected read starting at size to fail")
	}

	if _, ok := a.Read(0, 0); ok {
		t.Fatalf("expected zero-length read to fail")
	}
}

func TestReadInto(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6}
	a := OpenBytes(data, nil)

	buf := make([]byte, 3)
	if !a.ReadInto(2, buf) {
		t.Fatalf("expected ReadInto to succeed")
	}
	if buf[0] != 3 || buf[1] != 4 || buf[2] != 5 {
		t.Fatalf("unexpected buffer contents: %v", buf)
	}

	if a.ReadInto(4, buf) {
		t.Fatalf("expected out-of-range ReadInto to fail")
	}
}
