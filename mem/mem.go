// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem implements the runtime image initialization performed before
// any Go code relies on zero initialized static storage.
//
// Functions in this package run before the Go runtime is initialized, they
// therefore never allocate and never grow the stack.
package mem

import (
	"unsafe"
)

// StackTop represents the initial stack pointer, the stack grows downwards
// from the 4MiB boundary.
const StackTop = 0x00400000

const wordSize = 8

// Region represents a memory range [Start, End).
type Region struct {
	Start uint64
	End   uint64
}

// Size returns the region size in bytes.
//
//go:nosplit
func (r Region) Size() int {
	if r.End <= r.Start {
		return 0
	}

	return int(r.End - r.Start)
}

// Bytes returns a slice spanning the region memory.
//
//go:nosplit
func (r Region) Bytes() []byte {
	if r.Size() == 0 {
		return nil
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(r.Start))), r.Size())
}

// Clear writes zero to every byte of the region, zero length regions are
// left untouched.
//
//go:nosplit
func (r Region) Clear() {
	Clear(r.Bytes())
}

// Clear writes zero to every byte of the argument buffer, using word sized
// stores for its aligned span.
//
//go:nosplit
func Clear(buf []byte) {
	i := 0
	n := len(buf)

	for ; i < n && uintptr(unsafe.Pointer(&buf[i]))%wordSize != 0; i++ {
		buf[i] = 0
	}

	for ; i+wordSize <= n; i += wordSize {
		*(*uint64)(unsafe.Pointer(&buf[i])) = 0
	}

	for ; i < n; i++ {
		buf[i] = 0
	}
}
