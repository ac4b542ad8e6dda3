// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides primitives for 32-bit memory mapped register access.
//
// All peripheral drivers access hardware through the Bus interface, the MMIO
// implementation targets the physical address space of the running core while
// alternative implementations (see package sim) model a board on the host.
package reg

import (
	"sync/atomic"
	"unsafe"

	"github.com/usbarmory/tamago/bits"
)

// Bus represents a 32-bit register bus.
type Bus interface {
	Read(addr uint32) uint32
	Write(addr uint32, val uint32)
}

// MMIO implements Bus over the physical address space of the running core.
//
// Accesses are performed with atomic loads and stores which on arm64 are
// issued as LDAR and STLR, ordering all memory accesses preceding a register
// write (e.g. a mailbox buffer) before the write itself.
type MMIO struct{}

// Read returns the 32-bit value at the register address.
//
//go:nosplit
func (MMIO) Read(addr uint32) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

// Write stores a 32-bit value at the register address.
//
//go:nosplit
func (MMIO) Write(addr uint32, val uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), val)
}

// Get returns the register field at position pos, masked with mask.
func Get(b Bus, addr uint32, pos int, mask int) uint32 {
	val := b.Read(addr)
	return bits.Get(&val, pos, mask)
}

// IsSet returns whether the register bit at position pos is set.
func IsSet(b Bus, addr uint32, pos int) bool {
	val := b.Read(addr)
	return bits.IsSet(&val, pos)
}

// Set sets the register bit at position pos.
func Set(b Bus, addr uint32, pos int) {
	val := b.Read(addr)
	bits.Set(&val, pos)
	b.Write(addr, val)
}

// Clear clears the register bit at position pos.
func Clear(b Bus, addr uint32, pos int) {
	val := b.Read(addr)
	bits.Clear(&val, pos)
	b.Write(addr, val)
}

// SetN sets the register field at position pos, masked with mask, to val.
func SetN(b Bus, addr uint32, pos int, mask int, val uint32) {
	r := b.Read(addr)
	bits.SetN(&r, pos, mask, val)
	b.Write(addr, r)
}

// Wait polls the register field at position pos, masked with mask, until it
// equals val. At most retries reads are performed, a non positive value waits
// forever. The return value reports whether the field reached val.
func Wait(b Bus, addr uint32, pos int, mask int, val uint32, retries int) bool {
	for i := 0; retries <= 0 || i < retries; i++ {
		if Get(b, addr, pos, mask) == val {
			return true
		}
	}

	return false
}
