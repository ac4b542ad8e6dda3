// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"testing"
)

type memBus struct {
	regs  map[uint32]uint32
	reads int
	// value returned by reads after the first ready reads
	after uint32
	ready int
}

func (m *memBus) Read(addr uint32) uint32 {
	m.reads++

	if m.ready > 0 && m.reads > m.ready {
		return m.after
	}

	return m.regs[addr]
}

func (m *memBus) Write(addr uint32, val uint32) {
	m.regs[addr] = val
}

func TestReadModifyWrite(t *testing.T) {
	b := &memBus{regs: map[uint32]uint32{0x10: 0xf0}}

	Set(b, 0x10, 0)
	Clear(b, 0x10, 4)
	SetN(b, 0x10, 8, 0b111, 0b101)

	if got := b.regs[0x10]; got != 0x5e1 {
		t.Fatalf("unexpected register value %#x", got)
	}

	if got := Get(b, 0x10, 8, 0b111); got != 0b101 {
		t.Fatalf("unexpected field value %#b", got)
	}

	if !IsSet(b, 0x10, 0) || IsSet(b, 0x10, 4) {
		t.Fatal("unexpected bit state")
	}
}

func TestWait(t *testing.T) {
	b := &memBus{
		regs:  map[uint32]uint32{0x18: 1 << 31},
		ready: 3,
		after: 0,
	}

	if !Wait(b, 0x18, 31, 1, 0, 10) {
		t.Fatal("expected field to clear")
	}

	if b.reads != 4 {
		t.Fatalf("unexpected number of reads %d", b.reads)
	}
}

func TestWaitTimeout(t *testing.T) {
	b := &memBus{regs: map[uint32]uint32{0x18: 1 << 31}}

	if Wait(b, 0x18, 31, 1, 0, 5) {
		t.Fatal("expected timeout")
	}

	if b.reads != 5 {
		t.Fatalf("unexpected number of reads %d", b.reads)
	}
}
