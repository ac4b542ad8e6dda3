// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gpio

import (
	"testing"
)

type access struct {
	addr uint32
	val  uint32
}

type testBus struct {
	regs   map[uint32]uint32
	writes []access
}

func (b *testBus) Read(addr uint32) uint32 {
	return b.regs[addr]
}

func (b *testBus) Write(addr uint32, val uint32) {
	b.regs[addr] = val
	b.writes = append(b.writes, access{addr, val})
}

func TestSelectFunction(t *testing.T) {
	b := &testBus{regs: map[uint32]uint32{}}
	hw := &GPIO{Base: DefaultBase, Bus: b}

	// pre-existing function for pin 10 must be preserved
	b.regs[DefaultBase+0x04] = uint32(Output)

	if err := hw.SelectFunction(14, Alt0); err != nil {
		t.Fatal(err)
	}

	if err := hw.SelectFunction(15, Alt0); err != nil {
		t.Fatal(err)
	}

	// GPFSEL1: FSEL14 at bits 12-14, FSEL15 at bits 15-17
	if got := b.regs[DefaultBase+0x04]; got != 0x24001 {
		t.Fatalf("unexpected GPFSEL1 value %#x", got)
	}

	fn, err := hw.Function(15)

	if err != nil {
		t.Fatal(err)
	}

	if fn != Alt0 {
		t.Fatalf("unexpected function %#b", fn)
	}

	if err := hw.SelectFunction(NumPins, Alt0); err == nil {
		t.Fatal("expected error for invalid pin")
	}
}

func TestDisablePull(t *testing.T) {
	var cycles int

	b := &testBus{regs: map[uint32]uint32{}}
	hw := &GPIO{
		Base:  DefaultBase,
		Bus:   b,
		Delay: func(n int) { cycles += n },
	}

	if err := hw.DisablePull(14, 15); err != nil {
		t.Fatal(err)
	}

	expected := []access{
		{DefaultBase + GPPUD, PullOff},
		{DefaultBase + GPPUDCLK0, 1<<14 | 1<<15},
		{DefaultBase + GPPUDCLK0, 0},
	}

	if len(b.writes) != len(expected) {
		t.Fatalf("unexpected writes %+v", b.writes)
	}

	for i, w := range expected {
		if b.writes[i] != w {
			t.Fatalf("write %d, got %+v, expected %+v", i, b.writes[i], w)
		}
	}

	if cycles != 2*pullCycles {
		t.Fatalf("unexpected delay cycles %d", cycles)
	}

	if err := hw.DisablePull(32); err == nil {
		t.Fatal("expected error for invalid pin")
	}
}
