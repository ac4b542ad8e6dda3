// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot_test

import (
	"errors"
	"fmt"
	"runtime"
	"testing"
	"unsafe"

	"github.com/usbarmory/pi-boot/arm64"
	"github.com/usbarmory/pi-boot/boot"
	"github.com/usbarmory/pi-boot/mbox"
	"github.com/usbarmory/pi-boot/mem"
	"github.com/usbarmory/pi-boot/sim"
)

const entry = 0x80400

type testImage struct {
	buf []byte
}

func newImage(n int) *testImage {
	img := &testImage{buf: make([]byte, n)}

	for i := range img.buf {
		img.buf[i] = 0xaa
	}

	return img
}

func (img *testImage) region() mem.Region {
	start := uint64(uintptr(unsafe.Pointer(&img.buf[0])))
	return mem.Region{Start: start, End: start + uint64(len(img.buf))}
}

func (img *testImage) zero() bool {
	defer runtime.KeepAlive(img.buf)

	for _, b := range img.buf {
		if b != 0 {
			return false
		}
	}

	return true
}

func (img *testImage) untouched() bool {
	defer runtime.KeepAlive(img.buf)

	for _, b := range img.buf {
		if b != 0xaa {
			return false
		}
	}

	return true
}

type testSetup struct {
	board  *sim.Board
	cpu    *sim.CPU
	img    *testImage
	seq    *boot.Sequence
	states []boot.State
}

func setup(core int, level int) (s *testSetup) {
	s = &testSetup{
		board: sim.NewBoard(),
		cpu:   &sim.CPU{Core: core, Level: level},
		img:   newImage(333),
	}

	s.seq = &boot.Sequence{
		CPU:     s.cpu,
		Entry:   entry,
		Image:   s.img.region(),
		Console: s.board.UART(),
		Clock:   s.board.Mailbox(),
		Trace: func(from boot.State, to boot.State) {
			if len(s.states) == 0 {
				s.states = append(s.states, from)
			}

			s.states = append(s.states, to)
		},
	}

	return
}

func (s *testSetup) path() string {
	return fmt.Sprintf("%v", s.states)
}

func TestCoreFilter(t *testing.T) {
	for core := 1; core <= arm64.CORE_MASK; core++ {
		for _, level := range []int{arm64.EL1, arm64.EL2} {
			s := setup(core, level)

			if state := s.seq.Run(); state != boot.Parked {
				t.Fatalf("core %d, unexpected state %s", core, state)
			}

			if s.cpu.Jumps != 0 || s.cpu.Returns != 0 {
				t.Fatalf("core %d, unexpected control transfer", core)
			}

			if !s.img.untouched() || s.board.Writes() != 0 {
				t.Fatalf("core %d, image initializer reached", core)
			}
		}
	}
}

func TestDirectEntry(t *testing.T) {
	s := setup(0, arm64.EL1)

	if state := s.seq.Run(); state != boot.Ready {
		t.Fatalf("unexpected state %s (%v)", state, s.seq.Err)
	}

	if s.path() != "[reset direct-entry zero-image handoff serial-init ready]" {
		t.Fatalf("unexpected path %s", s.path())
	}

	if s.cpu.Jumps != 1 || s.cpu.Returns != 0 {
		t.Fatal("unexpected control transfer")
	}

	if s.cpu.PC != entry || s.cpu.SP != mem.StackTop {
		t.Fatalf("unexpected jump to %#x, sp:%#x", s.cpu.PC, s.cpu.SP)
	}

	// EL2 registers are not accessed at EL1
	if s.cpu.CNTHCTL != 0 || s.cpu.HCR != 0 || s.cpu.CPACR != 0 {
		t.Fatal("unexpected EL2 configuration")
	}

	if !s.img.zero() {
		t.Fatal("image not cleared")
	}
}

func TestPrivilegeDrop(t *testing.T) {
	s := setup(0, arm64.EL2)
	s.seq.DropPrivilege = true

	if state := s.seq.Run(); state != boot.Ready {
		t.Fatalf("unexpected state %s (%v)", state, s.seq.Err)
	}

	if s.path() != "[reset privilege-drop zero-image handoff serial-init ready]" {
		t.Fatalf("unexpected path %s", s.path())
	}

	if s.cpu.Returns != 1 || s.cpu.Jumps != 0 {
		t.Fatal("unexpected control transfer")
	}

	if s.cpu.Level != arm64.EL1 {
		t.Fatalf("unexpected level EL%d", s.cpu.Level)
	}

	if s.cpu.ELR != entry {
		t.Fatalf("unexpected ELR %#x", s.cpu.ELR)
	}

	if s.cpu.SPEL1 != mem.StackTop {
		t.Fatalf("unexpected SP_EL1 %#x", s.cpu.SPEL1)
	}

	if s.cpu.SPSR != 0x3c5 {
		t.Fatalf("unexpected SPSR %#x", s.cpu.SPSR)
	}

	if s.cpu.CNTHCTL != 0x3 || s.cpu.CNTVOFF != 0 {
		t.Fatal("unexpected timer configuration")
	}

	if s.cpu.HCR&(1<<arm64.HCR_RW) == 0 {
		t.Fatal("EL1 not configured as AArch64")
	}

	if s.cpu.CPACR != 0x300000 {
		t.Fatalf("unexpected CPACR %#x", s.cpu.CPACR)
	}

	if !s.img.zero() {
		t.Fatal("image not cleared")
	}
}

func TestPrivilegeDropPreservesHCR(t *testing.T) {
	s := setup(0, arm64.EL2)
	s.seq.DropPrivilege = true
	s.cpu.HCR = 0x2

	s.seq.Run()

	if s.cpu.HCR != 0x80000002 {
		t.Fatalf("unexpected HCR %#x", s.cpu.HCR)
	}
}

func TestPrivilegeDropFallback(t *testing.T) {
	s := setup(0, arm64.EL2)

	if state := s.seq.Run(); state != boot.Ready {
		t.Fatalf("unexpected state %s (%v)", state, s.seq.Err)
	}

	if s.path() != "[reset privilege-drop direct-entry zero-image handoff serial-init ready]" {
		t.Fatalf("unexpected path %s", s.path())
	}

	if s.cpu.Returns != 0 || s.cpu.Jumps != 1 {
		t.Fatal("unexpected control transfer")
	}

	if s.cpu.HCR&(1<<arm64.HCR_RW) == 0 || s.cpu.CNTHCTL != 0x3 {
		t.Fatal("EL1 not configured")
	}
}

func TestHandoffOrder(t *testing.T) {
	s := setup(0, arm64.EL1)

	var called bool

	s.seq.Handoff = func() {
		called = true

		if !s.img.zero() {
			t.Fatal("runtime entered before image initialization")
		}

		if s.board.Writes() != 0 {
			t.Fatal("console accessed before runtime entry")
		}
	}

	if state := s.seq.Run(); state != boot.Ready {
		t.Fatalf("unexpected state %s", state)
	}

	if !called {
		t.Fatal("runtime not entered")
	}
}

func TestResume(t *testing.T) {
	s := setup(0, arm64.EL1)
	s.seq.Resume(boot.SerialInit)

	if state := s.seq.Run(); state != boot.Ready {
		t.Fatalf("unexpected state %s", state)
	}

	if s.cpu.Jumps != 0 || !s.img.untouched() {
		t.Fatal("unexpected early states")
	}
}

func TestHalted(t *testing.T) {
	s := setup(0, arm64.EL1)
	s.board.Mode = sim.Reject

	if state := s.seq.Run(); state != boot.Halted {
		t.Fatalf("unexpected state %s", state)
	}

	if !errors.Is(s.seq.Err, mbox.ErrResponse) {
		t.Fatalf("unexpected error %v", s.seq.Err)
	}

	if code := boot.FailureCode(s.seq.Err); code != boot.FailureMailboxResponse {
		t.Fatalf("unexpected failure code %#x", code)
	}

	if len(s.board.Output()) != 0 {
		t.Fatalf("unexpected output %q", s.board.Output())
	}
}

var errIdle = errors.New("idle")

type idleCPU struct {
	*sim.CPU
}

func (c *idleCPU) WaitForEvent() {
	c.CPU.WaitForEvent()

	if c.Events == 3 {
		panic(errIdle)
	}
}

func idle(cpu boot.CPU) (err error) {
	defer func() {
		err, _ = recover().(error)
	}()

	boot.Idle(cpu)

	return
}

func TestEndToEnd(t *testing.T) {
	s := setup(0, arm64.EL2)
	s.seq.DropPrivilege = true

	if state := s.seq.Run(); state != boot.Ready {
		t.Fatalf("unexpected state %s (%v)", state, s.seq.Err)
	}

	if s.board.Output() != "\nHello World!\n" {
		t.Fatalf("unexpected output %q", s.board.Output())
	}

	writes := s.board.Writes()

	// terminal states are left unchanged
	if state := s.seq.Step(); state != boot.Ready {
		t.Fatalf("unexpected state %s", state)
	}

	if err := idle(&idleCPU{s.cpu}); err != errIdle {
		t.Fatalf("unexpected idle exit %v", err)
	}

	if s.board.Writes() != writes {
		t.Fatal("register writes after terminal state")
	}
}
