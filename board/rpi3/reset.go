// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm64

package rpi3

import (
	"github.com/usbarmory/pi-boot/boot"
	"github.com/usbarmory/pi-boot/mem"
)

// HaltCode holds the failure code of a halted bring-up, see
// boot.FailureCode().
var HaltCode uint32

// defined in rpi3.s
func resumeEntry()
func entryAddr() uint64
func bssRegion() (start uint64, end uint64)
func runtimeStart()

// reset is invoked by cpuinit on every core, with the stack pointer set and
// no Go runtime, it never returns.
//
//go:nosplit
func reset() {
	s := boot.Sequence{
		CPU:           CPU,
		Entry:         entryAddr(),
		StackTop:      STACK_TOP,
		DropPrivilege: dropPrivilege,
	}

	s.Run()

	boot.Idle(CPU)
}

// resume is invoked by resumeEntry after the privilege transition or the direct
// entry, on a fresh stack, it never returns.
//
//go:nosplit
func resume() {
	start, end := bssRegion()

	s := boot.Sequence{
		CPU:     CPU,
		Image:   mem.Region{Start: start, End: end},
		Handoff: runtimeStart,
	}

	s.Resume(boot.ZeroImage)
	s.Run()

	boot.Idle(CPU)
}

// Sequence returns the bring-up sequence positioned at the serial console
// initialization, to be run once the Go runtime is started.
func Sequence() *boot.Sequence {
	s := &boot.Sequence{
		CPU:     CPU,
		Console: UART0,
		Clock:   MBOX,
	}

	s.Resume(boot.SerialInit)

	return s
}

// Halt publishes the failure code of a halted sequence and parks the core.
func Halt(s *boot.Sequence) {
	HaltCode = boot.FailureCode(s.Err)
	boot.Idle(CPU)
}
