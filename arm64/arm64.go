// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package arm64 provides support for ARMv8-A AArch64 system register
// configuration during early boot, covering core identification, exception
// level reporting and the EL2 to EL1 privilege transition.
//
// Register value helpers are architecture independent, while the CPU
// instance accessing system registers is only meant to be used with
// `GOOS=tamago GOARCH=arm64` as supported by the TamaGo framework for bare
// metal Go, see https://github.com/usbarmory/tamago.
package arm64

import (
	"github.com/usbarmory/tamago/bits"
)

// Exception levels
const (
	EL0 = 0
	EL1 = 1
	EL2 = 2
	EL3 = 3
)

// MPIDR_EL1 affinity level 0 mask, identifying the core within the cluster.
const CORE_MASK = 0x3

// CurrentEL fields
const (
	CURRENTEL_EL = 2
)

// CNTHCTL_EL2 fields
const (
	CNTHCTL_EL1PCTEN = 0
	CNTHCTL_EL1PCEN  = 1
)

// HCR_EL2 fields
const (
	HCR_RW = 31
)

// CPACR_EL1 fields
const (
	CPACR_FPEN  = 20
	FPEN_NOTRAP = 0b11
)

// SPSR_ELx fields
const (
	SPSR_D = 9
	SPSR_A = 8
	SPSR_I = 7
	SPSR_F = 6
	SPSR_M = 0
)

// AArch64 exception modes (SPSR_ELx.M[3:0])
const (
	EL0t = 0b0000
	EL1t = 0b0100
	EL1h = 0b0101
	EL2t = 0b1000
	EL2h = 0b1001
)

// CoreID returns the core number from an MPIDR_EL1 value.
//
//go:nosplit
func CoreID(mpidr uint64) int {
	return int(mpidr & CORE_MASK)
}

// Level returns the exception level from a CurrentEL value.
//
//go:nosplit
func Level(currentEL uint64) int {
	return int(currentEL>>CURRENTEL_EL) & 0b11
}

// ModeLevel returns the exception level targeted by an AArch64 exception
// mode.
//
//go:nosplit
func ModeLevel(mode uint32) int {
	return int(mode>>2) & 0b11
}

// TimerControl returns the CNTHCTL_EL2 value granting EL1 direct access to
// the physical timer and counter registers.
//
//go:nosplit
func TimerControl() (val uint32) {
	bits.Set(&val, CNTHCTL_EL1PCEN)
	bits.Set(&val, CNTHCTL_EL1PCTEN)
	return
}

// FPAccess returns the CPACR_EL1 value disabling EL0 and EL1 trapping of
// floating point and Advanced SIMD instructions.
//
//go:nosplit
func FPAccess() (val uint32) {
	bits.SetN(&val, CPACR_FPEN, 0b11, FPEN_NOTRAP)
	return
}

// SavedStatus returns the SPSR_ELx value for an exception return to the
// argument mode with all asynchronous exceptions (debug, SError, IRQ, FIQ)
// masked.
//
//go:nosplit
func SavedStatus(mode uint32) (val uint32) {
	bits.Set(&val, SPSR_D)
	bits.Set(&val, SPSR_A)
	bits.Set(&val, SPSR_I)
	bits.Set(&val, SPSR_F)
	bits.SetN(&val, SPSR_M, 0b1111, mode)
	return
}

// Execution64 returns the HCR_EL2 value with the EL1 execution state set to
// AArch64, all other fields are preserved.
//
//go:nosplit
func Execution64(hcr uint64) uint64 {
	return hcr | 1<<HCR_RW
}
