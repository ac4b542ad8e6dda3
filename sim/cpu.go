// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/pi-boot/arm64"
)

// CPU represents a simulated ARMv8-A core, it records system register writes
// and control transfers instead of performing them.
type CPU struct {
	// Core represents the core number.
	Core int
	// Level represents the current exception level.
	Level int

	// system registers
	CNTHCTL uint64
	CNTVOFF uint64
	HCR     uint64
	CPACR   uint64
	SPSR    uint64
	ELR     uint64
	SPEL1   uint64

	// PC and SP hold the target of the last control transfer.
	PC uint64
	SP uint64

	// Returns counts exception returns, Jumps direct transfers and Events
	// low-power waits.
	Returns int
	Jumps   int
	Events  int
}

// ID implements boot.CPU.
func (c *CPU) ID() int {
	return c.Core
}

// EL implements boot.CPU.
func (c *CPU) EL() int {
	return c.Level
}

// SetTimerControl implements boot.CPU.
func (c *CPU) SetTimerControl(val uint64) {
	c.CNTHCTL = val
}

// SetVirtualOffset implements boot.CPU.
func (c *CPU) SetVirtualOffset(val uint64) {
	c.CNTVOFF = val
}

// HypervisorConfig implements boot.CPU.
func (c *CPU) HypervisorConfig() uint64 {
	return c.HCR
}

// SetHypervisorConfig implements boot.CPU.
func (c *CPU) SetHypervisorConfig(val uint64) {
	c.HCR = val
}

// SetFPAccess implements boot.CPU.
func (c *CPU) SetFPAccess(val uint64) {
	c.CPACR = val
}

// ExceptionReturn implements boot.CPU, the exception level is set to the one
// targeted by the saved program status.
func (c *CPU) ExceptionReturn(spsr uint64, elr uint64, sp uint64) {
	c.SPSR = spsr
	c.ELR = elr
	c.SPEL1 = sp

	c.Level = arm64.ModeLevel(uint32(spsr & 0b1111))
	c.PC = elr
	c.SP = sp
	c.Returns++
}

// Jump implements boot.CPU.
func (c *CPU) Jump(entry uint64, sp uint64) {
	c.PC = entry
	c.SP = sp
	c.Jumps++
}

// WaitForEvent implements boot.CPU.
func (c *CPU) WaitForEvent() {
	c.Events++
}
