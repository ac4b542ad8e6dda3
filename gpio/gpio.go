// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gpio implements pin function selection and pull control for the
// BCM2837 GPIO controller, adopting the following reference specifications:
//   - BCM2837 ARM Peripherals - section 6
package gpio

import (
	"fmt"

	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/pi-boot/reg"
)

// GPIO registers
const (
	// BCM2837 GPIO base address
	DefaultBase = 0x3f200000

	GPFSEL0   = 0x00
	GPLEV0    = 0x34
	GPPUD     = 0x94
	GPPUDCLK0 = 0x98
)

// Pull-up/down control
const (
	PullOff  = 0b00
	PullDown = 0b01
	PullUp   = 0b10
)

// NumPins represents the number of GPIO lines.
const NumPins = 54

// setup cycles required by the pull-up/down control sequence
const pullCycles = 150

// Function represents a GPIO pin function.
type Function uint32

// Pin functions
const (
	Input  Function = 0b000
	Output Function = 0b001
	Alt0   Function = 0b100
	Alt1   Function = 0b101
	Alt2   Function = 0b110
	Alt3   Function = 0b111
	Alt4   Function = 0b011
	Alt5   Function = 0b010
)

// GPIO represents a GPIO controller instance.
type GPIO struct {
	// Base register
	Base uint32

	// Bus represents the register bus, reg.MMIO when nil.
	Bus reg.Bus

	// Delay waits for the argument number of cycles, when nil the pin
	// level register is polled once per cycle.
	Delay func(cycles int)
}

func (hw *GPIO) bus() reg.Bus {
	if hw.Bus == nil {
		return reg.MMIO{}
	}

	return hw.Bus
}

func (hw *GPIO) delay(cycles int) {
	if hw.Delay != nil {
		hw.Delay(cycles)
		return
	}

	b := hw.bus()

	for i := 0; i < cycles; i++ {
		b.Read(hw.Base + GPLEV0)
	}
}

// SelectFunction sets the function of a GPIO pin.
func (hw *GPIO) SelectFunction(pin int, fn Function) error {
	if pin < 0 || pin >= NumPins {
		return fmt.Errorf("invalid pin %d", pin)
	}

	addr := hw.Base + GPFSEL0 + uint32(pin/10)*4
	reg.SetN(hw.bus(), addr, (pin%10)*3, 0b111, uint32(fn))

	return nil
}

// Function returns the function of a GPIO pin.
func (hw *GPIO) Function(pin int) (Function, error) {
	if pin < 0 || pin >= NumPins {
		return 0, fmt.Errorf("invalid pin %d", pin)
	}

	addr := hw.Base + GPFSEL0 + uint32(pin/10)*4

	return Function(reg.Get(hw.bus(), addr, (pin%10)*3, 0b111)), nil
}

// DisablePull disables the pull-up/down control of the argument pins, which
// must belong to the first bank (0-31).
func (hw *GPIO) DisablePull(pins ...int) error {
	var clk uint32

	for _, pin := range pins {
		if pin < 0 || pin > 31 {
			return fmt.Errorf("invalid pin %d", pin)
		}

		bits.Set(&clk, pin)
	}

	b := hw.bus()

	b.Write(hw.Base+GPPUD, PullOff)
	hw.delay(pullCycles)

	b.Write(hw.Base+GPPUDCLK0, clk)
	hw.delay(pullCycles)

	b.Write(hw.Base+GPPUDCLK0, 0)

	return nil
}
