// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm64

package rpi3

import (
	"github.com/usbarmory/tamago/arm64"

	cpu "github.com/usbarmory/pi-boot/arm64"
	"github.com/usbarmory/pi-boot/gpio"
	"github.com/usbarmory/pi-boot/mbox"
	"github.com/usbarmory/pi-boot/reg"
	"github.com/usbarmory/pi-boot/uart"
)

// Peripheral instances
var (
	// ARMv8-A core, early boot system registers
	CPU = &cpu.CPU{}

	// ARMv8-A core, runtime services (generic timer)
	AARCH64 = &arm64.CPU{}

	// VideoCore mailbox, its buffer is reserved in Init()
	MBOX = &mbox.Mailbox{
		Base: MBOX_BASE,
		Bus:  reg.MMIO{},
	}

	// GPIO controller
	GPIO = &gpio.GPIO{
		Base: GPIO_BASE,
		Bus:  reg.MMIO{},
	}

	// Serial port
	UART0 = &uart.UART{
		Base:     UART0_BASE,
		Bus:      reg.MMIO{},
		Baudrate: uart.DefaultBaudrate,
		Clock:    uart.DefaultClock,
		Pinmux:   uart0Pinmux,
	}
)

// uart0Pinmux routes TXD0/RXD0 to pins 14 and 15.
func uart0Pinmux() {
	GPIO.SelectFunction(14, gpio.Alt0)
	GPIO.SelectFunction(15, gpio.Alt0)
	GPIO.DisablePull(14, 15)
}
