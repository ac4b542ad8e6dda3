// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package rpi3 provides hardware initialization, automatically on import, for
// the Raspberry Pi 3 Model B (BCM2837) under a single ARMv8-A core.
//
// The package implements the reset vector (cpuinit), which parks secondary
// cores, performs the optional EL2 to EL1 transition, clears the image BSS and
// enters the Go runtime. The serial console is brought up afterwards by the
// application through Sequence().
//
// The reset vector replaces the one of the tamago arm64 package, builds must
// therefore set the `linkcpuinit` tag.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm64` as
// supported by the TamaGo framework for bare metal Go, see
// https://github.com/usbarmory/tamago.
package rpi3

// Peripheral registers
const (
	// ARM view of the VideoCore peripheral space
	PERIPHERAL_BASE = 0x3f000000

	// VideoCore mailbox
	MBOX_BASE = PERIPHERAL_BASE + 0x00b880

	// GPIO controller
	GPIO_BASE = PERIPHERAL_BASE + 0x200000

	// PL011 serial port
	UART0_BASE = PERIPHERAL_BASE + 0x201000
)

// Memory layout
const (
	// Image load address (kernel8.img)
	KERNEL_START = 0x00080000

	// Pre-runtime stack, growing down below the image as the Go image
	// extends past mem.StackTop.
	STACK_TOP = KERNEL_START

	// Per-core stack size used until secondary cores are parked
	STACK_SIZE = 0x1000

	// Go runtime memory
	RAM_START = KERNEL_START
	RAM_SIZE  = DMA_START - RAM_START

	// Firmware shared memory (mailbox buffers), below the default GPU
	// memory split.
	DMA_START = 0x3b000000
	DMA_SIZE  = 0x00400000
)
