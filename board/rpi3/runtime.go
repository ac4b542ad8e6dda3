// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm64

package rpi3

import (
	_ "unsafe"

	"github.com/usbarmory/tamago/dma"

	"github.com/usbarmory/pi-boot/mbox"
)

//go:linkname ramStart runtime/goos.RamStart
var ramStart uint64 = RAM_START

//go:linkname ramSize runtime/goos.RamSize
var ramSize uint64 = RAM_SIZE

//go:linkname ramStackOffset runtime/goos.RamStackOffset
var ramStackOffset uint64 = 0x100

//go:linkname nanotime runtime/goos.Nanotime
func nanotime() int64 {
	return AARCH64.GetTime()
}

// Until the console is initialized output is discarded.
//
//go:linkname printk runtime/goos.Printk
func printk(c byte) {
	UART0.Tx(c)
}

// Init takes care of the lower level initialization triggered early in runtime
// setup.
//
//go:linkname Init runtime/goos.Hwinit1
func Init() {
	// CNTFRQ_EL0 is set by the firmware
	AARCH64.InitGenericTimers(0, 0)

	r, err := dma.NewRegion(DMA_START, DMA_SIZE, false)

	if err != nil {
		// left unset, Mailbox.Call() fails and the sequence halts
		return
	}

	addr, buf := r.Reserve(mbox.BufferSize, mbox.BufferAlignment)

	MBOX.Addr = uint32(addr)
	MBOX.Buffer = buf
}
