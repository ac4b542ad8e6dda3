// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/pi-boot/gpio"
	"github.com/usbarmory/pi-boot/mbox"
	"github.com/usbarmory/pi-boot/uart"
)

// Mailbox returns a mailbox driver instance backed by the board, with its
// shared buffer attached at SharedBase.
func (b *Board) Mailbox() *mbox.Mailbox {
	buf := make([]byte, mbox.BufferSize)
	b.Attach(SharedBase, buf)

	return &mbox.Mailbox{
		Base:    MailboxBase,
		Bus:     b,
		Buffer:  buf,
		Addr:    SharedBase,
		Retries: 1024,
	}
}

// GPIO returns a GPIO driver instance backed by the board.
func (b *Board) GPIO() *gpio.GPIO {
	return &gpio.GPIO{
		Base:  GPIOBase,
		Bus:   b,
		Delay: func(int) {},
	}
}

// UART returns a UART driver instance backed by the board, with its pins
// routed through the board GPIO controller.
func (b *Board) UART() *uart.UART {
	io := b.GPIO()

	u := uart.New()
	u.Bus = b
	u.Retries = 1024
	u.Pinmux = func() {
		io.SelectFunction(14, gpio.Alt0)
		io.SelectFunction(15, gpio.Alt0)
		io.DisablePull(14, 15)
	}

	return u
}
