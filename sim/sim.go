// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim implements a host model of the Raspberry Pi 3 peripherals
// involved in early bring-up: the VideoCore mailbox property channel with its
// firmware, the PL011 UART and the GPIO controller.
//
// A Board implements reg.Bus and can therefore back the mbox, uart and gpio
// drivers, a CPU implements boot.CPU.
package sim

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/usbarmory/pi-boot/gpio"
	"github.com/usbarmory/pi-boot/mbox"
	"github.com/usbarmory/pi-boot/uart"
)

// Board peripheral base addresses
const (
	MailboxBase = 0x3f00b880
	UARTBase    = uart.DefaultBase
	GPIOBase    = gpio.DefaultBase
)

// SharedBase represents the bus address of the mailbox buffer attached by
// Mailbox().
const SharedBase = 0x00100000

// DefaultUARTClock represents the UART clock rate granted by the firmware
// model.
const DefaultUARTClock = 48000000

// Mode represents the firmware behavior on property requests.
type Mode int

// Firmware modes
const (
	// Honor processes all supported tags.
	Honor Mode = iota
	// Reject fails every request with an error response code.
	Reject
	// Ignore acknowledges requests without processing their tags.
	Ignore
	// Silent never responds.
	Silent
)

// Access represents a register access.
type Access struct {
	Write bool
	Addr  uint32
	Val   uint32
}

// String returns the access in human readable format.
func (a Access) String() string {
	op := "R"

	if a.Write {
		op = "W"
	}

	return fmt.Sprintf("%s %#08x %#08x (%s)", op, a.Addr, a.Val, Name(a.Addr))
}

// Exchange represents a mailbox property request and its response, as
// encoded in the shared buffer.
type Exchange struct {
	Channel  uint32
	Request  []uint32
	Response []uint32
}

// Board represents a simulated board instance.
type Board struct {
	// UARTClock represents the UART clock rate granted on clock requests.
	UARTClock uint32

	// Mode represents the firmware behavior.
	Mode Mode

	// Interleave queues a response for a foreign request ahead of every
	// matching one.
	Interleave bool

	// TxBusy represents the number of status reads reporting a full
	// transmit FIFO before each character is accepted.
	TxBusy int

	// TraceReads enables tracing of register reads.
	TraceReads bool

	regs     map[uint32]uint32
	shared   map[uint32][]byte
	inbound  []uint32
	rx       []byte
	tx       []byte
	txWait   int
	trace    []Access
	requests []*Exchange
}

// NewBoard returns a simulated board with default firmware behavior.
func NewBoard() *Board {
	return &Board{
		UARTClock: DefaultUARTClock,
		regs:      make(map[uint32]uint32),
		shared:    make(map[uint32][]byte),
	}
}

// Attach registers a shared memory buffer at the argument bus address.
func (b *Board) Attach(addr uint32, buf []byte) {
	b.shared[addr] = buf
}

// Input queues characters for UART reception.
func (b *Board) Input(s string) {
	b.rx = append(b.rx, s...)
}

// Output returns all characters transmitted on the UART.
func (b *Board) Output() string {
	return string(b.tx)
}

// Trace returns the register access trace.
func (b *Board) Trace() []Access {
	return b.trace
}

// Exchanges returns all mailbox property exchanges.
func (b *Board) Exchanges() []*Exchange {
	return b.requests
}

// Writes returns the number of register writes performed so far.
func (b *Board) Writes() (n int) {
	for _, a := range b.trace {
		if a.Write {
			n++
		}
	}

	return
}

// Read implements reg.Bus.
func (b *Board) Read(addr uint32) (val uint32) {
	switch addr {
	case MailboxBase + mbox.MBOX_STATUS:
		if len(b.inbound) == 0 {
			val |= 1 << mbox.STATUS_EMPTY
		}
	case MailboxBase + mbox.MBOX_READ:
		if len(b.inbound) > 0 {
			val = b.inbound[0]
			b.inbound = b.inbound[1:]
		}
	case UARTBase + uart.UARTx_FR:
		if b.txWait > 0 {
			b.txWait--
			val |= 1 << uart.FR_TXFF
		} else {
			val |= 1 << uart.FR_TXFE
		}

		if len(b.rx) == 0 {
			val |= 1 << uart.FR_RXFE
		}
	case UARTBase + uart.UARTx_DR:
		if len(b.rx) > 0 {
			val = uint32(b.rx[0])
			b.rx = b.rx[1:]
		}
	default:
		val = b.regs[addr]
	}

	if b.TraceReads {
		b.trace = append(b.trace, Access{Addr: addr, Val: val})
	}

	return
}

// Write implements reg.Bus.
func (b *Board) Write(addr uint32, val uint32) {
	b.trace = append(b.trace, Access{Write: true, Addr: addr, Val: val})

	switch addr {
	case MailboxBase + mbox.MBOX_WRITE:
		b.mailbox(val)
	case UARTBase + uart.UARTx_DR:
		cr := b.regs[UARTBase+uart.UARTx_CR]

		if cr&(1<<uart.CR_UARTEN) != 0 && cr&(1<<uart.CR_TXE) != 0 {
			b.tx = append(b.tx, byte(val))
			b.txWait = b.TxBusy
		}
	case UARTBase + uart.UARTx_ICR:
		// write-only
	default:
		b.regs[addr] = val
	}
}

func words(buf []byte) []uint32 {
	w := make([]uint32, len(buf)/4)
	binary.Decode(buf, binary.LittleEndian, w)
	return w
}

func (b *Board) mailbox(val uint32) {
	addr := val &^ 0xf
	ch := val & 0xf

	buf, ok := b.shared[addr]

	if !ok || b.Mode == Silent {
		return
	}

	ex := &Exchange{
		Channel: ch,
		Request: words(buf),
	}

	b.requests = append(b.requests, ex)

	if ch == mbox.ChannelProperty {
		b.property(buf)
	}

	ex.Response = words(buf)

	if b.Interleave {
		b.inbound = append(b.inbound, (addr+0x100)|ch)
	}

	b.inbound = append(b.inbound, val)
}

func (b *Board) property(buf []byte) {
	le := binary.LittleEndian
	size := int(le.Uint32(buf[0:]))

	if size > len(buf) || size < 12 {
		le.PutUint32(buf[4:], mbox.Response|1)
		return
	}

	switch b.Mode {
	case Reject:
		le.PutUint32(buf[4:], mbox.Response|1)
		return
	case Ignore:
		le.PutUint32(buf[4:], mbox.Response)
		return
	}

	for off := 8; off+12 <= size; {
		id := le.Uint32(buf[off:])

		if id == mbox.TagLast {
			break
		}

		n := int(le.Uint32(buf[off+4:]))

		if off+12+n > size {
			break
		}

		val := buf[off+12 : off+12+n]

		if length, ok := b.tag(id, val); ok {
			le.PutUint32(buf[off+8:], 1<<31|length)
		}

		off += 12 + n
	}

	le.PutUint32(buf[4:], mbox.Response)
}

func (b *Board) tag(id uint32, val []byte) (length uint32, ok bool) {
	le := binary.LittleEndian

	switch id {
	case mbox.TagGetClockRate, mbox.TagSetClockRate:
		if len(val) < 8 {
			return
		}

		var rate uint32

		if le.Uint32(val) == mbox.ClockUART {
			rate = b.UARTClock
		}

		le.PutUint32(val[4:], rate)

		return 8, true
	}

	return
}

// Name returns the register name for a board address.
func Name(addr uint32) string {
	names := map[uint32]string{
		MailboxBase + mbox.MBOX_READ:   "MBOX_READ",
		MailboxBase + mbox.MBOX_STATUS: "MBOX_STATUS",
		MailboxBase + mbox.MBOX_WRITE:  "MBOX_WRITE",
		UARTBase + uart.UARTx_DR:       "UART0_DR",
		UARTBase + uart.UARTx_FR:       "UART0_FR",
		UARTBase + uart.UARTx_IBRD:     "UART0_IBRD",
		UARTBase + uart.UARTx_FBRD:     "UART0_FBRD",
		UARTBase + uart.UARTx_LCRH:     "UART0_LCRH",
		UARTBase + uart.UARTx_CR:       "UART0_CR",
		UARTBase + uart.UARTx_IMSC:     "UART0_IMSC",
		UARTBase + uart.UARTx_ICR:      "UART0_ICR",
		GPIOBase + gpio.GPPUD:          "GPPUD",
		GPIOBase + gpio.GPPUDCLK0:      "GPPUDCLK0",
		GPIOBase + gpio.GPLEV0:         "GPLEV0",
	}

	if name, ok := names[addr]; ok {
		return name
	}

	if addr >= GPIOBase+gpio.GPFSEL0 && addr < GPIOBase+gpio.GPFSEL0+6*4 {
		return fmt.Sprintf("GPFSEL%d", (addr-GPIOBase)/4)
	}

	return "?"
}

// Dump returns the trace in human readable format.
func Dump(trace []Access) string {
	var s strings.Builder

	for _, a := range trace {
		fmt.Fprintln(&s, a)
	}

	return s.String()
}
