// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package uart implements a polling driver for the ARM PrimeCell PL011 UART
// found on BCM2837 SoCs, adopting the following reference specifications:
//   - BCM2837 ARM Peripherals
//   - PrimeCell UART (PL011) Technical Reference Manual - r1p5
//
// The UART input clock is negotiated with the board firmware through the
// mailbox property channel (see package mbox) during initialization.
package uart

import (
	"errors"
	"fmt"

	"github.com/usbarmory/tamago/bits"

	"github.com/usbarmory/pi-boot/mbox"
	"github.com/usbarmory/pi-boot/reg"
)

// PL011 registers
const (
	// BCM2837 UART0 base address
	DefaultBase = 0x3f201000

	UARTx_DR = 0x00

	UARTx_FR = 0x18
	FR_TXFE  = 7
	FR_RXFF  = 6
	FR_TXFF  = 5
	FR_RXFE  = 4
	FR_BUSY  = 3

	UARTx_IBRD = 0x24
	UARTx_FBRD = 0x28

	UARTx_LCRH = 0x2c
	LCRH_WLEN  = 5
	WLEN_8     = 0b11
	LCRH_FEN   = 4

	UARTx_CR  = 0x30
	CR_RXE    = 9
	CR_TXE    = 8
	CR_UARTEN = 0

	UARTx_IMSC = 0x38
	UARTx_ICR  = 0x44
	ICR_ALL    = 0x7ff
)

// Defaults
const (
	DefaultBaudrate = 115200
	// input clock requested to the firmware
	DefaultClock = 4000000
	// bound on FIFO status polling
	DefaultRetries = 1 << 16
)

// Errors
var (
	// ErrMailbox is returned when the UART clock rate cannot be
	// negotiated with the firmware.
	ErrMailbox = errors.New("could not set UART clock")

	// ErrNotReady is returned on transmission before initialization.
	ErrNotReady = errors.New("UART not initialized")

	// ErrTimeout is returned when the transmit FIFO does not drain within
	// the configured number of retries.
	ErrTimeout = errors.New("UART transmit timeout")
)

// State represents the UART driver state.
type State int

// UART driver states
const (
	Uninitialized State = iota
	Configuring
	Ready
)

// ClockSetter represents the firmware clock rate service used to set the
// UART input clock.
type ClockSetter interface {
	SetClockRate(id uint32, rate uint32, skipTurbo bool) (uint32, error)
}

// UART represents a serial port instance.
type UART struct {
	// Base register
	Base uint32

	// Bus represents the register bus, reg.MMIO when nil.
	Bus reg.Bus

	// Baudrate represents the line speed, DefaultBaudrate when zero.
	Baudrate uint32

	// Clock represents the input clock rate requested to the firmware,
	// DefaultClock when zero.
	Clock uint32

	// Pinmux is invoked during initialization to route the UART signals
	// to the board pins.
	Pinmux func()

	// Retries bounds transmit FIFO polling, DefaultRetries when zero.
	Retries int

	state State
	clock uint32
}

// New returns a UART instance bound to the default base address, the
// hardware is not accessed until Init().
func New() *UART {
	return &UART{
		Base:     DefaultBase,
		Baudrate: DefaultBaudrate,
		Clock:    DefaultClock,
	}
}

// Divisor returns the integer and fractional baud rate divisors for the
// argument input clock and baud rate, following the 16.6 fixed point format
// divisor = clock / (16 * baud).
//
// A zero baud rate returns zero divisors, the integer divisor is truncated
// to the 16 bits of UARTIBRD.
func Divisor(clock uint32, baud uint32) (ibrd uint32, fbrd uint32) {
	if baud == 0 {
		return
	}

	// divisor * 64, rounded to nearest
	d := (8*uint64(clock)/uint64(baud) + 1) / 2
	return uint32(d>>6) & 0xffff, uint32(d & 0x3f)
}

func (hw *UART) bus() reg.Bus {
	if hw.Bus == nil {
		return reg.MMIO{}
	}

	return hw.Bus
}

func (hw *UART) retries() int {
	if hw.Retries == 0 {
		return DefaultRetries
	}

	return hw.Retries
}

// Init initializes and enables the UART for polling transmission and
// reception, the input clock is set through the argument clock service.
func (hw *UART) Init(clk ClockSetter) (err error) {
	b := hw.bus()

	if hw.Baudrate == 0 {
		hw.Baudrate = DefaultBaudrate
	}

	if hw.Clock == 0 {
		hw.Clock = DefaultClock
	}

	hw.state = Configuring

	// disable UART
	b.Write(hw.Base+UARTx_CR, 0)

	rate, err := clk.SetClockRate(mbox.ClockUART, hw.Clock, true)

	if err != nil {
		hw.state = Uninitialized
		return fmt.Errorf("%w, %w", ErrMailbox, err)
	}

	if rate == 0 {
		hw.state = Uninitialized
		return fmt.Errorf("%w, invalid rate", ErrMailbox)
	}

	hw.clock = rate

	if hw.Pinmux != nil {
		hw.Pinmux()
	}

	// polling only, clear and mask all interrupts
	b.Write(hw.Base+UARTx_ICR, ICR_ALL)
	b.Write(hw.Base+UARTx_IMSC, 0)

	ibrd, fbrd := Divisor(rate, hw.Baudrate)
	b.Write(hw.Base+UARTx_IBRD, ibrd)
	b.Write(hw.Base+UARTx_FBRD, fbrd)

	var lcrh uint32
	bits.SetN(&lcrh, LCRH_WLEN, 0b11, WLEN_8)
	bits.Set(&lcrh, LCRH_FEN)
	b.Write(hw.Base+UARTx_LCRH, lcrh)

	var cr uint32
	bits.Set(&cr, CR_UARTEN)
	bits.Set(&cr, CR_TXE)
	bits.Set(&cr, CR_RXE)
	b.Write(hw.Base+UARTx_CR, cr)

	hw.state = Ready

	return
}

// State returns the driver state.
func (hw *UART) State() State {
	return hw.state
}

// ClockRate returns the input clock rate granted by the firmware.
func (hw *UART) ClockRate() uint32 {
	return hw.clock
}

func (hw *UART) tx(c byte) error {
	b := hw.bus()

	if hw.state != Ready {
		return ErrNotReady
	}

	if !reg.Wait(b, hw.Base+UARTx_FR, FR_TXFF, 1, 0, hw.retries()) {
		return ErrTimeout
	}

	b.Write(hw.Base+UARTx_DR, uint32(c))

	return nil
}

// Tx transmits a single character to the serial port, characters are
// discarded when the UART is not ready.
func (hw *UART) Tx(c byte) {
	hw.tx(c)
}

// Rx receives a single character from the serial port.
func (hw *UART) Rx() (c byte, valid bool) {
	b := hw.bus()

	if hw.state != Ready || reg.IsSet(b, hw.Base+UARTx_FR, FR_RXFE) {
		return
	}

	return byte(b.Read(hw.Base+UARTx_DR) & 0xff), true
}

// Write data from buffer to serial port, each byte is written only after the
// transmit FIFO reports free space.
func (hw *UART) Write(buf []byte) (n int, err error) {
	for n = 0; n < len(buf); n++ {
		if err = hw.tx(buf[n]); err != nil {
			return
		}
	}

	return
}

// Read available data to buffer from serial port.
func (hw *UART) Read(buf []byte) (n int, err error) {
	var valid bool

	for n = 0; n < len(buf); n++ {
		if buf[n], valid = hw.Rx(); !valid {
			break
		}
	}

	return
}

// Puts transmits a string to the serial port.
func (hw *UART) Puts(s string) {
	for i := 0; i < len(s); i++ {
		if hw.tx(s[i]) != nil {
			return
		}
	}
}
