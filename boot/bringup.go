// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"errors"
	"fmt"

	"github.com/usbarmory/pi-boot/mbox"
	"github.com/usbarmory/pi-boot/uart"
)

// Greeting represents the default first console output.
const Greeting = "\nHello World!\n"

// Failure codes published on halt, see FailureCode().
const (
	FailureNone            = 0x00000000
	FailureConsole         = 0xbad00001
	FailureMailboxResponse = 0xbad00002
	FailureMailboxTimeout  = 0xbad00003
	FailureMailboxBuffer   = 0xbad00004
)

// Console represents a serial console which requires its input clock to be
// set by the board firmware.
type Console interface {
	Init(clk uart.ClockSetter) error
	Puts(s string)
}

// Bringup initializes the serial console and emits the greeting, returning
// the Ready state. Any failure is returned along with the Halted state, no
// retry is attempted.
func Bringup(c Console, clk uart.ClockSetter, greeting string) (State, error) {
	if c == nil || clk == nil {
		return Halted, errors.New("missing console or clock service")
	}

	if err := c.Init(clk); err != nil {
		return Halted, fmt.Errorf("could not initialize console, %w", err)
	}

	c.Puts(greeting)

	return Ready, nil
}

// FailureCode returns a code distinguishing the cause of a bring-up failure,
// to be published before halting.
func FailureCode(err error) uint32 {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, mbox.ErrResponse):
		return FailureMailboxResponse
	case errors.Is(err, mbox.ErrTimeout), errors.Is(err, mbox.ErrBusy):
		return FailureMailboxTimeout
	case errors.Is(err, mbox.ErrBufferSize), errors.Is(err, mbox.ErrAlignment):
		return FailureMailboxBuffer
	default:
		return FailureConsole
	}
}
