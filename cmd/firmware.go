// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/usbarmory/pi-boot/shell"
	"github.com/usbarmory/pi-boot/sim"
	"github.com/usbarmory/pi-boot/uart"
)

var modes = map[string]sim.Mode{
	"honor":  sim.Honor,
	"reject": sim.Reject,
	"ignore": sim.Ignore,
	"silent": sim.Silent,
}

// Firmware represents the simulated firmware settings applied to every
// bring-up.
var Firmware = struct {
	// UARTClock represents the UART clock rate granted on request
	UARTClock uint32
	// Mode represents the property request handling
	Mode sim.Mode
	// Interleave enables foreign responses ahead of matching ones
	Interleave bool
}{
	UARTClock: sim.DefaultUARTClock,
}

func init() {
	shell.Add(shell.Cmd{
		Name:    "clock",
		Args:    1,
		Pattern: regexp.MustCompile(`^clock(?: (\d+))?$`),
		Syntax:  "(<hz>)?",
		Help:    "show/change firmware UART clock",
		Fn:      clockCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "firmware",
		Args:    2,
		Pattern: regexp.MustCompile(`^firmware(?: (honor|reject|ignore|silent))?(?: (interleave|sequential))?$`),
		Syntax:  "(honor|reject|ignore|silent)? (interleave|sequential)?",
		Help:    "show/change firmware behavior",
		Fn:      firmwareCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "divisor",
		Args:    2,
		Pattern: regexp.MustCompile(`^divisor (\d+)(?: (\d+))?$`),
		Syntax:  "<clock> (<baud>)?",
		Help:    "compute PL011 baud rate divisors",
		Fn:      divisorCmd,
	})
}

func newBoard() *sim.Board {
	mux.Lock()
	defer mux.Unlock()

	b := sim.NewBoard()
	b.UARTClock = Firmware.UARTClock
	b.Mode = Firmware.Mode
	b.Interleave = Firmware.Interleave

	return b
}

func modeName(m sim.Mode) string {
	for name, mode := range modes {
		if mode == m {
			return name
		}
	}

	return "invalid"
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)

	if err != nil {
		return 0, fmt.Errorf("invalid value %s", s)
	}

	return uint32(n), nil
}

func clockCmd(_ *shell.Interface, arg []string) (string, error) {
	mux.Lock()
	defer mux.Unlock()

	if len(arg[0]) > 0 {
		rate, err := parseUint32(arg[0])

		if err != nil {
			return "", err
		}

		Firmware.UARTClock = rate
	}

	return fmt.Sprintf("UART clock: %d Hz", Firmware.UARTClock), nil
}

func firmwareCmd(_ *shell.Interface, arg []string) (string, error) {
	mux.Lock()
	defer mux.Unlock()

	if len(arg[0]) > 0 {
		Firmware.Mode = modes[arg[0]]
	}

	switch arg[1] {
	case "interleave":
		Firmware.Interleave = true
	case "sequential":
		Firmware.Interleave = false
	}

	return fmt.Sprintf("mode:%s interleave:%v", modeName(Firmware.Mode), Firmware.Interleave), nil
}

func divisorCmd(_ *shell.Interface, arg []string) (string, error) {
	baud := uint32(uart.DefaultBaudrate)

	clock, err := parseUint32(arg[0])

	if err != nil {
		return "", err
	}

	if len(arg[1]) > 0 {
		if baud, err = parseUint32(arg[1]); err != nil {
			return "", err
		}
	}

	if baud == 0 || clock == 0 {
		return "", fmt.Errorf("invalid clock or baud rate")
	}

	ibrd, fbrd := uart.Divisor(clock, baud)

	return fmt.Sprintf("IBRD:%d FBRD:%d", ibrd, fbrd), nil
}
