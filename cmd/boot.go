// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/hako/durafmt"

	"github.com/usbarmory/pi-boot/arm64"
	"github.com/usbarmory/pi-boot/boot"
	"github.com/usbarmory/pi-boot/mem"
	"github.com/usbarmory/pi-boot/shell"
	"github.com/usbarmory/pi-boot/sim"
)

// simulated image layout
const (
	imageEntry = 0x80000
	bssSize    = 4096
)

var errNoRun = errors.New("no bring-up performed, type `boot`")

// Run represents a simulated bring-up.
type Run struct {
	Board    *sim.Board
	CPU      *sim.CPU
	Sequence *boot.Sequence

	// State represents the final state
	State boot.State
	// Log holds the state transitions
	Log string
	// Cleared reports whether the image BSS has been zeroed
	Cleared bool
	// Elapsed represents the bring-up duration
	Elapsed time.Duration
}

var (
	mux sync.Mutex

	// last bring-up
	last *Run
)

func init() {
	shell.Add(shell.Cmd{
		Name:    "boot",
		Args:    3,
		Pattern: regexp.MustCompile(`^boot(?: (el1|el2))?(?: core (\d+))?(?: (eret))?$`),
		Syntax:  "(el1|el2)? (core <n>)? (eret)?",
		Help:    "simulate bring-up at reset",
		Fn:      bootCmd,
	})

	shell.Add(shell.Cmd{
		Name: "uart",
		Help: "show serial output of last bring-up",
		Fn:   uartCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "trace",
		Args:    1,
		Pattern: regexp.MustCompile(`^trace(?: (writes))?$`),
		Syntax:  "(writes)?",
		Help:    "show register accesses of last bring-up",
		Fn:      traceCmd,
	})

	shell.Add(shell.Cmd{
		Name: "mbox",
		Help: "show mailbox exchanges of last bring-up",
		Fn:   mboxCmd,
	})
}

// Boot performs a bring-up on a simulated board configured with the current
// firmware settings, starting from reset on the argument core and exception
// level.
func Boot(core int, level int, dropPrivilege bool) *Run {
	var out bytes.Buffer

	board := newBoard()
	board.TraceReads = true

	r := &Run{
		Board: board,
		CPU:   &sim.CPU{Core: core, Level: level},
	}

	image := make([]byte, bssSize)

	for i := range image {
		image[i] = 0xff
	}

	start := uint64(uintptr(unsafe.Pointer(&image[0])))
	logger := log.New(&out, "", 0)

	r.Sequence = &boot.Sequence{
		CPU:           r.CPU,
		Entry:         imageEntry,
		DropPrivilege: dropPrivilege,
		Image:         mem.Region{Start: start, End: start + bssSize},
		Console:       board.UART(),
		Clock:         board.Mailbox(),
		Trace: func(from boot.State, to boot.State) {
			logger.Printf("%-14s -> %s", from, to)
		},
	}

	t := time.Now()
	r.State = r.Sequence.Run()
	r.Elapsed = time.Since(t)

	r.Cleared = bytes.Count(image, []byte{0}) == len(image)
	runtime.KeepAlive(image)

	r.Log = out.String()

	mux.Lock()
	last = r
	mux.Unlock()

	return r
}

// Last returns the last bring-up, if any.
func Last() (*Run, error) {
	mux.Lock()
	defer mux.Unlock()

	if last == nil {
		return nil, errNoRun
	}

	return last, nil
}

// String returns the bring-up report.
func (r *Run) String() string {
	var b strings.Builder

	b.WriteString(r.Log)

	fmt.Fprintf(&b, "core:%d EL%d returns:%d jumps:%d pc:%#x sp:%#x\n",
		r.CPU.Core, r.CPU.Level, r.CPU.Returns, r.CPU.Jumps, r.CPU.PC, r.CPU.SP)

	if r.CPU.Returns > 0 {
		fmt.Fprintf(&b, "SPSR_EL2:%#x ELR_EL2:%#x SP_EL1:%#x HCR_EL2:%#x CNTHCTL_EL2:%#x\n",
			r.CPU.SPSR, r.CPU.ELR, r.CPU.SPEL1, r.CPU.HCR, r.CPU.CNTHCTL)
	}

	fmt.Fprintf(&b, "bss cleared:%v\n", r.Cleared)
	fmt.Fprintf(&b, "uart: %q\n", r.Board.Output())

	if r.State == boot.Halted {
		fmt.Fprintf(&b, "halted, code:%#08x (%v)\n", boot.FailureCode(r.Sequence.Err), r.Sequence.Err)
	}

	fmt.Fprintf(&b, "%s in %s", r.State, durafmt.Parse(r.Elapsed).LimitFirstN(1))

	return b.String()
}

func bootCmd(_ *shell.Interface, arg []string) (string, error) {
	var err error

	level := arm64.EL2
	core := 0

	if arg[0] == "el1" {
		level = arm64.EL1
	}

	if len(arg[1]) > 0 {
		if core, err = strconv.Atoi(arg[1]); err != nil || core > arm64.CORE_MASK {
			return "", fmt.Errorf("invalid core %s", arg[1])
		}
	}

	if arg[2] == "eret" && level != arm64.EL2 {
		return "", errors.New("exception return requires EL2")
	}

	return Boot(core, level, arg[2] == "eret").String(), nil
}

func uartCmd(_ *shell.Interface, _ []string) (string, error) {
	r, err := Last()

	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%q", r.Board.Output()), nil
}

func traceCmd(_ *shell.Interface, arg []string) (string, error) {
	var trace []sim.Access

	r, err := Last()

	if err != nil {
		return "", err
	}

	for _, a := range r.Board.Trace() {
		if arg[0] == "writes" && !a.Write {
			continue
		}

		trace = append(trace, a)
	}

	return strings.TrimSuffix(sim.Dump(trace), "\n"), nil
}

func mboxCmd(_ *shell.Interface, _ []string) (string, error) {
	var b strings.Builder

	r, err := Last()

	if err != nil {
		return "", err
	}

	words := func(w []uint32) (s []string) {
		for _, v := range w {
			s = append(s, fmt.Sprintf("%08x", v))
		}

		return
	}

	for i, e := range r.Board.Exchanges() {
		fmt.Fprintf(&b, "#%d channel:%d\n", i, e.Channel)
		fmt.Fprintf(&b, "  request  %s\n", strings.Join(words(e.Request), " "))
		fmt.Fprintf(&b, "  response %s\n", strings.Join(words(e.Response), " "))
	}

	if b.Len() == 0 {
		return "no mailbox exchanges", nil
	}

	return strings.TrimSuffix(b.String(), "\n"), nil
}
