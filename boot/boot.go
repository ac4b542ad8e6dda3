// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package boot implements the power-on bring-up sequence of a single
// ARMv8-A core as an explicit state machine, from reset vector entry to the
// first diagnostic output on the serial console.
//
// Every hop of the no-return handoff chain (reset, privilege transition,
// image initialization, runtime entry, console bring-up) is a named State
// with a single forced transition. On hardware the states preceding the Go
// runtime are executed with no heap and a bare stack, therefore the Sequence
// methods reachable from them never allocate and never grow the stack.
package boot

import (
	"github.com/usbarmory/pi-boot/arm64"
	"github.com/usbarmory/pi-boot/mem"
	"github.com/usbarmory/pi-boot/uart"
)

// State represents a bring-up sequence state.
type State int

// Bring-up states
const (
	// Reset is the reset vector entry state.
	Reset State = iota + 1

	// Parked is the terminal state of secondary cores.
	Parked

	// PrivilegeDrop configures EL1 from EL2 and returns to it.
	PrivilegeDrop

	// DirectEntry installs the stack and enters the image initializer at
	// the current exception level.
	DirectEntry

	// ZeroImage clears the uninitialized static storage.
	ZeroImage

	// Handoff enters the Go runtime.
	Handoff

	// SerialInit brings up the serial console and emits the greeting.
	SerialInit

	// Ready is the terminal state of a successful bring-up.
	Ready

	// Halted is the terminal state of a failed bring-up.
	Halted
)

var stateNames = [...]string{
	Reset:         "reset",
	Parked:        "parked",
	PrivilegeDrop: "privilege-drop",
	DirectEntry:   "direct-entry",
	ZeroImage:     "zero-image",
	Handoff:       "handoff",
	SerialInit:    "serial-init",
	Ready:         "ready",
	Halted:        "halted",
}

// String returns the state name.
func (s State) String() string {
	if s < Reset || int(s) >= len(stateNames) {
		return "invalid"
	}

	return stateNames[s]
}

// Terminal returns whether no transition leaves the state.
//
//go:nosplit
func (s State) Terminal() bool {
	switch s {
	case Parked, Ready, Halted:
		return true
	}

	return false
}

// CPU represents the executing core.
type CPU interface {
	// ID returns the core number within the cluster.
	ID() int
	// EL returns the current exception level.
	EL() int

	// SetTimerControl writes the EL2 timer access control.
	SetTimerControl(val uint64)
	// SetVirtualOffset writes the virtual counter offset.
	SetVirtualOffset(val uint64)
	// HypervisorConfig reads the hypervisor configuration.
	HypervisorConfig() uint64
	// SetHypervisorConfig writes the hypervisor configuration.
	SetHypervisorConfig(val uint64)
	// SetFPAccess writes the EL1 floating point access control.
	SetFPAccess(val uint64)

	// ExceptionReturn applies the saved program status and returns from
	// EL2 to the entry address, with the EL1 stack pointer set to sp.
	ExceptionReturn(spsr uint64, elr uint64, sp uint64)
	// Jump sets the stack pointer and transfers control to the entry
	// address at the current exception level.
	Jump(entry uint64, sp uint64)

	// WaitForEvent enters low-power state until an event is signaled.
	WaitForEvent()
}

// Sequence represents a bring-up sequence instance.
type Sequence struct {
	// CPU represents the executing core.
	CPU CPU

	// Entry represents the image initializer entry address, target of
	// both the privilege transition and the direct entry.
	Entry uint64

	// StackTop represents the initial stack pointer, mem.StackTop when
	// zero.
	StackTop uint64

	// DropPrivilege enables the EL2 to EL1 transition through exception
	// return, otherwise execution continues at the reset exception level
	// through direct entry.
	DropPrivilege bool

	// Image represents the uninitialized static storage region.
	Image mem.Region

	// Handoff is invoked to enter the Go runtime, on hardware it does not
	// return.
	Handoff func()

	// Console represents the serial console brought up in SerialInit.
	Console Console

	// Clock represents the firmware clock service used by the console.
	Clock uart.ClockSetter

	// Greeting represents the first console output, Greeting when empty.
	Greeting string

	// Trace, when set, is invoked on every state transition.
	Trace func(from State, to State)

	// Err holds the failure which led to the Halted state.
	Err error

	state State
}

// State returns the current state.
//
//go:nosplit
func (s *Sequence) State() State {
	if s.state == 0 {
		return Reset
	}

	return s.state
}

// Resume sets the current state, it is used to re-enter the sequence after
// a no-return control transfer.
//
//go:nosplit
func (s *Sequence) Resume(state State) {
	s.state = state
}

//go:nosplit
func (s *Sequence) stackTop() uint64 {
	if s.StackTop == 0 {
		return mem.StackTop
	}

	return s.StackTop
}

// Step performs the transition of the current state and returns the new one,
// terminal states are left unchanged.
//
//go:nosplit
func (s *Sequence) Step() State {
	from := s.State()
	to := from

	switch from {
	case Reset:
		to = s.reset()
	case PrivilegeDrop:
		to = s.privilegeDrop()
	case DirectEntry:
		to = s.directEntry()
	case ZeroImage:
		to = s.zeroImage()
	case Handoff:
		to = s.handoff()
	case SerialInit:
		to = s.serialInit()
	default:
		return from
	}

	s.state = to

	if s.Trace != nil {
		s.Trace(from, to)
	}

	return to
}

// Run steps the sequence until a terminal state is reached.
//
//go:nosplit
func (s *Sequence) Run() State {
	for !s.State().Terminal() {
		s.Step()
	}

	return s.state
}

//go:nosplit
func (s *Sequence) reset() State {
	if s.CPU.ID() != 0 {
		return Parked
	}

	if s.CPU.EL() == arm64.EL2 {
		return PrivilegeDrop
	}

	return DirectEntry
}

//go:nosplit
func (s *Sequence) privilegeDrop() State {
	// EL1 direct access to physical timer and counter
	s.CPU.SetTimerControl(uint64(arm64.TimerControl()))
	// virtual and physical counters coincide
	s.CPU.SetVirtualOffset(0)
	// EL1 executes in AArch64 state
	s.CPU.SetHypervisorConfig(arm64.Execution64(s.CPU.HypervisorConfig()))
	// EL1 floating point and SIMD, used by the Go runtime
	s.CPU.SetFPAccess(uint64(arm64.FPAccess()))

	if !s.DropPrivilege {
		return DirectEntry
	}

	spsr := arm64.SavedStatus(arm64.EL1h)
	s.CPU.ExceptionReturn(uint64(spsr), s.Entry, s.stackTop())

	return ZeroImage
}

//go:nosplit
func (s *Sequence) directEntry() State {
	s.CPU.Jump(s.Entry, s.stackTop())
	return ZeroImage
}

//go:nosplit
func (s *Sequence) zeroImage() State {
	s.Image.Clear()
	return Handoff
}

//go:nosplit
func (s *Sequence) handoff() State {
	if s.Handoff != nil {
		s.Handoff()
	}

	return SerialInit
}

func (s *Sequence) serialInit() (state State) {
	greeting := s.Greeting

	if len(greeting) == 0 {
		greeting = Greeting
	}

	state, s.Err = Bringup(s.Console, s.Clock, greeting)

	return
}

// Idle parks the core in low-power wait, it never returns.
//
//go:nosplit
func Idle(cpu CPU) {
	for {
		cpu.WaitForEvent()
	}
}
