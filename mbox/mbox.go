// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mbox implements a driver for the BCM2837 VideoCore mailbox
// property channel, a synchronous request/response transport to the board
// firmware over a shared memory buffer.
//
// The buffer is read and written by the VideoCore over the bus, it must
// therefore reside in memory which is not cached by the requesting core
// (see board/rpi3 for its reservation).
package mbox

import (
	"errors"
	"fmt"

	"github.com/usbarmory/pi-boot/reg"
)

// Mailbox registers
const (
	MBOX_READ = 0x00

	MBOX_STATUS  = 0x18
	STATUS_FULL  = 31
	STATUS_EMPTY = 30

	MBOX_WRITE = 0x20
)

// Mailbox channels
const (
	ChannelPower       = 0
	ChannelFramebuffer = 1
	ChannelVUART       = 2
	ChannelVCHIQ       = 3
	ChannelLEDs        = 4
	ChannelButtons     = 5
	ChannelTouch       = 6
	ChannelProperty    = 8
)

// BufferSize represents the default message buffer capacity (36 words).
const BufferSize = 36 * 4

// BufferAlignment represents the required message buffer alignment, the low
// nibble of the buffer address carries the channel selector.
const BufferAlignment = 16

// DefaultRetries represents the default bound on each mailbox poll loop.
const DefaultRetries = 1 << 20

// Errors
var (
	// ErrResponse is returned when the firmware rejects a message or does
	// not honor one of its tags.
	ErrResponse = errors.New("mailbox response error")

	// ErrTimeout is returned when the firmware does not answer within the
	// configured number of retries.
	ErrTimeout = errors.New("mailbox timeout")

	// ErrBufferSize is returned when a message exceeds the buffer capacity.
	ErrBufferSize = errors.New("message exceeds mailbox buffer")

	// ErrAlignment is returned when the buffer address is not aligned.
	ErrAlignment = errors.New("mailbox buffer is not 16-byte aligned")

	// ErrBusy is returned when the response to a previously timed out
	// request is still pending, the buffer is owned by the firmware.
	ErrBusy = errors.New("mailbox buffer owned by firmware")
)

// Mailbox represents a mailbox instance.
type Mailbox struct {
	// Base register
	Base uint32

	// Bus represents the register bus, reg.MMIO when nil.
	Bus reg.Bus

	// Buffer represents the shared message buffer, its bus address must
	// be set in Addr.
	Buffer []byte
	Addr   uint32

	// Retries bounds every poll loop, DefaultRetries when zero.
	Retries int

	// last exchanged message
	last *Message

	// doorbell value of a timed out request
	pending    uint32
	hasPending bool
}

func (mb *Mailbox) bus() reg.Bus {
	if mb.Bus == nil {
		return reg.MMIO{}
	}

	return mb.Bus
}

func (mb *Mailbox) retries() int {
	if mb.Retries == 0 {
		return DefaultRetries
	}

	return mb.Retries
}

// drain waits for the response to a timed out request, returning the
// buffer ownership.
func (mb *Mailbox) drain(b reg.Bus, retries int) bool {
	if !mb.hasPending {
		return true
	}

	for i := 0; i < retries; i++ {
		if !reg.Wait(b, mb.Base+MBOX_STATUS, STATUS_EMPTY, 1, 0, retries) {
			return false
		}

		if b.Read(mb.Base+MBOX_READ) == mb.pending {
			mb.hasPending = false
			return true
		}
	}

	return false
}

// Call sends a message on the argument channel and waits for the firmware
// response, the message is updated in place with the response values.
//
// The shared buffer is owned by the firmware from the doorbell write until
// the matching response is read, responses for other requests are discarded.
// A request which timed out keeps the buffer owned by the firmware until its
// response is drained, which is attempted on the next call.
func (mb *Mailbox) Call(channel int, m *Message) (err error) {
	b := mb.bus()
	retries := mb.retries()

	if mb.Addr%BufferAlignment != 0 {
		return ErrAlignment
	}

	m.reset()
	buf, err := m.MarshalBinary()

	if err != nil {
		return
	}

	if len(buf) > len(mb.Buffer) {
		return ErrBufferSize
	}

	if !mb.drain(b, retries) {
		return ErrBusy
	}

	mb.last = m

	if !reg.Wait(b, mb.Base+MBOX_STATUS, STATUS_FULL, 1, 0, retries) {
		return fmt.Errorf("%w, outbound channel full", ErrTimeout)
	}

	copy(mb.Buffer, buf)

	msg := mb.Addr | uint32(channel&0xf)
	b.Write(mb.Base+MBOX_WRITE, msg)

	for i := 0; ; i++ {
		if i == retries {
			mb.pending, mb.hasPending = msg, true
			return fmt.Errorf("%w, no matching response", ErrTimeout)
		}

		if !reg.Wait(b, mb.Base+MBOX_STATUS, STATUS_EMPTY, 1, 0, retries) {
			mb.pending, mb.hasPending = msg, true
			return fmt.Errorf("%w, inbound channel empty", ErrTimeout)
		}

		if b.Read(mb.Base+MBOX_READ) == msg {
			break
		}
	}

	if err = m.UnmarshalBinary(mb.Buffer); err != nil {
		return fmt.Errorf("could not decode response, %v", err)
	}

	if m.Code != Response {
		return fmt.Errorf("%w, code %#x", ErrResponse, m.Code)
	}

	for _, t := range m.Tags {
		if !t.Valid {
			return fmt.Errorf("%w, tag %#x not honored", ErrResponse, t.ID)
		}
	}

	return
}

// Last returns the last message submitted with Call.
func (mb *Mailbox) Last() *Message {
	return mb.last
}
