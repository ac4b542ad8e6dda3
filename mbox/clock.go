// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mbox

import (
	"fmt"
)

// Clock tags
const (
	TagGetClockRate = 0x00030002
	TagSetClockRate = 0x00038002
)

// Clock identifiers
const (
	ClockEMMC  = 0x1
	ClockUART  = 0x2
	ClockARM   = 0x3
	ClockCore  = 0x4
	ClockV3D   = 0x5
	ClockH264  = 0x6
	ClockISP   = 0x7
	ClockSDRAM = 0x8
	ClockPixel = 0x9
	ClockPWM   = 0xa
)

func (mb *Mailbox) clockTag(t *Tag, id uint32) (rate uint32, err error) {
	m := &Message{
		Code: Request,
		Tags: []*Tag{t},
	}

	if err = mb.Call(ChannelProperty, m); err != nil {
		return
	}

	if t.Buffer[0] != id {
		return 0, fmt.Errorf("%w, unexpected clock %#x", ErrResponse, t.Buffer[0])
	}

	return t.Buffer[1], nil
}

// ClockRate returns the rate, in Hz, of the argument clock.
func (mb *Mailbox) ClockRate(id uint32) (rate uint32, err error) {
	t := &Tag{
		ID:     TagGetClockRate,
		Buffer: []uint32{id, 0},
	}

	return mb.clockTag(t, id)
}

// SetClockRate requests the argument rate, in Hz, for a clock and returns the
// rate actually set by the firmware. The skipTurbo flag prevents the firmware
// from raising other clocks when the ARM clock is set above its default.
func (mb *Mailbox) SetClockRate(id uint32, rate uint32, skipTurbo bool) (uint32, error) {
	var skip uint32

	if skipTurbo {
		skip = 1
	}

	t := &Tag{
		ID:     TagSetClockRate,
		Buffer: []uint32{id, rate, skip},
	}

	return mb.clockTag(t, id)
}
