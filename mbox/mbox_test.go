// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mbox_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/usbarmory/pi-boot/mbox"
	"github.com/usbarmory/pi-boot/sim"
)

func TestSetClockRate(t *testing.T) {
	board := sim.NewBoard()
	mb := board.Mailbox()

	rate, err := mb.SetClockRate(mbox.ClockUART, 4000000, true)

	if err != nil {
		t.Fatal(err)
	}

	if rate != sim.DefaultUARTClock {
		t.Fatalf("unexpected rate %d", rate)
	}

	ex := board.Exchanges()

	if len(ex) != 1 {
		t.Fatalf("unexpected number of exchanges %d", len(ex))
	}

	if ex[0].Channel != mbox.ChannelProperty {
		t.Fatalf("unexpected channel %d", ex[0].Channel)
	}

	request := []uint32{
		9 * 4,
		mbox.Request,
		mbox.TagSetClockRate, 12, 0,
		mbox.ClockUART, 4000000, 1,
		mbox.TagLast,
	}

	for i, w := range request {
		if ex[0].Request[i] != w {
			t.Fatalf("request word %d, got %#x, expected %#x", i, ex[0].Request[i], w)
		}
	}

	if ex[0].Response[1] != mbox.Response {
		t.Fatalf("unexpected response code %#x", ex[0].Response[1])
	}
}

func TestClockRate(t *testing.T) {
	board := sim.NewBoard()
	board.UARTClock = 3000000

	rate, err := board.Mailbox().ClockRate(mbox.ClockUART)

	if err != nil {
		t.Fatal(err)
	}

	if rate != 3000000 {
		t.Fatalf("unexpected rate %d", rate)
	}
}

func TestCallInterleaved(t *testing.T) {
	board := sim.NewBoard()
	board.Interleave = true

	if _, err := board.Mailbox().SetClockRate(mbox.ClockUART, 4000000, true); err != nil {
		t.Fatal(err)
	}
}

func TestCallErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		mode sim.Mode
		err  error
	}{
		{"reject", sim.Reject, mbox.ErrResponse},
		{"ignore", sim.Ignore, mbox.ErrResponse},
		{"silent", sim.Silent, mbox.ErrTimeout},
	} {
		t.Run(tt.name, func(t *testing.T) {
			board := sim.NewBoard()
			board.Mode = tt.mode

			mb := board.Mailbox()
			mb.Retries = 16

			_, err := mb.SetClockRate(mbox.ClockUART, 4000000, true)

			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, expected %v", err, tt.err)
			}
		})
	}
}

func TestCallUnsupportedTag(t *testing.T) {
	board := sim.NewBoard()
	mb := board.Mailbox()

	m := &mbox.Message{
		Tags: []*mbox.Tag{
			{ID: 0x00010002, Buffer: []uint32{0}},
		},
	}

	if err := mb.Call(mbox.ChannelProperty, m); !errors.Is(err, mbox.ErrResponse) {
		t.Fatalf("unexpected error %v", err)
	}

	if m.Code != mbox.Response {
		t.Fatalf("unexpected code %#x", m.Code)
	}
}

func TestCallBuffer(t *testing.T) {
	board := sim.NewBoard()

	mb := board.Mailbox()
	mb.Addr += 4

	if _, err := mb.ClockRate(mbox.ClockUART); !errors.Is(err, mbox.ErrAlignment) {
		t.Fatalf("unexpected error %v", err)
	}

	mb = board.Mailbox()
	mb.Buffer = mb.Buffer[:16]

	if _, err := mb.ClockRate(mbox.ClockUART); !errors.Is(err, mbox.ErrBufferSize) {
		t.Fatalf("unexpected error %v", err)
	}

	if len(board.Exchanges()) != 0 {
		t.Fatal("unexpected mailbox exchange")
	}
}

func TestCallReusedMessage(t *testing.T) {
	board := sim.NewBoard()
	mb := board.Mailbox()

	tag := &mbox.Tag{
		ID:     mbox.TagGetClockRate,
		Buffer: []uint32{mbox.ClockUART, 0},
	}

	m := &mbox.Message{Tags: []*mbox.Tag{tag}}

	if err := mb.Call(mbox.ChannelProperty, m); err != nil {
		t.Fatal(err)
	}

	if !tag.Valid || m.Code != mbox.Response {
		t.Fatal("unexpected response state")
	}

	// tags are now left unprocessed
	board.Mode = sim.Ignore

	if err := mb.Call(mbox.ChannelProperty, m); !errors.Is(err, mbox.ErrResponse) {
		t.Fatalf("unexpected error %v", err)
	}

	if tag.Valid {
		t.Fatal("stale tag response accepted")
	}

	ex := board.Exchanges()

	if len(ex) != 2 {
		t.Fatalf("unexpected number of exchanges %d", len(ex))
	}

	// code, tag request length
	if ex[1].Request[1] != mbox.Request || ex[1].Request[4] != 0 {
		t.Fatalf("unexpected request code:%#x length:%#x", ex[1].Request[1], ex[1].Request[4])
	}
}

// lateBus delivers doorbell writes to the firmware only after a number of
// status reads.
type lateBus struct {
	*sim.Board

	delay int
	wait  int
	queue []uint32
}

func (b *lateBus) Write(addr uint32, val uint32) {
	if addr == sim.MailboxBase+mbox.MBOX_WRITE {
		b.queue = append(b.queue, val)
		b.wait = b.delay
		return
	}

	b.Board.Write(addr, val)
}

func (b *lateBus) Read(addr uint32) uint32 {
	if addr == sim.MailboxBase+mbox.MBOX_STATUS && len(b.queue) > 0 {
		if b.wait > 0 {
			b.wait--
			return 1 << mbox.STATUS_EMPTY
		}

		val := b.queue[0]
		b.queue = b.queue[1:]
		b.Board.Write(addr-mbox.MBOX_STATUS+mbox.MBOX_WRITE, val)
	}

	return b.Board.Read(addr)
}

func TestCallPending(t *testing.T) {
	board := sim.NewBoard()
	bus := &lateBus{Board: board, delay: 100}

	mb := board.Mailbox()
	mb.Bus = bus
	mb.Retries = 4

	if _, err := mb.SetClockRate(mbox.ClockUART, 4000000, true); !errors.Is(err, mbox.ErrTimeout) {
		t.Fatalf("unexpected error %v", err)
	}

	request := append([]byte{}, mb.Buffer...)

	// firmware still processing the first request
	if _, err := mb.ClockRate(mbox.ClockUART); !errors.Is(err, mbox.ErrBusy) {
		t.Fatalf("unexpected error %v", err)
	}

	if !bytes.Equal(request, mb.Buffer) {
		t.Fatal("buffer written while owned by firmware")
	}

	if len(board.Exchanges()) != 0 {
		t.Fatal("unexpected mailbox exchange")
	}

	bus.wait = 0
	bus.delay = 0

	rate, err := mb.ClockRate(mbox.ClockUART)

	if err != nil {
		t.Fatal(err)
	}

	if rate != sim.DefaultUARTClock {
		t.Fatalf("unexpected rate %d", rate)
	}

	ex := board.Exchanges()

	if len(ex) != 2 || ex[0].Request[2] != mbox.TagSetClockRate || ex[1].Request[2] != mbox.TagGetClockRate {
		t.Fatal("unexpected mailbox exchanges")
	}
}
