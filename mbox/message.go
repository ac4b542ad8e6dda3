// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Request/response codes
const (
	Request  = 0x00000000
	Response = 0x80000000
)

// Tag length word response indicator
const tagResponse = 31

// TagLast terminates the tag list of a message.
const TagLast = 0x00000000

// Tag represents a property tag, a self-describing request/response record
// identifying a single firmware property.
type Tag struct {
	// ID is the tag identifier.
	ID uint32

	// Buffer holds the request value words and, after a call, the
	// response ones. Its length sets the tag value buffer size.
	Buffer []uint32

	// Length holds the response value length, in bytes, reported by the
	// firmware.
	Length uint32

	// Valid reports whether the firmware has processed the tag.
	Valid bool
}

// Message represents a property channel message.
type Message struct {
	// Code holds the request/response code.
	Code uint32

	// Tags holds the property tags carried by the message.
	Tags []*Tag
}

// Size returns the encoded message size in bytes.
func (m *Message) Size() int {
	// buffer size, code, end tag
	n := 3

	for _, t := range m.Tags {
		// tag identifier, buffer size, request/response length
		n += 3 + len(t.Buffer)
	}

	return n * 4
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
//
// The message is always encoded as a request, any response code and tag
// response length left by a previous call are not carried over.
func (m *Message) MarshalBinary() (data []byte, err error) {
	words := []uint32{uint32(m.Size()), Request}

	for _, t := range m.Tags {
		words = append(words, t.ID, uint32(len(t.Buffer)*4), 0)
		words = append(words, t.Buffer...)
	}

	words = append(words, TagLast)

	buf := new(bytes.Buffer)
	err = binary.Write(buf, binary.LittleEndian, words)

	return buf.Bytes(), err
}

// reset clears the response state of the message.
func (m *Message) reset() {
	m.Code = Request

	for _, t := range m.Tags {
		t.Length = 0
		t.Valid = false
	}
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
//
// The message tag list must already describe the encoded tags, as the tag
// value buffers are updated in place.
func (m *Message) UnmarshalBinary(data []byte) (err error) {
	if len(data) < m.Size() {
		return errors.New("invalid message size")
	}

	words := make([]uint32, m.Size()/4)

	if _, err = binary.Decode(data, binary.LittleEndian, words); err != nil {
		return
	}

	if int(words[0]) != m.Size() {
		return fmt.Errorf("invalid message size %d", words[0])
	}

	m.Code = words[1]
	off := 2

	for _, t := range m.Tags {
		if words[off] != t.ID {
			return fmt.Errorf("unexpected tag %#x", words[off])
		}

		if int(words[off+1]) != len(t.Buffer)*4 {
			return fmt.Errorf("invalid tag %#x buffer size", t.ID)
		}

		t.Valid = words[off+2]&(1<<tagResponse) != 0
		t.Length = words[off+2] &^ (1 << tagResponse)

		off += 3
		copy(t.Buffer, words[off:off+len(t.Buffer)])
		off += len(t.Buffer)
	}

	if words[off] != TagLast {
		return errors.New("missing end tag")
	}

	return
}
