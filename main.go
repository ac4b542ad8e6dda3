// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm64

package main

import (
	"log"

	"github.com/usbarmory/pi-boot/board/rpi3"
	"github.com/usbarmory/pi-boot/boot"
)

// Build time variables
var (
	Revision string
	Build    string
)

func init() {
	log.SetFlags(0)
}

func main() {
	s := rpi3.Sequence()

	if s.Run() == boot.Halted {
		rpi3.Halt(s)
	}

	boot.Idle(rpi3.CPU)
}
