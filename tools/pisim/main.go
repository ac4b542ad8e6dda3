// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// The pisim command runs the pi-boot bring-up sequence against a simulated
// Raspberry Pi 3, with a console on the local terminal or over SSH.
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"os"

	"github.com/gliderlabs/ssh"
	"golang.org/x/term"

	"github.com/usbarmory/pi-boot/cmd"
	"github.com/usbarmory/pi-boot/shell"
	"github.com/usbarmory/pi-boot/sim"
)

// Build time variables
var (
	Revision string
	Build    string
)

type config struct {
	addr  string
	keys  string
	clock uint
}

var conf config

type console struct {
	io.Reader
	io.Writer
}

func init() {
	log.SetFlags(0)

	flag.StringVar(&conf.addr, "a", "", "SSH listen address (e.g. localhost:2222), local terminal when empty")
	flag.StringVar(&conf.keys, "k", "", "SSH authorized keys file")
	flag.UintVar(&conf.clock, "clock", sim.DefaultUARTClock, "firmware UART clock (Hz)")
}

func authorizedKeys(path string) (keys []ssh.PublicKey, err error) {
	buf, err := os.ReadFile(path)

	if err != nil {
		return
	}

	for len(buf) > 0 {
		var key ssh.PublicKey

		if key, _, _, buf, err = ssh.ParseAuthorizedKey(buf); err != nil {
			break
		}

		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return nil, err
	}

	return keys, nil
}

// checkListen refuses unauthenticated access on addresses other than
// loopback ones.
func checkListen(addr string, keys []ssh.PublicKey) error {
	host, _, err := net.SplitHostPort(addr)

	if err != nil {
		return err
	}

	if len(keys) > 0 || host == "localhost" {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}

	return errors.New("authorized keys are required on non-loopback addresses")
}

func serve(addr string, keys []ssh.PublicKey) error {
	var opts []ssh.Option

	if err := checkListen(addr, keys); err != nil {
		return err
	}

	ssh.Handle(func(s ssh.Session) {
		_, _, isPty := s.Pty()

		log.Printf("%s connected", s.RemoteAddr())

		iface := &shell.Interface{
			Banner:     cmd.Banner(),
			ReadWriter: s,
			VT100:      isPty,
		}

		iface.Start()

		log.Printf("%s disconnected", s.RemoteAddr())
	})

	if len(keys) > 0 {
		opts = append(opts, ssh.PublicKeyAuth(func(_ ssh.Context, key ssh.PublicKey) bool {
			for _, k := range keys {
				if ssh.KeysEqual(key, k) {
					return true
				}
			}

			return false
		}))
	} else {
		log.Printf("WARNING: no authorized keys, SSH authentication is disabled")
	}

	log.Printf("starting SSH server on %s", addr)

	return ssh.ListenAndServe(addr, nil, opts...)
}

func main() {
	flag.Parse()

	cmd.Revision = Revision
	cmd.Build = Build
	cmd.Firmware.UARTClock = uint32(conf.clock)

	if len(conf.addr) > 0 {
		var keys []ssh.PublicKey
		var err error

		if len(conf.keys) > 0 {
			if keys, err = authorizedKeys(conf.keys); err != nil {
				log.Fatalf("could not load authorized keys, %v", err)
			}
		}

		if err = serve(conf.addr, keys); err != nil {
			log.Fatalf("could not start SSH server, %v", err)
		}

		return
	}

	fd := int(os.Stdin.Fd())

	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)

		if err != nil {
			log.Fatalf("could not set raw terminal, %v", err)
		}

		defer term.Restore(fd, oldState)
	}

	iface := &shell.Interface{
		Banner:     cmd.Banner(),
		ReadWriter: &console{os.Stdin, os.Stdout},
		VT100:      true,
	}

	iface.Start()
}
