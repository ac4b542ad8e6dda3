// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/gliderlabs/ssh"
)

type testKey struct {
	ssh.PublicKey
}

func TestCheckListen(t *testing.T) {
	keys := []ssh.PublicKey{testKey{}}

	for _, tt := range []struct {
		addr string
		keys []ssh.PublicKey
		ok   bool
	}{
		{"localhost:2222", nil, true},
		{"127.0.0.1:2222", nil, true},
		{"[::1]:2222", nil, true},
		{":2222", nil, false},
		{"0.0.0.0:2222", nil, false},
		{"192.168.1.10:2222", nil, false},
		{"example.com:2222", nil, false},
		{":2222", keys, true},
		{"192.168.1.10:2222", keys, true},
		{"localhost", nil, false},
	} {
		if err := checkListen(tt.addr, tt.keys); (err == nil) != tt.ok {
			t.Fatalf("%s, unexpected result %v", tt.addr, err)
		}
	}
}
