// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build debug

package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/arl/statsviz"
)

const debugAddr = "localhost:6060"

func init() {
	if err := statsviz.RegisterDefault(); err != nil {
		log.Printf("could not register statsviz, %v", err)
		return
	}

	go func() {
		log.Printf("debug server on http://%s/debug/statsviz", debugAddr)
		log.Println(http.ListenAndServe(debugAddr, nil))
	}()
}
