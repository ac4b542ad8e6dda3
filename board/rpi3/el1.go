// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm64 && el1

package rpi3

// EL2 to EL1 transition through exception return (experimental).
const dropPrivilege = true
