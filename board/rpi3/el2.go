// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm64 && !el1

package rpi3

// Execution continues at the reset exception level.
const dropPrivilege = false
