// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !tamago

package uefi

import (
	"fmt"
)

// mapMemory is only available on bare metal, physical memory cannot be
// mapped from a hosted process.
func mapMemory(addr uint64, n int) (buf []byte, release func(), err error) {
	return nil, nil, fmt.Errorf("cannot map %d bytes at %#08x, physical memory unavailable", n, addr)
}
