// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package uefi

import (
	"errors"

	"github.com/usbarmory/tamago/dma"
)

// mapMemory returns a slice directly mapped over n bytes of physical memory
// at addr, release must be called once the slice is no longer used.
func mapMemory(addr uint64, n int) (buf []byte, release func(), err error) {
	if addr == 0 {
		return nil, nil, errors.New("invalid address")
	}

	r, err := dma.NewRegion(uint(addr), n, false)

	if err != nil {
		return
	}

	ptr, buf := r.Reserve(n, 0)

	return buf, func() { r.Release(ptr) }, nil
}
