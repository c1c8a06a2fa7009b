// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package handoff

import (
	"github.com/usbarmory/tamago/dma"
)

// DMA implements Memory through identity mapped TamaGo DMA regions.
type DMA struct{}

// Map returns a slice backed by the physical memory of the argument range.
func (DMA) Map(r Range) (buf []byte, err error) {
	mem, err := dma.NewRegion(uint(r.Start), int(r.Size), false)

	if err != nil {
		return
	}

	_, buf = mem.Reserve(int(r.Size), 0)

	return
}
