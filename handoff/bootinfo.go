// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"github.com/usbarmory/go-mboot/multiboot"
)

// AssembleBootInfo zeroes buf and fills in the Multiboot information
// structure with the command line and memory map locations of the argument
// layout. All other fields, including flags, are left zero.
func AssembleBootInfo(buf []byte, layout *Layout, mmapLength int) error {
	if len(buf) < multiboot.InfoSize {
		return failf(AllocationFailure, "boot information buffer too small (%d < %d)", len(buf), multiboot.InfoSize)
	}

	clear(buf)

	info := &multiboot.Info{
		CmdLine:    uint32(layout.CmdLine.Start),
		MmapLength: uint32(mmapLength),
		MmapAddr:   uint32(layout.MemoryMap.Start),
	}

	info.Put(buf)

	return nil
}
