// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package x64

import (
	"fmt"
	"runtime"
	_ "unsafe"

	"github.com/usbarmory/go-mboot/uefi"
)

// The image is linked at ramStart, above all handoff ranges including the
// largest kernel image.
//
//go:linkname ramStart runtime.ramStart
var ramStart uint64 = 0x04000000

//go:linkname RamSize runtime.ramSize
var RamSize uint64 = 0x10000000 // 256MB

func allocateHeap() {
	memoryMap, err := UEFI.Boot.GetMemoryMap()

	if err != nil {
		fmt.Printf("WARNING: could not get memory map, %v\n", err)
		return
	}

	heapStart := uint64(0)
	start, end := runtime.MemRegion()

	// locate runtime heap offset within UEFI memory allocation
	for _, desc := range memoryMap.Descriptors {
		if desc.Type == uefi.EfiLoaderCode && desc.PhysicalStart == start {
			heapStart = desc.PhysicalEnd()
			break
		}
	}

	if heapStart == 0 {
		fmt.Println("WARNING: could not find heap offset")
		return
	}

	if err := UEFI.Boot.AllocatePages(
		uefi.AllocateAddress,
		uefi.EfiLoaderData,
		int(end-heapStart),
		heapStart,
	); err != nil {
		fmt.Printf("WARNING: could not allocate heap at %#x, %v\n", heapStart, err)
	}
}
