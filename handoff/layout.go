// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"fmt"

	"github.com/usbarmory/go-mboot/multiboot"
)

// Boot information handed to the kernel carries 32-bit pointers.
const maxAddress = 1 << 32

// Range represents a physical address range.
type Range struct {
	Start uint64
	Size  uint64
}

// End returns the first address past the range.
func (r Range) End() uint64 {
	return r.Start + r.Size
}

// Contains reports whether addr falls within the range.
func (r Range) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End()
}

// Overlaps reports whether the two ranges share at least one address.
func (r Range) Overlaps(o Range) bool {
	return r.Size > 0 && o.Size > 0 && r.Start < o.End() && o.Start < r.End()
}

func (r Range) String() string {
	return fmt.Sprintf("%#08x-%#08x", r.Start, r.End())
}

// Layout represents the handoff ABI agreed with the kernel at build time.
type Layout struct {
	// CmdLine is the NUL terminated kernel command line buffer.
	CmdLine Range
	// Kernel is the image load target, its size bounds the image size.
	Kernel Range
	// BootInfo is the Multiboot information structure.
	BootInfo Range
	// MemoryMap is the Multiboot memory map array.
	MemoryMap Range
	// Stack is the pre-transfer stack, it grows down from its end.
	Stack Range
	// Entry is the kernel entry point, within Kernel.
	Entry uint64
}

// Default handoff ABI addresses
const (
	CmdLineAddress   = 0x7e00
	KernelAddress    = 0x200000
	BootInfoAddress  = 0x1000
	MemoryMapAddress = 0x1100
	StackAddress     = 0x1200
	EntryAddress     = 0x21022e
)

// DefaultLayout returns the default handoff ABI.
func DefaultLayout() *Layout {
	return &Layout{
		CmdLine:   Range{CmdLineAddress, 0x200},
		Kernel:    Range{KernelAddress, 0x2000000 - KernelAddress},
		BootInfo:  Range{BootInfoAddress, multiboot.InfoSize},
		MemoryMap: Range{MemoryMapAddress, StackAddress - MemoryMapAddress},
		Stack:     Range{StackAddress, 0x2000 - StackAddress},
		Entry:     EntryAddress,
	}
}

// NamedRange associates a layout range with its purpose.
type NamedRange struct {
	Name string
	Range
}

// Ranges returns all layout ranges.
func (l *Layout) Ranges() []NamedRange {
	return []NamedRange{
		{"command line", l.CmdLine},
		{"kernel", l.Kernel},
		{"boot information", l.BootInfo},
		{"memory map", l.MemoryMap},
		{"stack", l.Stack},
	}
}

// Validate verifies that all ranges are non-empty, addressable by the boot
// information pointers and pairwise disjoint and that the entry point falls
// within the kernel range.
func (l *Layout) Validate() error {
	ranges := l.Ranges()

	if l.BootInfo.Size < multiboot.InfoSize {
		return failf(AllocationFailure, "boot information range %v is smaller than %d bytes", l.BootInfo, multiboot.InfoSize)
	}

	for i, a := range ranges {
		if a.Size == 0 || a.End() < a.Start || a.End() > maxAddress {
			return failf(AllocationFailure, "invalid %s range %v", a.Name, a.Range)
		}

		for _, b := range ranges[i+1:] {
			if a.Overlaps(b.Range) {
				return failf(AllocationFailure, "%s range %v overlaps %s range %v", a.Name, a.Range, b.Name, b.Range)
			}
		}
	}

	if !l.Kernel.Contains(l.Entry) {
		return failf(ControlTransferFailure, "entry point %#08x outside kernel range %v", l.Entry, l.Kernel)
	}

	return nil
}
