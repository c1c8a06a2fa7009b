// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"github.com/u-root/u-root/pkg/boot/bzimage"

	"github.com/usbarmory/go-mboot/uefi"
)

// Usable reports whether the memory described by an EFI Memory Descriptor
// can be used by the kernel: only write-back cacheable memory which becomes
// free once boot services are exited qualifies.
func Usable(d *uefi.MemoryDescriptor) bool {
	switch d.Type {
	case uefi.EfiLoaderCode, uefi.EfiLoaderData, uefi.EfiBootServicesCode, uefi.EfiBootServicesData, uefi.EfiConventionalMemory:
		return d.Attribute&uefi.EFI_MEMORY_WB != 0
	default:
		return false
	}
}

// Translate converts an EFI Memory Map to an E820 one, with one entry for
// each descriptor in firmware enumeration order. Entries are neither sorted
// nor merged.
func Translate(m *uefi.MemoryMap) (entries []bzimage.E820Entry) {
	entries = make([]bzimage.E820Entry, 0, len(m.Descriptors))

	for _, d := range m.Descriptors {
		e := bzimage.E820Entry{
			Addr:    d.PhysicalStart,
			Size:    d.Size(),
			MemType: bzimage.Reserved,
		}

		if Usable(d) {
			e.MemType = bzimage.RAM
		}

		entries = append(entries, e)
	}

	return
}
