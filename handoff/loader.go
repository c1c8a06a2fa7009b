// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package handoff implements the final stage of a Multiboot boot loader:
// the translation of the firmware memory map to E820 format, the assembly of
// the Multiboot information structure, the loading of the kernel image at its
// fixed address and the transfer of control to its entry point.
package handoff

import (
	"io"
	"io/fs"
	"log"

	"github.com/u-root/u-root/pkg/boot/bzimage"

	"github.com/usbarmory/go-mboot/multiboot"
	"github.com/usbarmory/go-mboot/uefi"
)

// Firmware represents the boot services required for a boot attempt.
type Firmware interface {
	Allocator
	GetMemoryMap() (*uefi.MemoryMap, error)
}

// Loader represents a single boot attempt.
type Loader struct {
	// Layout represents the handoff address layout
	Layout *Layout
	// Path represents the kernel image path on the boot volume
	Path string
	// CommandLine represents the kernel command line
	CommandLine string

	// Firmware represents the firmware boot services
	Firmware Firmware
	// Root returns the boot volume
	Root func() (fs.FS, error)
	// Memory provides access to the reserved ranges
	Memory Memory

	// Cleanup, if set, is invoked right before control transfer, it
	// typically exits firmware boot services.
	Cleanup func() error
	// Trampoline performs the final jump
	Trampoline Trampoline

	// Entries holds the E820 memory map passed to the kernel
	Entries []bzimage.E820Entry
}

// Boot performs the boot attempt, which on success never returns.
//
// All fixed ranges are claimed from firmware before being populated and are
// returned to it on any failure preceding the control transfer.
func (l *Loader) Boot() (err error) {
	layout := l.Layout

	if layout == nil {
		layout = DefaultLayout()
	}

	if err = layout.Validate(); err != nil {
		return
	}

	m, err := l.Firmware.GetMemoryMap()

	if err != nil {
		return fail(MemoryMapQueryFailure, err)
	}

	l.Entries = Translate(m)

	for _, e := range l.Entries {
		log.Printf("E820: %d, %#016x-%#016x", e.MemType, e.Addr, e.Addr+e.Size)
	}

	mmapLength := multiboot.MemoryMapLength(len(l.Entries))

	if uint64(mmapLength) > layout.MemoryMap.Size {
		return failf(AllocationFailure, "memory map (%d descriptors, %d bytes) exceeds range %v", len(l.Entries), mmapLength, layout.MemoryMap)
	}

	cmdline := append([]byte(l.CommandLine), 0x00)

	if uint64(len(cmdline)) > layout.CmdLine.Size {
		return failf(AllocationFailure, "command line (%d bytes) exceeds range %v", len(cmdline), layout.CmdLine)
	}

	res := &Reservations{
		Allocator: l.Firmware,
		Memory:    l.Memory,
	}

	defer func() {
		if rerr := res.Release(); rerr != nil {
			log.Printf("could not release memory, %v", rerr)
		}
	}()

	buf, err := res.Reserve(layout.MemoryMap)

	if err != nil {
		return
	}

	clear(buf)

	if _, err = multiboot.PutMemoryMap(buf, l.Entries); err != nil {
		return fail(AllocationFailure, err)
	}

	if buf, err = res.Reserve(layout.CmdLine); err != nil {
		return
	}

	clear(buf)
	copy(buf, cmdline)

	if buf, err = res.Reserve(layout.BootInfo); err != nil {
		return
	}

	if err = AssembleBootInfo(buf, layout, mmapLength); err != nil {
		return
	}

	if buf, err = res.Reserve(layout.Stack); err != nil {
		return
	}

	clear(buf)

	img, err := l.load(layout)

	if err != nil {
		return
	}

	if !img.Range().Contains(img.EntryAddress) {
		return failf(ControlTransferFailure, "entry point %#08x outside image %v", img.EntryAddress, img.Range())
	}

	if buf, err = res.Reserve(img.Range()); err != nil {
		return
	}

	log.Printf("loading kernel@%#08x (%d bytes)", img.LoadAddress, img.Size())
	copy(buf, img.Data)

	if err = Verify(img.Data, buf, len(img.Data)); err != nil {
		return
	}

	stack := layout.Stack.End()

	log.Printf("starting kernel@%#08x info@%#08x stack@%#08x", img.EntryAddress, layout.BootInfo.Start, stack)

	if l.Cleanup != nil {
		if err = l.Cleanup(); err != nil {
			return fail(ControlTransferFailure, err)
		}
	}

	// boot services are gone, ranges now belong to the kernel
	res.Commit()

	return Transfer(l.Trampoline, img.EntryAddress, layout.BootInfo.Start, stack)
}

func (l *Loader) load(layout *Layout) (img *Image, err error) {
	if l.Root == nil {
		return nil, failf(FileSystemUnavailable, "missing boot volume")
	}

	root, err := l.Root()

	if err != nil {
		return nil, fail(FileSystemUnavailable, err)
	}

	if c, ok := root.(io.Closer); ok {
		defer c.Close()
	}

	path := l.Path

	if path == "" {
		path = DefaultKernelPath
	}

	log.Printf("reading kernel %s", path)

	return LoadKernel(root, path, layout)
}
