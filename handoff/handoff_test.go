// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/usbarmory/go-mboot/uefi"
)

type descriptor struct {
	typ   uint32
	start uint64
	pages uint64
	attr  uint64
}

func testMemoryMap(t *testing.T, stride int, descs ...descriptor) *uefi.MemoryMap {
	t.Helper()

	le := binary.LittleEndian
	buf := make([]byte, stride*len(descs))

	for i, d := range descs {
		off := i * stride
		le.PutUint32(buf[off:], d.typ)
		le.PutUint64(buf[off+8:], d.start)
		le.PutUint64(buf[off+16:], d.start)
		le.PutUint64(buf[off+24:], d.pages)
		le.PutUint64(buf[off+32:], d.attr)
	}

	m, err := uefi.NewMemoryMap(buf, uint64(len(buf)), uint64(stride))

	if err != nil {
		t.Fatal(err)
	}

	return m
}

type fakeFirmware struct {
	m      *uefi.MemoryMap
	mapErr error

	// fail allocations at this address
	failAt uint64

	allocs []Range
	frees  []Range
}

func (f *fakeFirmware) GetMemoryMap() (*uefi.MemoryMap, error) {
	return f.m, f.mapErr
}

func (f *fakeFirmware) AllocatePages(allocateType int, memoryType int, size int, addr uint64) error {
	if allocateType != uefi.AllocateAddress || memoryType != uefi.EfiLoaderData {
		return uefi.ErrorStatus(uefi.EFI_INVALID_PARAMETER)
	}

	if size%uefi.PageSize != 0 || addr%uefi.PageSize != 0 {
		return uefi.ErrorStatus(uefi.EFI_INVALID_PARAMETER)
	}

	if f.failAt != 0 && addr == f.failAt {
		return uefi.ErrorStatus(uefi.EFI_NOT_FOUND)
	}

	f.allocs = append(f.allocs, Range{addr, uint64(size)})

	return nil
}

func (f *fakeFirmware) FreePages(addr uint64, size int) error {
	f.frees = append(f.frees, Range{addr, uint64(size)})
	return nil
}

type fakeMemory struct {
	windows map[uint64][]byte
}

func (m *fakeMemory) Map(r Range) ([]byte, error) {
	if m.windows == nil {
		m.windows = make(map[uint64][]byte)
	}

	buf := make([]byte, r.Size)

	// stale content, expected to be overwritten
	for i := range buf {
		buf[i] = 0xaa
	}

	m.windows[r.Start] = buf

	return buf, nil
}

func TestClassification(t *testing.T) {
	for _, tt := range []struct {
		typ    uint32
		attr   uint64
		usable bool
	}{
		{uefi.EfiLoaderCode, uefi.EFI_MEMORY_WB, true},
		{uefi.EfiLoaderData, uefi.EFI_MEMORY_WB | uefi.EFI_MEMORY_UC, true},
		{uefi.EfiBootServicesCode, uefi.EFI_MEMORY_WB, true},
		{uefi.EfiBootServicesData, uefi.EFI_MEMORY_WB, true},
		{uefi.EfiConventionalMemory, uefi.EFI_MEMORY_WB, true},
		{uefi.EfiConventionalMemory, uefi.EFI_MEMORY_UC, false},
		{uefi.EfiConventionalMemory, 0, false},
		{uefi.EfiReservedMemoryType, uefi.EFI_MEMORY_WB, false},
		{uefi.EfiRuntimeServicesCode, uefi.EFI_MEMORY_WB, false},
		{uefi.EfiRuntimeServicesData, uefi.EFI_MEMORY_WB, false},
		{uefi.EfiUnusableMemory, uefi.EFI_MEMORY_WB, false},
		{uefi.EfiACPIReclaimMemory, uefi.EFI_MEMORY_WB, false},
		{uefi.EfiACPIMemoryNVS, uefi.EFI_MEMORY_WB, false},
		{uefi.EfiMemoryMappedIO, uefi.EFI_MEMORY_UC, false},
		{uefi.EfiPersistentMemory, uefi.EFI_MEMORY_WB, false},
	} {
		d := &uefi.MemoryDescriptor{Type: tt.typ, Attribute: tt.attr}

		if got := Usable(d); got != tt.usable {
			t.Errorf("type %d attribute %#x: usable %v, expected %v", tt.typ, tt.attr, got, tt.usable)
		}
	}
}

func TestTranslate(t *testing.T) {
	m := testMemoryMap(t, uefi.MemoryDescriptorSize,
		descriptor{uefi.EfiLoaderCode, 0x100000, 2, uefi.EFI_MEMORY_WB},
		descriptor{uefi.EfiConventionalMemory, 0x200000, 10, uefi.EFI_MEMORY_WB},
		descriptor{uefi.EfiMemoryMappedIO, 0xfed00000, 1, uefi.EFI_MEMORY_UC},
	)

	entries := Translate(m)

	if len(entries) != 3 {
		t.Fatalf("unexpected number of entries (%d)", len(entries))
	}

	types := []uint32{1, 1, 2}
	sizes := []uint64{8192, 40960, 4096}

	for i, e := range entries {
		if uint32(e.MemType) != types[i] || e.Size != sizes[i] {
			t.Errorf("entry %d: type %d size %d, expected type %d size %d", i, e.MemType, e.Size, types[i], sizes[i])
		}

		if e.Addr != m.Descriptors[i].PhysicalStart {
			t.Errorf("entry %d: address %#x, expected %#x", i, e.Addr, m.Descriptors[i].PhysicalStart)
		}
	}
}

func TestTranslateStride(t *testing.T) {
	// firmware descriptors can be larger than the structure definition
	m := testMemoryMap(t, 48,
		descriptor{uefi.EfiBootServicesData, 0x0, 0x9f, uefi.EFI_MEMORY_WB},
		descriptor{uefi.EfiReservedMemoryType, 0x9f000, 1, uefi.EFI_MEMORY_WB},
		descriptor{uefi.EfiConventionalMemory, 0x100000, 0x700, uefi.EFI_MEMORY_WB},
		descriptor{uefi.EfiACPIReclaimMemory, 0x800000, 4, uefi.EFI_MEMORY_WB},
		descriptor{uefi.EfiLoaderData, 0x804000, 0x10, uefi.EFI_MEMORY_WB},
	)

	entries := Translate(m)
	starts := []uint64{0x0, 0x9f000, 0x100000, 0x800000, 0x804000}

	if len(entries) != len(starts) {
		t.Fatalf("unexpected number of entries (%d)", len(entries))
	}

	for i, e := range entries {
		if e.Addr != starts[i] {
			t.Errorf("entry %d out of order (%#x)", i, e.Addr)
		}
	}
}

func TestTranslateEmpty(t *testing.T) {
	if entries := Translate(&uefi.MemoryMap{}); len(entries) != 0 {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestLayoutValidate(t *testing.T) {
	if err := DefaultLayout().Validate(); err != nil {
		t.Fatal(err)
	}

	l := DefaultLayout()
	l.Kernel = Range{0x1000, 0x10000}
	l.Entry = 0x1010

	if err := l.Validate(); !errors.Is(err, AllocationFailure) {
		t.Fatalf("overlapping layout accepted (%v)", err)
	}

	l = DefaultLayout()
	l.Entry = l.Kernel.End()

	if err := l.Validate(); !errors.Is(err, ControlTransferFailure) {
		t.Fatalf("entry point outside kernel accepted (%v)", err)
	}

	l = DefaultLayout()
	l.CmdLine = Range{0xfffff000, 0x2000}

	if err := l.Validate(); !errors.Is(err, AllocationFailure) {
		t.Fatalf("range above 4GB accepted (%v)", err)
	}

	l = DefaultLayout()
	l.BootInfo.Size = 0x10

	if err := l.Validate(); !errors.Is(err, AllocationFailure) {
		t.Fatalf("short boot information range accepted (%v)", err)
	}
}

func TestRangeOverlaps(t *testing.T) {
	a := Range{0x1000, 0x100}

	for _, tt := range []struct {
		b        Range
		overlaps bool
	}{
		{Range{0x1100, 0x100}, false},
		{Range{0x0f00, 0x100}, false},
		{Range{0x10ff, 0x1}, true},
		{Range{0x0f00, 0x101}, true},
		{Range{0x1000, 0x0}, false},
	} {
		if a.Overlaps(tt.b) != tt.overlaps || tt.b.Overlaps(a) != tt.overlaps {
			t.Errorf("%v and %v: expected overlap %v", a, tt.b, tt.overlaps)
		}
	}
}

func TestStatus(t *testing.T) {
	if s := Status(nil); s != uefi.EFI_SUCCESS {
		t.Fatalf("unexpected status %#x", s)
	}

	err := failf(FileReadFailure, "short read")

	if s := Status(err); s != uint64(uefi.ErrorStatus(uefi.EFI_END_OF_FILE)) {
		t.Fatalf("unexpected status %#x", s)
	}

	err = fail(AllocationFailure, uefi.ErrorStatus(uefi.EFI_NOT_FOUND))

	if s := Status(err); s != uint64(uefi.ErrorStatus(uefi.EFI_NOT_FOUND)) {
		t.Fatalf("unexpected status %#x", s)
	}

	if !errors.Is(err, AllocationFailure) || errors.Is(err, FileReadFailure) {
		t.Fatal("unexpected failure class match")
	}

	if s := Status(errors.New("other")); s != uint64(uefi.ErrorStatus(uefi.EFI_LOAD_ERROR)) {
		t.Fatalf("unexpected status %#x", s)
	}
}
