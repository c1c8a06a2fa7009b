// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
	"fmt"
)

const (
	// EFI Boot Services offset for GetMemoryMap
	getMemoryMap = 0x38
	maxEntries   = 1000
)

// PageSize represents the EFI page size in bytes
const PageSize = 4096 // 4 KiB

// EFI_MEMORY_DESCRIPTOR Attribute bits
const (
	EFI_MEMORY_UC      = 0x0000000000000001
	EFI_MEMORY_WC      = 0x0000000000000002
	EFI_MEMORY_WT      = 0x0000000000000004
	EFI_MEMORY_WB      = 0x0000000000000008
	EFI_MEMORY_UCE     = 0x0000000000000010
	EFI_MEMORY_WP      = 0x0000000000001000
	EFI_MEMORY_RP      = 0x0000000000002000
	EFI_MEMORY_XP      = 0x0000000000004000
	EFI_MEMORY_NV      = 0x0000000000008000
	EFI_MEMORY_RUNTIME = 0x8000000000000000
)

// MemoryDescriptorSize represents the size of the EFI Memory Descriptor
// fields, firmware reported descriptor strides can only be larger.
const MemoryDescriptorSize = 40

// MemoryDescriptor represents an EFI Memory Descriptor
type MemoryDescriptor struct {
	Type          uint32
	_             uint32
	PhysicalStart uint64
	VirtualStart  uint64
	NumberOfPages uint64
	Attribute     uint64
}

// PhysicalEnd returns the descriptor physical end address.
func (d *MemoryDescriptor) PhysicalEnd() uint64 {
	return d.PhysicalStart + d.NumberOfPages*PageSize
}

// Size returns the descriptor size in bytes.
func (d *MemoryDescriptor) Size() uint64 {
	return d.NumberOfPages * PageSize
}

// MemoryMap represents an EFI Memory Map
type MemoryMap struct {
	MapSize           uint64
	Descriptors       []*MemoryDescriptor
	MapKey            uint64
	DescriptorSize    uint64
	DescriptorVersion uint32

	buf []byte
}

// NewMemoryMap returns the EFI Memory Map held in the first mapSize bytes of
// buf, where each descriptor begins descriptorSize bytes after the previous
// one.
func NewMemoryMap(buf []byte, mapSize uint64, descriptorSize uint64) (m *MemoryMap, err error) {
	m = &MemoryMap{
		MapSize:        mapSize,
		DescriptorSize: descriptorSize,
		buf:            buf,
	}

	if err = m.parse(); err != nil {
		return nil, err
	}

	return
}

func (m *MemoryMap) parse() (err error) {
	stride := m.DescriptorSize

	switch {
	case stride < MemoryDescriptorSize:
		return fmt.Errorf("invalid descriptor size (%d)", stride)
	case m.MapSize > uint64(len(m.buf)):
		return fmt.Errorf("memory map size exceeds buffer (%d > %d)", m.MapSize, len(m.buf))
	case m.MapSize%stride != 0:
		return fmt.Errorf("memory map size (%d) is not a multiple of descriptor size (%d)", m.MapSize, stride)
	}

	n := int(m.MapSize / stride)
	m.Descriptors = make([]*MemoryDescriptor, n)

	for i := 0; i < n; i++ {
		d := &MemoryDescriptor{}
		off := uint64(i) * stride

		if err = unmarshalBinary(m.buf[off:off+stride], d); err != nil {
			return
		}

		m.Descriptors[i] = d
	}

	return
}

// Address returns the EFI Memory Map pointer.
func (m *MemoryMap) Address() uint64 {
	return ptrval(&m.buf[0])
}

func (s *BootServices) getMemoryMap(m *MemoryMap) (status uint64) {
	return callService(s.base+getMemoryMap,
		[]uint64{
			ptrval(&m.MapSize),
			ptrval(&m.buf[0]),
			ptrval(&m.MapKey),
			ptrval(&m.DescriptorSize),
			ptrval(&m.DescriptorVersion),
		},
	)
}

// GetMemoryMap calls EFI_BOOT_SERVICES.GetMemoryMap().
func (s *BootServices) GetMemoryMap() (m *MemoryMap, err error) {
	n := MemoryDescriptorSize * maxEntries

	m = &MemoryMap{
		MapSize: uint64(n),
		buf:     make([]byte, n),
	}

	status := s.getMemoryMap(m)

	if status&0xff == EFI_BUFFER_TOO_SMALL && m.MapSize > 0 {
		// make room for descriptors created by our own allocation
		n = int(m.MapSize + 2*m.DescriptorSize)

		m.MapSize = uint64(n)
		m.buf = make([]byte, n)

		status = s.getMemoryMap(m)
	}

	if err = parseStatus(status); err != nil {
		return nil, err
	}

	if m.MapSize == 0 {
		return nil, errors.New("empty memory map")
	}

	if err = m.parse(); err != nil {
		return nil, err
	}

	return
}
