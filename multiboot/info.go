// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package multiboot implements the binary encoding of the boot information
// handed to a kernel, following the Multiboot Specification version 0.6.96:
//
//	https://www.gnu.org/software/grub/manual/multiboot/multiboot.html
//
// All structures are encoded at explicit offsets, little endian, without
// relying on Go struct layout.
package multiboot

import (
	"encoding/binary"
	"fmt"
)

// BootloaderMagic is the value found in EAX when a Multiboot compliant
// boot loader invokes the kernel.
const BootloaderMagic = 0x2badb002

// InfoSize represents the size of the Multiboot information structure.
const InfoSize = 88

// Multiboot information structure field offsets
const (
	offFlags           = 0
	offMemLower        = 4
	offMemUpper        = 8
	offBootDevice      = 12
	offCmdLine         = 16
	offModsCount       = 20
	offModsAddr        = 24
	offSyms            = 28
	offMmapLength      = 44
	offMmapAddr        = 48
	offDrivesLength    = 52
	offDrivesAddr      = 56
	offConfigTable     = 60
	offBootLoaderName  = 64
	offAPMTable        = 68
	offVBEControlInfo  = 72
	offVBEModeInfo     = 76
	offVBEMode         = 80
	offVBEInterfaceSeg = 82
	offVBEInterfaceOff = 84
	offVBEInterfaceLen = 86
)

// Info represents the Multiboot information structure (multiboot_info).
//
// A zero value field always means that the information is not supplied.
type Info struct {
	Flags           uint32
	MemLower        uint32
	MemUpper        uint32
	BootDevice      uint32
	CmdLine         uint32
	ModsCount       uint32
	ModsAddr        uint32
	Syms            [4]uint32
	MmapLength      uint32
	MmapAddr        uint32
	DrivesLength    uint32
	DrivesAddr      uint32
	ConfigTable     uint32
	BootLoaderName  uint32
	APMTable        uint32
	VBEControlInfo  uint32
	VBEModeInfo     uint32
	VBEMode         uint16
	VBEInterfaceSeg uint16
	VBEInterfaceOff uint16
	VBEInterfaceLen uint16
}

// Put encodes the structure in the first InfoSize bytes of buf, which must
// be large enough to hold it.
func (i *Info) Put(buf []byte) {
	le := binary.LittleEndian
	_ = buf[InfoSize-1]

	le.PutUint32(buf[offFlags:], i.Flags)
	le.PutUint32(buf[offMemLower:], i.MemLower)
	le.PutUint32(buf[offMemUpper:], i.MemUpper)
	le.PutUint32(buf[offBootDevice:], i.BootDevice)
	le.PutUint32(buf[offCmdLine:], i.CmdLine)
	le.PutUint32(buf[offModsCount:], i.ModsCount)
	le.PutUint32(buf[offModsAddr:], i.ModsAddr)

	for n, v := range i.Syms {
		le.PutUint32(buf[offSyms+4*n:], v)
	}

	le.PutUint32(buf[offMmapLength:], i.MmapLength)
	le.PutUint32(buf[offMmapAddr:], i.MmapAddr)
	le.PutUint32(buf[offDrivesLength:], i.DrivesLength)
	le.PutUint32(buf[offDrivesAddr:], i.DrivesAddr)
	le.PutUint32(buf[offConfigTable:], i.ConfigTable)
	le.PutUint32(buf[offBootLoaderName:], i.BootLoaderName)
	le.PutUint32(buf[offAPMTable:], i.APMTable)
	le.PutUint32(buf[offVBEControlInfo:], i.VBEControlInfo)
	le.PutUint32(buf[offVBEModeInfo:], i.VBEModeInfo)
	le.PutUint16(buf[offVBEMode:], i.VBEMode)
	le.PutUint16(buf[offVBEInterfaceSeg:], i.VBEInterfaceSeg)
	le.PutUint16(buf[offVBEInterfaceOff:], i.VBEInterfaceOff)
	le.PutUint16(buf[offVBEInterfaceLen:], i.VBEInterfaceLen)
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
func (i *Info) MarshalBinary() (data []byte, err error) {
	data = make([]byte, InfoSize)
	i.Put(data)

	return
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
func (i *Info) UnmarshalBinary(data []byte) (err error) {
	if len(data) < InfoSize {
		return fmt.Errorf("invalid multiboot information size (%d < %d)", len(data), InfoSize)
	}

	le := binary.LittleEndian

	i.Flags = le.Uint32(data[offFlags:])
	i.MemLower = le.Uint32(data[offMemLower:])
	i.MemUpper = le.Uint32(data[offMemUpper:])
	i.BootDevice = le.Uint32(data[offBootDevice:])
	i.CmdLine = le.Uint32(data[offCmdLine:])
	i.ModsCount = le.Uint32(data[offModsCount:])
	i.ModsAddr = le.Uint32(data[offModsAddr:])

	for n := range i.Syms {
		i.Syms[n] = le.Uint32(data[offSyms+4*n:])
	}

	i.MmapLength = le.Uint32(data[offMmapLength:])
	i.MmapAddr = le.Uint32(data[offMmapAddr:])
	i.DrivesLength = le.Uint32(data[offDrivesLength:])
	i.DrivesAddr = le.Uint32(data[offDrivesAddr:])
	i.ConfigTable = le.Uint32(data[offConfigTable:])
	i.BootLoaderName = le.Uint32(data[offBootLoaderName:])
	i.APMTable = le.Uint32(data[offAPMTable:])
	i.VBEControlInfo = le.Uint32(data[offVBEControlInfo:])
	i.VBEModeInfo = le.Uint32(data[offVBEModeInfo:])
	i.VBEMode = le.Uint16(data[offVBEMode:])
	i.VBEInterfaceSeg = le.Uint16(data[offVBEInterfaceSeg:])
	i.VBEInterfaceOff = le.Uint16(data[offVBEInterfaceOff:])
	i.VBEInterfaceLen = le.Uint16(data[offVBEInterfaceLen:])

	return
}
