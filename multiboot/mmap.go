// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package multiboot

import (
	"encoding/binary"
	"fmt"

	"github.com/u-root/u-root/pkg/boot/bzimage"
)

// MemoryMapEntrySize represents the size of an encoded memory map entry,
// including its leading size field.
const MemoryMapEntrySize = 24

// EntrySize is the value of the leading size field of each memory map entry,
// which does not account for the field itself.
const EntrySize = MemoryMapEntrySize - 4

// setType assigns a raw address range type to an E820 entry type field.
func setType[T ~uint32](t *T, v uint32) {
	*t = T(v)
}

// MemoryMapLength returns the encoded size of n memory map entries.
func MemoryMapLength(n int) int {
	return n * MemoryMapEntrySize
}

// PutMemoryMap encodes the argument E820 entries as a packed Multiboot memory
// map (size:u32, base_addr:u64, length:u64, type:u32) in buf, which must hold
// at least MemoryMapLength(len(entries)) bytes.
func PutMemoryMap(buf []byte, entries []bzimage.E820Entry) (n int, err error) {
	if len(buf) < MemoryMapLength(len(entries)) {
		return 0, fmt.Errorf("memory map does not fit (%d < %d)", len(buf), MemoryMapLength(len(entries)))
	}

	le := binary.LittleEndian

	for _, e := range entries {
		le.PutUint32(buf[n:], EntrySize)
		le.PutUint64(buf[n+4:], e.Addr)
		le.PutUint64(buf[n+12:], e.Size)
		le.PutUint32(buf[n+20:], uint32(e.MemType))

		n += MemoryMapEntrySize
	}

	return
}

// MarshalMemoryMap returns the packed Multiboot memory map encoding of the
// argument E820 entries.
func MarshalMemoryMap(entries []bzimage.E820Entry) []byte {
	buf := make([]byte, MemoryMapLength(len(entries)))
	PutMemoryMap(buf, entries)

	return buf
}

// UnmarshalMemoryMap parses a packed Multiboot memory map, each entry is
// located through the size field of the previous one.
func UnmarshalMemoryMap(buf []byte) (entries []bzimage.E820Entry, err error) {
	le := binary.LittleEndian

	for off := 0; off < len(buf); {
		if len(buf)-off < 4 {
			return nil, fmt.Errorf("truncated memory map entry at offset %d", off)
		}

		size := int(le.Uint32(buf[off:]))

		if size < EntrySize || off+4+size > len(buf) {
			return nil, fmt.Errorf("invalid memory map entry size (%d) at offset %d", size, off)
		}

		e := bzimage.E820Entry{
			Addr: le.Uint64(buf[off+4:]),
			Size: le.Uint64(buf[off+12:]),
		}

		setType(&e.MemType, le.Uint32(buf[off+20:]))

		entries = append(entries, e)
		off += 4 + size
	}

	return
}
