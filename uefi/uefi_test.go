// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"testing"
	"time"
)

func TestStatus(t *testing.T) {
	if err := parseStatus(EFI_SUCCESS); err != nil {
		t.Fatal(err)
	}

	// warnings do not have the error bit set
	if err := parseStatus(4); err != nil {
		t.Fatalf("warning reported as error (%v)", err)
	}

	err := parseStatus(EFI_BUFFER_TOO_SMALL | errorBit)

	var s Status

	if !errors.As(err, &s) || s.Code() != EFI_BUFFER_TOO_SMALL {
		t.Fatalf("unexpected status (%v)", err)
	}

	if err.Error() != "EFI_BUFFER_TOO_SMALL" {
		t.Fatalf("unexpected name %q", err.Error())
	}

	if ErrorStatus(EFI_END_OF_FILE) != Status(31|errorBit) {
		t.Fatalf("unexpected EFI_END_OF_FILE value %#x", EFI_END_OF_FILE)
	}

	if name := Status(0xff | errorBit).Error(); name != "EFI_STATUS error 0x80000000000000ff" {
		t.Fatalf("unexpected name %q", name)
	}
}

func testDescriptors(stride int, n int) []byte {
	buf := make([]byte, stride*n)

	for i := 0; i < n; i++ {
		off := i * stride
		binary.LittleEndian.PutUint32(buf[off:], EfiConventionalMemory)
		binary.LittleEndian.PutUint64(buf[off+8:], uint64(i)*0x100000)
		binary.LittleEndian.PutUint64(buf[off+24:], uint64(i+1))
		binary.LittleEndian.PutUint64(buf[off+32:], EFI_MEMORY_WB)
	}

	return buf
}

func TestMemoryMapStride(t *testing.T) {
	for _, stride := range []int{40, 48, 56} {
		buf := testDescriptors(stride, 4)
		m, err := NewMemoryMap(buf, uint64(len(buf)), uint64(stride))

		if err != nil {
			t.Fatalf("stride %d: %v", stride, err)
		}

		if len(m.Descriptors) != 4 {
			t.Fatalf("stride %d: %d descriptors", stride, len(m.Descriptors))
		}

		for i, d := range m.Descriptors {
			if d.Type != EfiConventionalMemory || d.PhysicalStart != uint64(i)*0x100000 || d.Size() != uint64(i+1)*PageSize {
				t.Fatalf("stride %d: unexpected descriptor %d %+v", stride, i, d)
			}

			if d.PhysicalEnd() != d.PhysicalStart+d.Size() {
				t.Fatalf("stride %d: unexpected end %#x", stride, d.PhysicalEnd())
			}
		}
	}
}

func TestMemoryMapInvalid(t *testing.T) {
	buf := testDescriptors(48, 4)

	if _, err := NewMemoryMap(buf, uint64(len(buf)), 0); err == nil {
		t.Fatal("zero stride accepted")
	}

	if _, err := NewMemoryMap(buf, uint64(len(buf)), 32); err == nil {
		t.Fatal("short stride accepted")
	}

	if _, err := NewMemoryMap(buf, uint64(len(buf))-8, 48); err == nil {
		t.Fatal("partial descriptor accepted")
	}

	if _, err := NewMemoryMap(buf, uint64(len(buf))+48, 48); err == nil {
		t.Fatal("map size beyond buffer accepted")
	}
}

func TestPages(t *testing.T) {
	for size, pages := range map[int]uint64{
		0:    0,
		1:    1,
		4096: 1,
		4097: 2,
		0x58: 1,
	} {
		if n := Pages(size); n != pages {
			t.Errorf("Pages(%d) = %d, expected %d", size, n, pages)
		}
	}
}

func TestUCS2(t *testing.T) {
	buf, err := toUCS2(`\loader-stripped.elf`)

	if err != nil {
		t.Fatal(err)
	}

	if len(buf) != (20+1)*2 || !bytes.Equal(buf[:4], []byte{'\\', 0x00, 'l', 0x00}) || !bytes.Equal(buf[len(buf)-2:], []byte{0x00, 0x00}) {
		t.Fatalf("unexpected encoding %x", buf)
	}

	s, err := fromUCS2(append(buf, 'x', 0x00))

	if err != nil {
		t.Fatal(err)
	}

	if s != `\loader-stripped.elf` {
		t.Fatalf("unexpected decoding %q", s)
	}
}

func TestFileInfo(t *testing.T) {
	name, _ := toUCS2("KERNEL.ELF")
	buf := make([]byte, fileInfoSize, fileInfoSize+len(name))

	le := binary.LittleEndian
	le.PutUint64(buf[0:], uint64(fileInfoSize+len(name)))
	le.PutUint64(buf[8:], 100)
	le.PutUint64(buf[16:], 4096)

	// ModificationTime
	le.PutUint16(buf[56:], 2024)
	buf[58] = 6
	buf[59] = 30
	buf[60] = 12
	le.PutUint16(buf[68:], 0x07ff)

	le.PutUint64(buf[72:], EFI_FILE_READ_ONLY|EFI_FILE_ARCHIVE)

	buf = append(buf, name...)

	fi := &FileInfo{info: &fileInfo{}}

	var err error

	if fi.name, err = fi.info.decode(buf); err != nil {
		t.Fatal(err)
	}

	if fi.Name() != "KERNEL.ELF" || fi.Size() != 100 || fi.IsDir() {
		t.Fatalf("unexpected file information %s %d %v", fi.Name(), fi.Size(), fi.IsDir())
	}

	if fi.Mode() != fs.FileMode(0444) {
		t.Fatalf("unexpected mode %v", fi.Mode())
	}

	if mt := fi.ModTime(); !mt.Equal(time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected modification time %v", mt)
	}

	if _, err = fi.info.decode(buf[:fileInfoSize-1]); err == nil {
		t.Fatal("short file information accepted")
	}
}

func TestGUID(t *testing.T) {
	g := MustParseGUID("5b1b31a1-9562-11d2-8e3f-00a0c969723b")

	if g != EFI_LOADED_IMAGE_PROTOCOL_GUID {
		t.Fatalf("unexpected GUID %x", g[:])
	}

	if g[0] != 0xa1 || g[3] != 0x5b || g[4] != 0x62 || g[6] != 0xd2 || g[8] != 0x8e {
		t.Fatalf("unexpected byte order %x", g[:])
	}

	if s := g.String(); s != "5b1b31a1-9562-11d2-8e3f-00a0c969723b" {
		t.Fatalf("unexpected string %s", s)
	}

	if _, err := ParseGUID("5b1b31a1-9562-11d2-8e3f"); err == nil {
		t.Fatal("invalid GUID accepted")
	}
}

func TestCallServiceArguments(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("excess arguments accepted")
		}
	}()

	callService(0, make([]uint64, maxArgs+1))
}

func TestExitBootServicesRetry(t *testing.T) {
	var keys []uint64
	var queries int

	getMemoryMap := func() (*MemoryMap, error) {
		queries++
		return &MemoryMap{MapKey: uint64(queries)}, nil
	}

	// stale key on first attempt
	exit := func(mapKey uint64) error {
		keys = append(keys, mapKey)

		if mapKey == 1 {
			return ErrorStatus(EFI_INVALID_PARAMETER)
		}

		return nil
	}

	if err := retryExitBootServices(getMemoryMap, exit); err != nil {
		t.Fatal(err)
	}

	if len(keys) != 2 || keys[0] != 1 || keys[1] != 2 {
		t.Fatalf("unexpected attempts %v", keys)
	}

	// persistent failure is reported after a single retry
	keys = nil

	err := retryExitBootServices(getMemoryMap, func(mapKey uint64) error {
		keys = append(keys, mapKey)
		return ErrorStatus(EFI_INVALID_PARAMETER)
	})

	if !errors.Is(err, ErrorStatus(EFI_INVALID_PARAMETER)) || len(keys) != 2 {
		t.Fatalf("unexpected result (%v) after %d attempts", err, len(keys))
	}

	// other failures are not retried
	keys = nil

	err = retryExitBootServices(getMemoryMap, func(mapKey uint64) error {
		keys = append(keys, mapKey)
		return ErrorStatus(EFI_UNSUPPORTED)
	})

	if !errors.Is(err, ErrorStatus(EFI_UNSUPPORTED)) || len(keys) != 1 {
		t.Fatalf("unexpected result (%v) after %d attempts", err, len(keys))
	}

	mapErr := ErrorStatus(EFI_BUFFER_TOO_SMALL)

	err = retryExitBootServices(func() (*MemoryMap, error) { return nil, mapErr }, exit)

	if !errors.Is(err, mapErr) {
		t.Fatalf("unexpected result (%v)", err)
	}
}
