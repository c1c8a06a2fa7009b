// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/usbarmory/go-mboot/multiboot"
)

// maxCmdLine bounds the command line search for its terminating NUL.
const maxCmdLine = 4096

var memTypes = map[uint32]string{
	1: "RAM",
	2: "reserved",
	3: "ACPI",
	4: "NVS",
	5: "unusable",
}

// physicalDump represents a physical memory dump starting at base.
type physicalDump struct {
	mem  []byte
	base uint64
}

func (d *physicalDump) slice(addr uint64, n uint64) ([]byte, error) {
	end := uint64(len(d.mem))

	if addr < d.base || addr-d.base > end || n > end-(addr-d.base) {
		return nil, fmt.Errorf("range %#08x-%#08x outside memory dump", addr, addr+n)
	}

	off := addr - d.base

	return d.mem[off : off+n], nil
}

func (d *physicalDump) cmdline(addr uint64) (string, error) {
	n := uint64(maxCmdLine)

	if end := d.base + uint64(len(d.mem)); addr < end && end-addr < n {
		n = end - addr
	}

	buf, err := d.slice(addr, n)

	if err != nil {
		return "", err
	}

	i := bytes.IndexByte(buf, 0x00)

	if i < 0 {
		return "", fmt.Errorf("unterminated command line at %#08x", addr)
	}

	return string(buf[:i]), nil
}

func memType(t uint32) string {
	if name, ok := memTypes[t]; ok {
		return name
	}

	return fmt.Sprintf("type %d", t)
}

// decode prints the Multiboot information structure located at the argument
// address along with the data it points to.
func (d *physicalDump) decode(w io.Writer, addr uint64, hexdump bool) error {
	buf, err := d.slice(addr, multiboot.InfoSize)

	if err != nil {
		return fmt.Errorf("cannot read boot information: %v", err)
	}

	info := &multiboot.Info{}

	if err = info.UnmarshalBinary(buf); err != nil {
		return err
	}

	fmt.Fprintf(w, "Boot information : %#08x\n", addr)
	fmt.Fprintf(w, "Flags ...........: %#08x\n", info.Flags)

	if hexdump {
		fmt.Fprintln(w, hex.Dump(buf))
	}

	if info.CmdLine != 0 {
		s, err := d.cmdline(uint64(info.CmdLine))

		if err != nil {
			return fmt.Errorf("cannot read command line: %v", err)
		}

		fmt.Fprintf(w, "Command line ....: %#08x %q\n", info.CmdLine, s)
	}

	if info.MmapAddr == 0 {
		return nil
	}

	buf, err = d.slice(uint64(info.MmapAddr), uint64(info.MmapLength))

	if err != nil {
		return fmt.Errorf("cannot read memory map: %v", err)
	}

	entries, err := multiboot.UnmarshalMemoryMap(buf)

	if err != nil {
		return fmt.Errorf("cannot decode memory map: %v", err)
	}

	fmt.Fprintf(w, "Memory map ......: %#08x (%d bytes, %d entries)\n", info.MmapAddr, info.MmapLength, len(entries))

	for _, e := range entries {
		fmt.Fprintf(w, "  %016x-%016x %s\n", e.Addr, e.Addr+e.Size, memType(uint32(e.MemType)))
	}

	return nil
}
