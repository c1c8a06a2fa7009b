// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"

	"github.com/usbarmory/go-mboot/handoff"
	"github.com/usbarmory/go-mboot/shell"
	"github.com/usbarmory/go-mboot/uefi"
	"github.com/usbarmory/go-mboot/uefi/x64"
)

func init() {
	shell.Add(shell.Cmd{
		Name: "uefi",
		Help: "UEFI information",
		Fn:   uefiCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "protocol",
		Args:    1,
		Pattern: regexp.MustCompile(`^protocol ([[:xdigit:]]{8}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{12})$`),
		Syntax:  "<registry format GUID>",
		Help:    "EFI_BOOT_SERVICES.LocateProtocol()",
		Fn:      locateCmd,
	})

	shell.Add(shell.Cmd{
		Name: "memmap",
		Help: "EFI_BOOT_SERVICES.GetMemoryMap()",
		Fn:   memmapCmd,
	})

	shell.Add(shell.Cmd{
		Name: "e820",
		Help: "memory map passed to the kernel",
		Fn:   e820Cmd,
	})

	shell.Add(shell.Cmd{
		Name:    "alloc",
		Args:    2,
		Pattern: regexp.MustCompile(`^alloc ([[:xdigit:]]+) (\d+)$`),
		Syntax:  "<hex offset> <size>",
		Help:    "EFI_BOOT_SERVICES.AllocatePages()",
		Fn:      allocCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "reset",
		Args:    1,
		Pattern: regexp.MustCompile(`^reset(?: (cold|warm))?$`),
		Help:    "EFI_RUNTIME_SERVICES.ResetSystem()",
		Syntax:  "(cold|warm)?",
		Fn:      resetCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "halt, shutdown",
		Args:    1,
		Pattern: regexp.MustCompile(`^(halt|shutdown)$`),
		Help:    "shutdown system",
		Fn:      shutdownCmd,
	})
}

func bootServices() (*uefi.BootServices, error) {
	if x64.UEFI.Boot == nil {
		return nil, errors.New("EFI Boot Services unavailable")
	}

	return x64.UEFI.Boot, nil
}

func uefiCmd(_ *shell.Interface, _ []string) (res string, err error) {
	var buf bytes.Buffer

	t := x64.UEFI.SystemTable

	if t == nil {
		return "", errors.New("EFI System Table unavailable")
	}

	vendor, _ := t.Vendor()

	fmt.Fprintf(&buf, "Firmware Vendor ....: %s\n", vendor)
	fmt.Fprintf(&buf, "Firmware Revision ..: %#x\n", t.FirmwareRevision)
	fmt.Fprintf(&buf, "Runtime Services  ..: %#x\n", t.RuntimeServices)
	fmt.Fprintf(&buf, "Boot Services ......: %#x\n", t.BootServices)
	fmt.Fprintf(&buf, "Configuration Tables: %#x\n", t.ConfigurationTable)

	if c, err := t.ConfigurationTables(); err == nil {
		for _, t := range c {
			fmt.Fprintf(&buf, "  %s (%#x)\n", t.GUID, t.VendorTable)
		}
	}

	return buf.String(), err
}

func locateCmd(_ *shell.Interface, arg []string) (res string, err error) {
	guid, err := uefi.ParseGUID(arg[0])

	if err != nil {
		return
	}

	b, err := bootServices()

	if err != nil {
		return
	}

	addr, err := b.LocateProtocol(guid)

	return fmt.Sprintf("%s: %#08x", guid, addr), err
}

func memmapCmd(_ *shell.Interface, _ []string) (res string, err error) {
	var buf bytes.Buffer

	b, err := bootServices()

	if err != nil {
		return
	}

	memoryMap, err := b.GetMemoryMap()

	if err != nil {
		return
	}

	fmt.Fprintf(&buf, "Type Start            End              Pages            Attributes\n")

	for _, desc := range memoryMap.Descriptors {
		fmt.Fprintf(&buf, "%02d   %016x %016x %016x %016x\n",
			desc.Type, desc.PhysicalStart, desc.PhysicalEnd()-1, desc.NumberOfPages, desc.Attribute)
	}

	return buf.String(), err
}

func e820Cmd(_ *shell.Interface, _ []string) (res string, err error) {
	var buf bytes.Buffer

	b, err := bootServices()

	if err != nil {
		return
	}

	memoryMap, err := b.GetMemoryMap()

	if err != nil {
		return
	}

	fmt.Fprintf(&buf, "Type Start            End\n")

	for _, e := range handoff.Translate(memoryMap) {
		fmt.Fprintf(&buf, "%d    %016x %016x\n", e.MemType, e.Addr, e.Addr+e.Size-1)
	}

	return buf.String(), err
}

func allocCmd(_ *shell.Interface, arg []string) (res string, err error) {
	addr, err := strconv.ParseUint(arg[0], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	size, err := strconv.ParseUint(arg[1], 10, 64)

	if err != nil {
		return "", fmt.Errorf("invalid size, %v", err)
	}

	if (addr % uefi.PageSize) != 0 {
		return "", fmt.Errorf("only page aligned addresses are supported")
	}

	b, err := bootServices()

	if err != nil {
		return
	}

	log.Printf("allocating memory range %#08x - %#08x", addr, addr+size)

	err = b.AllocatePages(
		uefi.AllocateAddress,
		uefi.EfiLoaderData,
		int(size),
		addr,
	)

	return
}

func resetCmd(_ *shell.Interface, arg []string) (_ string, err error) {
	var resetType int

	switch arg[0] {
	case "cold":
		resetType = uefi.EfiResetCold
	case "warm", "":
		resetType = uefi.EfiResetWarm
	case "shutdown":
		resetType = uefi.EfiResetShutdown
	}

	log.Printf("performing system reset type %d", resetType)
	err = x64.UEFI.Runtime.ResetSystem(resetType)

	return
}

func shutdownCmd(_ *shell.Interface, _ []string) (_ string, err error) {
	return resetCmd(nil, []string{"shutdown"})
}
