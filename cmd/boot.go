// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package cmd

import (
	"bytes"
	"fmt"
	"io/fs"
	"log"
	"regexp"
	"strings"

	"github.com/usbarmory/go-mboot/handoff"
	"github.com/usbarmory/go-mboot/shell"
	"github.com/usbarmory/go-mboot/uapi"
	"github.com/usbarmory/go-mboot/uefi/x64"
)

// CommandLine represents the default kernel command line, overridden by the
// boot loader entry options.
var CommandLine = "console=ttyS0,115200,8n1"

// Layout represents the handoff address layout.
var Layout = handoff.DefaultLayout()

func init() {
	shell.Add(shell.Cmd{
		Name:    "boot",
		Args:    1,
		Pattern: regexp.MustCompile(`^boot(.*)`),
		Syntax:  "(path)?",
		Help:    "boot Multiboot kernel",
		Fn:      bootCmd,
	})

	shell.Add(shell.Cmd{
		Name: "layout",
		Help: "handoff address layout",
		Fn:   layoutCmd,
	})
}

func root() (fs.FS, error) {
	return x64.UEFI.Root()
}

// Configure returns the boot attempt for the argument kernel path, when
// empty the path is taken from the boot loader entry, if present, or the
// default one.
func Configure(path string) (l *handoff.Loader, err error) {
	b, err := bootServices()

	if err != nil {
		return
	}

	l = &handoff.Loader{
		Layout:      Layout,
		Path:        path,
		CommandLine: CommandLine,
		Firmware:    b,
		Root:        root,
		Memory:      handoff.DMA{},
		Cleanup:     x64.ExitBootServices,
		Trampoline:  handoff.Exec,
	}

	if len(path) > 0 {
		return
	}

	fsys, err := x64.UEFI.Root()

	if err != nil {
		return nil, fmt.Errorf("could not open boot volume, %v", err)
	}
	defer fsys.Close()

	entry, err := uapi.LoadEntry(fsys, uapi.DefaultEntryPath)

	if err != nil {
		log.Printf("no boot loader entry (%v), using defaults", err)
		return l, nil
	}

	log.Printf("loaded boot loader entry %s", entry.Title)

	if len(entry.Ignored()) > 0 {
		log.Printf("ignored boot loader entry keys:\n%s", entry.Ignored())
	}

	l.Path = entry.Linux

	if len(entry.Options) > 0 {
		l.CommandLine = entry.Options
	}

	if entry.MemoryMapSize > 0 {
		layout := *Layout
		layout.MemoryMap = handoff.Range{Start: entry.MemoryMapAddress, Size: entry.MemoryMapSize}
		l.Layout = &layout

		log.Printf("memory map relocated to %v", layout.MemoryMap)
	}

	return l, nil
}

// Boot performs a boot attempt, which does not return on success.
func Boot(path string) (err error) {
	l, err := Configure(path)

	if err != nil {
		return
	}

	return l.Boot()
}

func bootCmd(_ *shell.Interface, arg []string) (res string, err error) {
	return "", Boot(strings.TrimSpace(arg[0]))
}

func layoutCmd(_ *shell.Interface, _ []string) (string, error) {
	var buf bytes.Buffer

	for _, r := range Layout.Ranges() {
		fmt.Fprintf(&buf, "%-16s %v (%d bytes)\n", r.Name, r.Range, r.Size)
	}

	fmt.Fprintf(&buf, "%-16s %#08x\n", "entry point", Layout.Entry)

	if err := Layout.Validate(); err != nil {
		fmt.Fprintf(&buf, "invalid layout, %v\n", err)
	}

	return buf.String(), nil
}
