// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build unix

// mbdump decodes the Multiboot boot information left in a raw physical
// memory dump, such as one obtained with the QEMU monitor `pmemsave`
// command right before control transfer to the kernel.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sys/unix"
)

type options struct {
	Base    uint64 `long:"base" short:"b" description:"Physical address of the first dump byte (hex)" default:"0" base:"16"`
	Info    uint64 `long:"info" short:"i" description:"Boot information address (hex)" default:"1000" base:"16"`
	Hexdump bool   `long:"hexdump" description:"Display a hexdump of the boot information"`

	Positional struct {
		Filename string `positional-arg-name:"filename" required:"true"`
	} `positional-args:"true"`
}

var opts options

func mapFile(name string) (mem []byte, unmap func() error, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	if fi.Size() == 0 {
		return nil, nil, fmt.Errorf("empty memory dump")
	}

	mem, err = unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot map memory dump: %v", err)
	}

	return mem, func() error { return unix.Munmap(mem) }, nil
}

func run() error {
	if _, err := flags.Parse(&opts); err != nil {
		return err
	}

	mem, unmap, err := mapFile(opts.Positional.Filename)
	if err != nil {
		return err
	}
	defer unmap()

	d := &physicalDump{
		mem:  mem,
		base: opts.Base,
	}

	return d.decode(os.Stdout, opts.Info, opts.Hexdump)
}

func main() {
	if err := run(); err != nil {
		switch e := err.(type) {
		case *flags.Error:
			// flags already prints this
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
