// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/usbarmory/go-mboot/cmd"
	"github.com/usbarmory/go-mboot/handoff"
	"github.com/usbarmory/go-mboot/shell"
	"github.com/usbarmory/go-mboot/uefi/x64"
)

// Build information, set at link time.
var (
	Build    string
	Revision string

	// Console enables the recovery shell on boot failure when not empty.
	Console string
)

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stdout)

	cmd.Build = Build
	cmd.Revision = Revision
}

func main() {
	log.Printf("%s/%s (%s) • %s %s", runtime.GOOS, runtime.GOARCH, runtime.Version(), Revision, Build)

	// does not return on success
	err := cmd.Boot("")

	log.Printf("boot failed, %v", err)

	if len(Console) > 0 && x64.UEFI.Console != nil {
		iface := &shell.Interface{
			Banner: fmt.Sprintf("%s/%s (%s) • UEFI x64 • Multiboot",
				runtime.GOOS, runtime.GOARCH, runtime.Version()),
			ReadWriter: x64.UEFI.Console,
		}

		iface.Start()
	}

	if x64.UEFI.Boot == nil {
		runtime.Exit(1)
	}

	if err = x64.UEFI.Boot.Exit(handoff.Status(err)); err != nil {
		log.Printf("could not exit to firmware, %v", err)
	}

	runtime.Exit(1)
}
