// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package x64

import (
	_ "unsafe"

	"github.com/usbarmory/go-mboot/uefi"
)

// Console represents the early UEFI services console for pre UEFI.Init()
// standard output.
var Console = &uefi.Console{
	ForceLine: true,
	Out:       conOut,
}

//go:linkname printk runtime.printk
func printk(c byte) {
	if Console.Out == 0 {
		UART0.Tx(c)
		return
	}

	Console.Output([]byte{c, 0x00})

	if c == 0x0a && Console.ForceLine { // LF
		Console.Output([]byte{0x0d, 0x00}) // CR
	}
}
