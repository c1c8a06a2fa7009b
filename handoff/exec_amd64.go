// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"github.com/usbarmory/go-mboot/multiboot"
)

// defined in exec_amd64.s
func exec(entry uint64, info uint64, stack uint64, magic uint32)

// Exec is the Multiboot trampoline, it disables interrupts, loads the
// bootloader magic in EAX and the boot information pointer in EBX, switches
// to the argument stack and jumps to the entry point.
//
// The processor is left in long mode with identity mapped memory.
func Exec(entry uint64, info uint64, stack uint64) {
	exec(entry, info, stack, multiboot.BootloaderMagic)
}
