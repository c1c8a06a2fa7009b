// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"errors"
)

// Trampoline jumps to the kernel entry point with the boot information
// pointer and stack pointer set as the kernel expects, it does not return on
// success.
type Trampoline func(entry uint64, info uint64, stack uint64)

// Transfer hands control to the kernel entry point. A returning trampoline
// results in a ControlTransferFailure.
func Transfer(jump Trampoline, entry uint64, info uint64, stack uint64) error {
	if jump == nil {
		return failf(ControlTransferFailure, "missing trampoline")
	}

	jump(entry, info, stack)

	return fail(ControlTransferFailure, errors.New("kernel entry point returned"))
}
