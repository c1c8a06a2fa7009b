// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
)

// EFI Boot Services offsets
const (
	exit             = 0xd8
	exitBootServices = 0xe8
)

// Exit calls EFI_BOOT_SERVICES.Exit(), returning the argument EFI_STATUS to
// the image caller (e.g. the firmware boot manager).
func (s *BootServices) Exit(status uint64) (err error) {
	return parseStatus(callService(s.base+exit,
		[]uint64{
			s.imageHandle,
			status,
			0,
			0,
		},
	))
}

// ExitBootServices calls EFI_BOOT_SERVICES.ExitBootServices(), the memory map
// key is obtained right before the call as any other service invocation may
// invalidate it.
func (s *BootServices) ExitBootServices() (err error) {
	return retryExitBootServices(s.GetMemoryMap, func(mapKey uint64) error {
		return parseStatus(callService(s.base+exitBootServices,
			[]uint64{
				s.imageHandle,
				mapKey,
			},
		))
	})
}

// retryExitBootServices invokes exit with the current memory map key, a stale key
// (EFI_INVALID_PARAMETER) is retried once with a freshly obtained map.
func retryExitBootServices(getMemoryMap func() (*MemoryMap, error), exit func(mapKey uint64) error) (err error) {
	for i := 0; i < 2; i++ {
		var memoryMap *MemoryMap

		if memoryMap, err = getMemoryMap(); err != nil {
			return
		}

		if err = exit(memoryMap.MapKey); !errors.Is(err, ErrorStatus(EFI_INVALID_PARAMETER)) {
			return
		}
	}

	return
}

// EFI Boot Services offset for SetWatchdogTimer
const setWatchdogTimer = 0x100

// watchdog code reported by firmware on expiration
const watchdogCode = 0x6d626f6f74 // mboot

// SetWatchdogTimer calls EFI_BOOT_SERVICES.SetWatchdogTimer(), a zero
// timeout disables the watchdog armed by the boot manager before starting
// the image.
func (s *BootServices) SetWatchdogTimer(sec int) (err error) {
	return parseStatus(callService(s.base+setWatchdogTimer,
		[]uint64{
			uint64(sec),
			watchdogCode,
			0,
			0,
		},
	))
}
