// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"errors"
	"log"

	"github.com/usbarmory/go-mboot/uefi"
)

// Allocator represents the firmware page allocation services.
type Allocator interface {
	AllocatePages(allocateType int, memoryType int, size int, physicalAddress uint64) error
	FreePages(physicalAddress uint64, size int) error
}

// Reservations tracks the fixed address ranges claimed from firmware for a
// single boot attempt.
//
// Ranges are byte granular and must not overlap, firmware allocations are
// page granular and each page is claimed once even when shared by more than
// one range. Claimed pages are returned to firmware on Release unless Commit
// was invoked first.
type Reservations struct {
	Allocator Allocator
	Memory    Memory

	ranges    []Range
	runs      []Range
	pages     map[uint64]bool
	committed bool
}

func pageOf(addr uint64) uint64 {
	return addr &^ (uefi.PageSize - 1)
}

func (res *Reservations) claim(start uint64, end uint64) (err error) {
	if start == end {
		return
	}

	log.Printf("allocating memory range %#08x - %#08x", start, end)

	if err = res.Allocator.AllocatePages(uefi.AllocateAddress, uefi.EfiLoaderData, int(end-start), start); err != nil {
		return
	}

	res.runs = append(res.runs, Range{start, end - start})

	for p := start; p < end; p += uefi.PageSize {
		res.pages[p] = true
	}

	return
}

// Reserve claims the argument range from firmware and returns its memory
// window. Overlapping an already reserved range is rejected before any
// firmware call.
func (res *Reservations) Reserve(r Range) (buf []byte, err error) {
	if r.Size == 0 {
		return nil, failf(AllocationFailure, "empty range %v", r)
	}

	for _, held := range res.ranges {
		if r.Overlaps(held) {
			return nil, failf(AllocationFailure, "range %v overlaps reserved range %v", r, held)
		}
	}

	if res.pages == nil {
		res.pages = make(map[uint64]bool)
	}

	var start uint64
	var run bool

	// claim contiguous runs of pages not yet held
	for p := pageOf(r.Start); p < r.End(); p += uefi.PageSize {
		switch {
		case !res.pages[p] && !run:
			start = p
			run = true
		case res.pages[p] && run:
			if err = res.claim(start, p); err != nil {
				return nil, fail(AllocationFailure, err)
			}

			run = false
		}
	}

	if run {
		end := pageOf(r.End()-1) + uefi.PageSize

		if err = res.claim(start, end); err != nil {
			return nil, fail(AllocationFailure, err)
		}
	}

	res.ranges = append(res.ranges, r)

	if buf, err = res.Memory.Map(r); err != nil {
		return nil, fail(AllocationFailure, err)
	}

	if uint64(len(buf)) != r.Size {
		return nil, failf(AllocationFailure, "invalid memory window for %v (%d bytes)", r, len(buf))
	}

	return
}

// Ranges returns the reserved ranges, in reservation order.
func (res *Reservations) Ranges() []Range {
	return res.ranges
}

// Commit hands over all reserved ranges, which Release no longer returns to
// firmware.
func (res *Reservations) Commit() {
	res.committed = true
}

// Release returns all claimed pages to firmware, in reverse claim order,
// unless the reservations have been committed.
func (res *Reservations) Release() (err error) {
	if res.committed {
		return
	}

	for i := len(res.runs) - 1; i >= 0; i-- {
		r := res.runs[i]

		if e := res.Allocator.FreePages(r.Start, int(r.Size)); e != nil {
			err = errors.Join(err, e)
		}
	}

	res.ranges = nil
	res.runs = nil
	res.pages = nil

	return
}
