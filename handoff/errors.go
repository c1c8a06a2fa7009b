// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"errors"
	"fmt"

	"github.com/usbarmory/go-mboot/uefi"
)

// Kind represents the class of a boot attempt failure, it implements the
// error interface so that errors.Is(err, FileReadFailure) matches any
// failure of that class.
type Kind int

// Boot attempt failure classes, none of them is retried.
const (
	AllocationFailure Kind = iota + 1
	MemoryMapQueryFailure
	FileSystemUnavailable
	FileOpenFailure
	FileInfoFailure
	FileReadFailure
	VerificationFailure
	ControlTransferFailure
)

var kinds = map[Kind]struct {
	name   string
	status uint64
}{
	AllocationFailure:      {"allocation failure", uefi.EFI_OUT_OF_RESOURCES},
	MemoryMapQueryFailure:  {"memory map query failure", uefi.EFI_DEVICE_ERROR},
	FileSystemUnavailable:  {"file system unavailable", uefi.EFI_NOT_FOUND},
	FileOpenFailure:        {"file open failure", uefi.EFI_NOT_FOUND},
	FileInfoFailure:        {"file info failure", uefi.EFI_DEVICE_ERROR},
	FileReadFailure:        {"file read failure", uefi.EFI_END_OF_FILE},
	VerificationFailure:    {"verification failure", uefi.EFI_CRC_ERROR},
	ControlTransferFailure: {"control transfer failure", uefi.EFI_ABORTED},
}

// Error returns the failure class name.
func (k Kind) Error() string {
	if v, ok := kinds[k]; ok {
		return v.name
	}

	return fmt.Sprintf("unknown failure (%d)", int(k))
}

// Error represents a boot attempt failure.
type Error struct {
	// Kind represents the failure class
	Kind Kind

	// Offset represents the first mismatching byte offset of a
	// VerificationFailure.
	Offset int

	// Err represents the underlying cause, if any.
	Err error
}

func fail(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

func failf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Error returns the failure diagnostic.
func (e *Error) Error() string {
	switch {
	case e.Kind == VerificationFailure && e.Err == nil:
		return fmt.Sprintf("%v, mismatch at offset %d", e.Kind, e.Offset)
	case e.Err != nil:
		return fmt.Sprintf("%v, %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the failure class of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Status returns the EFI_STATUS to report to firmware for the argument boot
// attempt result. Failures caused by a firmware service report the service
// status, others a status derived from their class.
func Status(err error) uint64 {
	var e *Error
	var s uefi.Status

	switch {
	case err == nil:
		return uefi.EFI_SUCCESS
	case errors.As(err, &s):
		return uint64(s)
	case errors.As(err, &e):
		if v, ok := kinds[e.Kind]; ok {
			return uint64(uefi.ErrorStatus(v.status))
		}
	}

	return uint64(uefi.ErrorStatus(uefi.EFI_LOAD_ERROR))
}
