// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"fmt"
)

// EFI_STATUS error bit
const errorBit = 1 << 63

// EFI_STATUS codes (Appendix D - Status Codes), without error bit.
const (
	EFI_SUCCESS = iota
	EFI_LOAD_ERROR
	EFI_INVALID_PARAMETER
	EFI_UNSUPPORTED
	EFI_BAD_BUFFER_SIZE
	EFI_BUFFER_TOO_SMALL
	EFI_NOT_READY
	EFI_DEVICE_ERROR
	EFI_WRITE_PROTECTED
	EFI_OUT_OF_RESOURCES
	EFI_VOLUME_CORRUPTED
	EFI_VOLUME_FULL
	EFI_NO_MEDIA
	EFI_MEDIA_CHANGED
	EFI_NOT_FOUND
	EFI_ACCESS_DENIED
	EFI_NO_RESPONSE
	EFI_NO_MAPPING
	EFI_TIMEOUT
	EFI_NOT_STARTED
	EFI_ALREADY_STARTED
	EFI_ABORTED
	EFI_ICMP_ERROR
	EFI_TFTP_ERROR
	EFI_PROTOCOL_ERROR
	EFI_INCOMPATIBLE_VERSION
	EFI_SECURITY_VIOLATION
	EFI_CRC_ERROR
	EFI_END_OF_MEDIA
	_
	_
	EFI_END_OF_FILE
	EFI_INVALID_LANGUAGE
	EFI_COMPROMISED_DATA
	EFI_IP_ADDRESS_CONFLICT
	EFI_HTTP_ERROR
)

var statusNames = map[uint64]string{
	EFI_LOAD_ERROR:           "EFI_LOAD_ERROR",
	EFI_INVALID_PARAMETER:    "EFI_INVALID_PARAMETER",
	EFI_UNSUPPORTED:          "EFI_UNSUPPORTED",
	EFI_BAD_BUFFER_SIZE:      "EFI_BAD_BUFFER_SIZE",
	EFI_BUFFER_TOO_SMALL:     "EFI_BUFFER_TOO_SMALL",
	EFI_NOT_READY:            "EFI_NOT_READY",
	EFI_DEVICE_ERROR:         "EFI_DEVICE_ERROR",
	EFI_WRITE_PROTECTED:      "EFI_WRITE_PROTECTED",
	EFI_OUT_OF_RESOURCES:     "EFI_OUT_OF_RESOURCES",
	EFI_VOLUME_CORRUPTED:     "EFI_VOLUME_CORRUPTED",
	EFI_VOLUME_FULL:          "EFI_VOLUME_FULL",
	EFI_NO_MEDIA:             "EFI_NO_MEDIA",
	EFI_MEDIA_CHANGED:        "EFI_MEDIA_CHANGED",
	EFI_NOT_FOUND:            "EFI_NOT_FOUND",
	EFI_ACCESS_DENIED:        "EFI_ACCESS_DENIED",
	EFI_NO_RESPONSE:          "EFI_NO_RESPONSE",
	EFI_NO_MAPPING:           "EFI_NO_MAPPING",
	EFI_TIMEOUT:              "EFI_TIMEOUT",
	EFI_NOT_STARTED:          "EFI_NOT_STARTED",
	EFI_ALREADY_STARTED:      "EFI_ALREADY_STARTED",
	EFI_ABORTED:              "EFI_ABORTED",
	EFI_ICMP_ERROR:           "EFI_ICMP_ERROR",
	EFI_TFTP_ERROR:           "EFI_TFTP_ERROR",
	EFI_PROTOCOL_ERROR:       "EFI_PROTOCOL_ERROR",
	EFI_INCOMPATIBLE_VERSION: "EFI_INCOMPATIBLE_VERSION",
	EFI_SECURITY_VIOLATION:   "EFI_SECURITY_VIOLATION",
	EFI_CRC_ERROR:            "EFI_CRC_ERROR",
	EFI_END_OF_MEDIA:         "EFI_END_OF_MEDIA",
	EFI_END_OF_FILE:          "EFI_END_OF_FILE",
	EFI_INVALID_LANGUAGE:     "EFI_INVALID_LANGUAGE",
	EFI_COMPROMISED_DATA:     "EFI_COMPROMISED_DATA",
	EFI_IP_ADDRESS_CONFLICT:  "EFI_IP_ADDRESS_CONFLICT",
	EFI_HTTP_ERROR:           "EFI_HTTP_ERROR",
}

// Status represents a failed EFI_STATUS, it implements the error interface.
type Status uint64

// Error returns the EFI_STATUS mnemonic.
func (s Status) Error() string {
	if name, ok := statusNames[s.Code()]; ok {
		return name
	}

	return fmt.Sprintf("EFI_STATUS error %#x", uint64(s))
}

// Code returns the status code without error bit.
func (s Status) Code() uint64 {
	return uint64(s) &^ errorBit
}

// ErrorStatus returns the EFI_STATUS value, with error bit set, for the
// argument status code.
func ErrorStatus(code uint64) Status {
	return Status(code | errorBit)
}

// parseStatus converts an EFI_STATUS to an error, warnings (error bit clear)
// are not reported.
func parseStatus(status uint64) error {
	if status&errorBit == 0 {
		return nil
	}

	return Status(status)
}
