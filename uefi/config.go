// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
)

// ConfigurationTable represents an EFI Configuration Table entry.
type ConfigurationTable struct {
	GUID        GUID
	VendorTable uint64
}

// ConfigurationTables returns the EFI Configuration Tables.
func (d *SystemTable) ConfigurationTables() (c []*ConfigurationTable, err error) {
	if d.NumberOfTableEntries == 0 || d.ConfigurationTable == 0 {
		return nil, errors.New("EFI Configuration Table is invalid")
	}

	buf, err := marshalBinary(&ConfigurationTable{})

	if err != nil {
		return
	}

	entrySize := len(buf)
	tableSize := entrySize * int(d.NumberOfTableEntries)

	buf, release, err := mapMemory(d.ConfigurationTable, tableSize)

	if err != nil {
		return
	}

	defer release()

	for i := 0; i < tableSize; i += entrySize {
		t := &ConfigurationTable{}

		if err = unmarshalBinary(buf[i:i+entrySize], t); err != nil {
			return
		}

		c = append(c, t)
	}

	return
}

// maximum firmware vendor string size, in bytes
const maxVendorSize = 64

// Vendor returns the firmware vendor string.
func (d *SystemTable) Vendor() (string, error) {
	if d.FirmwareVendor == 0 {
		return "", errors.New("invalid firmware vendor pointer")
	}

	buf, release, err := mapMemory(d.FirmwareVendor, maxVendorSize)

	if err != nil {
		return "", err
	}

	defer release()

	return fromUCS2(buf)
}
