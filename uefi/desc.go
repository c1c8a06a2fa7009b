// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"bytes"
	"encoding/binary"
)

const align = 8

func marshalBinary(data any) (buf []byte, err error) {
	b := new(bytes.Buffer)
	err = binary.Write(b, binary.LittleEndian, data)
	return b.Bytes(), err
}

func unmarshalBinary(buf []byte, data any) (err error) {
	_, err = binary.Decode(buf, binary.LittleEndian, data)
	return
}

// decode unmarshals a firmware structure located at the argument physical
// address.
func decode(data any, addr uint64) (err error) {
	t, err := marshalBinary(data)

	if err != nil {
		return
	}

	n := len(t)

	if r := n % align; r != 0 {
		n += align - r
	}

	buf, release, err := mapMemory(addr, n)

	if err != nil {
		return
	}

	defer release()

	return unmarshalBinary(buf[:len(t)], data)
}
