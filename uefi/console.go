// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// EFI ConOut offset for OutputString
	outputString = 0x08
	// EFI ConIn offset for ReadKeyStroke
	readKeyStroke = 0x08
)

// UCS-2 encoding used by EFI strings
var ucs2 = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// toUCS2 converts an UTF-8 string to a NUL terminated UCS-2 one.
func toUCS2(s string) (buf []byte, err error) {
	buf, _, err = transform.Bytes(ucs2.NewEncoder(), []byte(s+"\x00"))
	return
}

// fromUCS2 converts a, possibly NUL terminated, UCS-2 string to UTF-8.
func fromUCS2(buf []byte) (s string, err error) {
	for i := 0; i+1 < len(buf); i += 2 {
		if buf[i] == 0x00 && buf[i+1] == 0x00 {
			buf = buf[:i]
			break
		}
	}

	out, _, err := transform.Bytes(ucs2.NewDecoder(), buf)

	return string(out), err
}

// InputKey represents an EFI Input Key descriptor.
type InputKey struct {
	ScanCode    uint16
	UnicodeChar [2]byte
}

// Console implements the [io.ReadWriter] interface over EFI Simple Text
// Input/Output protocol.
type Console struct {
	// ForceLine controls whether line feeds (LF) should be supplemented
	// with a carriage return (CR).
	ForceLine bool

	// ReplaceTabs controls whether Console I/O output should have Tab
	// characters replaced with a number of spaces.
	ReplaceTabs int

	// EFI Simple Text Input/Output Protocol instances
	In  uint64
	Out uint64
}

// Input calls EFI_SIMPLE_TEXT_INPUT_PROTOCOL.ReadKeyStroke().
func (c *Console) Input(k *InputKey) (status uint64) {
	if c.In == 0 {
		return EFI_NOT_READY | errorBit
	}

	return callService(c.In+readKeyStroke,
		[]uint64{
			c.In,
			ptrval(k),
		},
	)
}

// Output calls EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL.OutputString() with an UCS-2
// string.
func (c *Console) Output(p []byte) (status uint64) {
	if c.Out == 0 || len(p) == 0 {
		return
	}

	if n := len(p); n < 2 || p[n-2] != 0x00 || p[n-1] != 0x00 {
		p = append(p, 0x00, 0x00)
	}

	return callService(c.Out+outputString,
		[]uint64{
			c.Out,
			ptrval(&p[0]),
		},
	)
}

// Read available data to buffer from console, keystrokes are converted to
// UTF-8.
func (c *Console) Read(p []byte) (n int, err error) {
	k := &InputKey{}

	for len(p)-n >= utf8.UTFMax {
		status := c.Input(k)

		switch {
		case status == EFI_SUCCESS:
		case status&0xff == EFI_NOT_READY:
			return
		default:
			return n, parseStatus(status)
		}

		// keys without Unicode representation only carry a scan code
		if r := rune(binary.LittleEndian.Uint16(k.UnicodeChar[:])); r != 0 {
			n += utf8.EncodeRune(p[n:], r)
		}
	}

	return
}

// Write data from buffer to console.
func (c *Console) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return
	}

	s := p

	if c.ReplaceTabs > 0 {
		s = bytes.ReplaceAll(s, []byte{'\t'}, bytes.Repeat([]byte{' '}, c.ReplaceTabs))
	}

	if c.ForceLine {
		s = bytes.ReplaceAll(s, []byte{'\n'}, []byte{'\n', '\r'})
	}

	// We receive an UTF-8 string but we can output only UCS-2 ones.
	buf, err := toUCS2(string(s))

	if err != nil {
		return
	}

	if err = parseStatus(c.Output(buf)); err != nil {
		return
	}

	return len(p), nil
}
