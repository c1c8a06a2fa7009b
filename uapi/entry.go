// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package uapi implements Boot Loader Entries parsing
// following the specifications at:
//
//	https://uapi-group.org/specifications/specs/boot_loader_specification/
package uapi

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
)

// DefaultEntryPath is the boot loader entry looked up on the boot volume.
const DefaultEntryPath = "loader/entries/mboot.conf"

// MemoryMapKey relocates the E820 memory map handed to the kernel, its value
// is the range start address and size (e.g. `mboot-mmap 0x10000 0x1000`).
const MemoryMapKey = "mboot-mmap"

// Entry represents the parsed contents of Type #1 Boot Loader Entry Keys.
//
// Only the keys relevant to a Multiboot kernel are honored, as no modules
// are passed to the kernel initrd keys are ignored.
type Entry struct {
	Title   string
	Linux   string
	Options string

	// MemoryMapAddress and MemoryMapSize are set by MemoryMapKey, a zero
	// size retains the default memory map range.
	MemoryMapAddress uint64
	MemoryMapSize    uint64

	parsed  string
	ignored string
}

func (e *Entry) parseKey(line string) {
	s := strings.TrimSpace(line)

	if len(s) == 0 || strings.HasPrefix(s, "#") {
		return
	}

	k, v, _ := strings.Cut(s, " ")
	v = strings.TrimSpace(v)

	switch {
	case len(v) == 0:
		e.ignored += line
		return
	case k == "title":
		e.Title = v
	case k == "linux":
		e.Linux = strings.TrimPrefix(strings.ReplaceAll(v, `\`, `/`), `/`)
	case k == "options":
		if len(e.Options) > 0 {
			e.Options += " "
		}

		e.Options += v
	case k == MemoryMapKey:
		if !e.parseRange(v) {
			e.ignored += line
			return
		}
	default:
		e.ignored += line
		return
	}

	e.parsed += line
}

func (e *Entry) parseRange(v string) bool {
	start, size, ok := strings.Cut(v, " ")

	if !ok {
		return false
	}

	addr, err := strconv.ParseUint(strings.TrimSpace(start), 0, 32)

	if err != nil {
		return false
	}

	n, err := strconv.ParseUint(strings.TrimSpace(size), 0, 32)

	if err != nil || n == 0 {
		return false
	}

	e.MemoryMapAddress = addr
	e.MemoryMapSize = n

	return true
}

// String returns the lines successfully parsed.
func (e *Entry) String() string {
	return e.parsed
}

// Ignored returns the lines ignored during parsing.
func (e *Entry) Ignored() string {
	return e.ignored
}

// LoadEntry parses Type #1 Boot Loader Specification Entries from the argument
// file, the kernel path is returned relative to the file system root.
func LoadEntry(fsys fs.FS, path string) (e *Entry, err error) {
	e = &Entry{}

	entry, err := fs.ReadFile(fsys, path)

	if err != nil {
		return
	}

	for line := range strings.Lines(string(entry)) {
		e.parseKey(line)
	}

	if len(e.Linux) == 0 {
		return nil, errors.New("missing linux key")
	}

	return
}
