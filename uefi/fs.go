// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	EFI_LOADED_IMAGE_PROTOCOL_GUID       = MustParseGUID("5b1b31a1-9562-11d2-8e3f-00a0c969723b")
	EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID = MustParseGUID("964e5b22-6459-11d2-8e39-00a0c969723b")
)

const (
	EFI_LOADED_IMAGE_PROTOCOL_REVISION       = 0x00001000
	EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_REVISION = 0x00010000
)

// loadedImage represents an EFI Loaded Image Protocol instance.
type loadedImage struct {
	Revision        uint32
	_               uint32
	ParentHandle    uint64
	SystemTable     uint64
	DeviceHandle    uint64
	FilePath        uint64
	_               uint64
	LoadOptionsSize uint32
	_               uint32
	LoadOptions     uint64
	ImageBase       uint64
	ImageSize       uint64
	ImageCodeType   uint32
	ImageDataType   uint32
	Unload          uint64
}

// simpleFileSystem represents an EFI Simple File System Protocol instance.
type simpleFileSystem struct {
	Revision   uint64
	OpenVolume uint64
}

// openVolume calls EFI_SIMPLE_FILE SYSTEM_PROTOCOL.OpenVolume().
func (sfs *simpleFileSystem) openVolume(handle uint64) (f *fileProtocol, addr uint64, err error) {
	status := callService(ptrval(&sfs.OpenVolume),
		[]uint64{
			handle,
			ptrval(&addr),
		},
	)

	if err = parseStatus(status); err != nil {
		return
	}

	if f, err = decodeFileProtocol(addr); err != nil {
		return nil, 0, err
	}

	return
}

// FS implements the [fs.FS] interface for an EFI Simple File System.
type FS struct {
	image *loadedImage
	addr  uint64

	fs     *simpleFileSystem
	volume *File
}

// Open opens the named file, [File.Close] must be called to release any
// associated resources.
//
// Both slash and backslash separated paths are accepted, paths are always
// relative to the volume root.
func (root *FS) Open(name string) (fs.File, error) {
	var err error

	if root.volume == nil || root.volume.file == nil || root.volume.addr == 0 {
		return nil, errors.New("invalid file system instance")
	}

	path := strings.ReplaceAll(name, `/`, `\`)

	if !strings.HasPrefix(path, `\`) {
		path = `\` + path
	}

	f := &File{
		name: name,
	}

	if f.file, f.addr, err = root.volume.file.open(root.volume.addr, path, EFI_FILE_MODE_READ); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return f, nil
}

// Close closes the volume root directory.
func (root *FS) Close() error {
	if root.volume == nil {
		return nil
	}

	return root.volume.Close()
}

func (s *BootServices) loadedImage(imageHandle uint64) (image *loadedImage, err error) {
	var addr uint64

	if addr, err = s.HandleProtocol(imageHandle, EFI_LOADED_IMAGE_PROTOCOL_GUID); err != nil {
		return
	}

	image = &loadedImage{}

	if err = decode(image, addr); err != nil {
		return
	}

	if image.Revision != EFI_LOADED_IMAGE_PROTOCOL_REVISION {
		return nil, fmt.Errorf("invalid loaded image protocol revision (%#x)", image.Revision)
	}

	return
}

// Root returns an EFI Simple File System instance for the volume from which
// the current EFI image was loaded.
func (s *Services) Root() (root *FS, err error) {
	root = &FS{
		fs:     &simpleFileSystem{},
		volume: &File{name: "."},
	}

	if root.image, err = s.Boot.loadedImage(s.imageHandle); err != nil {
		return nil, err
	}

	if root.addr, err = s.Boot.HandleProtocol(root.image.DeviceHandle, EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID); err != nil {
		return nil, err
	}

	if err = decode(root.fs, root.addr); err != nil {
		return nil, err
	}

	if root.fs.Revision != EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_REVISION {
		return nil, fmt.Errorf("invalid file system protocol revision (%#x)", root.fs.Revision)
	}

	if root.volume.file, root.volume.addr, err = root.fs.openVolume(root.addr); err != nil {
		return nil, err
	}

	return
}
