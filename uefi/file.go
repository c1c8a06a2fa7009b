// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// EFI_FILE_INFO_ID
var EFI_FILE_INFO_ID = MustParseGUID("09576e92-6d3f-11d2-8e39-00a0c969723b")

const (
	EFI_FILE_PROTOCOL_REVISION  = 0x00010000
	EFI_FILE_PROTOCOL_REVISION2 = 0x00020000

	// Open modes
	EFI_FILE_MODE_READ   = 0x0000000000000001
	EFI_FILE_MODE_WRITE  = 0x0000000000000002
	EFI_FILE_MODE_CREATE = 0x8000000000000000

	// File attributes
	EFI_FILE_READ_ONLY = 0x0000000000000001
	EFI_FILE_HIDDEN    = 0x0000000000000002
	EFI_FILE_SYSTEM    = 0x0000000000000004
	EFI_FILE_DIRECTORY = 0x0000000000000010
	EFI_FILE_ARCHIVE   = 0x0000000000000020
)

const (
	// EFI_FILE_INFO size without FileName
	fileInfoSize = 80
	// MaxFileName represents the maximum supported file name length
	MaxFileName = 255
)

// fileProtocol represents an EFI File Protocol instance.
type fileProtocol struct {
	Revision    uint64
	Open        uint64
	Close       uint64
	Delete      uint64
	Read        uint64
	Write       uint64
	GetPosition uint64
	SetPosition uint64
	GetInfo     uint64
	SetInfo     uint64
	Flush       uint64
	OpenEx      uint64
	ReadEx      uint64
	WriteEx     uint64
	FlushEx     uint64
}

func decodeFileProtocol(addr uint64) (f *fileProtocol, err error) {
	f = &fileProtocol{}

	if err = decode(f, addr); err != nil {
		return
	}

	if f.Revision != EFI_FILE_PROTOCOL_REVISION && f.Revision != EFI_FILE_PROTOCOL_REVISION2 {
		return nil, fmt.Errorf("invalid file protocol revision (%#x)", f.Revision)
	}

	return
}

// open calls EFI_FILE_PROTOCOL.Open().
func (fp *fileProtocol) open(addr uint64, name string, mode uint64) (f *fileProtocol, faddr uint64, err error) {
	path, err := toUCS2(name)

	if err != nil {
		return
	}

	status := callService(ptrval(&fp.Open),
		[]uint64{
			addr,
			ptrval(&faddr),
			ptrval(&path[0]),
			mode,
			0,
		},
	)

	if err = parseStatus(status); err != nil {
		return
	}

	if f, err = decodeFileProtocol(faddr); err != nil {
		return nil, 0, err
	}

	return
}

// read calls EFI_FILE_PROTOCOL.Read().
func (fp *fileProtocol) read(addr uint64, buf []byte) (n int, err error) {
	size := uint64(len(buf))

	status := callService(ptrval(&fp.Read),
		[]uint64{
			addr,
			ptrval(&size),
			ptrval(&buf[0]),
		},
	)

	return int(size), parseStatus(status)
}

// close calls EFI_FILE_PROTOCOL.Close().
func (fp *fileProtocol) close(addr uint64) (err error) {
	return parseStatus(callService(ptrval(&fp.Close),
		[]uint64{
			addr,
		},
	))
}

// getInfo calls EFI_FILE_PROTOCOL.GetInfo() for EFI_FILE_INFO.
func (fp *fileProtocol) getInfo(addr uint64) (buf []byte, err error) {
	guid := EFI_FILE_INFO_ID
	buf = make([]byte, fileInfoSize+(MaxFileName+1)*2)
	size := uint64(len(buf))

	status := callService(ptrval(&fp.GetInfo),
		[]uint64{
			addr,
			ptrval(&guid),
			ptrval(&size),
			ptrval(&buf[0]),
		},
	)

	if err = parseStatus(status); err != nil {
		return nil, err
	}

	return buf[:size], nil
}

// efiTime represents an EFI_TIME instance.
type efiTime struct {
	Year       uint16
	Month      uint8
	Day        uint8
	Hour       uint8
	Minute     uint8
	Second     uint8
	_          uint8
	Nanosecond uint32
	TimeZone   int16
	Daylight   uint8
	_          uint8
}

func (t *efiTime) time() time.Time {
	if t.Year == 0 {
		return time.Time{}
	}

	loc := time.UTC

	// EFI_UNSPECIFIED_TIMEZONE
	if t.TimeZone != 0x07ff {
		loc = time.FixedZone("", -int(t.TimeZone)*60)
	}

	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day),
		int(t.Hour), int(t.Minute), int(t.Second), int(t.Nanosecond), loc)
}

// fileInfo represents an EFI_FILE_INFO instance, without FileName.
type fileInfo struct {
	Size             uint64
	FileSize         uint64
	PhysicalSize     uint64
	CreateTime       efiTime
	LastAccessTime   efiTime
	ModificationTime efiTime
	Attribute        uint64
}

func (fi *fileInfo) decode(buf []byte) (name string, err error) {
	if len(buf) < fileInfoSize {
		return "", errors.New("invalid file information size")
	}

	if _, err = binary.Decode(buf[:fileInfoSize], binary.LittleEndian, fi); err != nil {
		return
	}

	return fromUCS2(buf[fileInfoSize:])
}

// FileInfo implements the [fs.FileInfo] interface for EFI_FILE_INFO.
type FileInfo struct {
	name string
	info *fileInfo
}

// Name returns the base name of the file.
func (fi *FileInfo) Name() string {
	return fi.name
}

// Size returns the file size in bytes.
func (fi *FileInfo) Size() int64 {
	return int64(fi.info.FileSize)
}

// Mode returns the file mode bits.
func (fi *FileInfo) Mode() (mode fs.FileMode) {
	mode = 0444

	if fi.info.Attribute&EFI_FILE_READ_ONLY == 0 {
		mode |= 0222
	}

	if fi.IsDir() {
		mode |= fs.ModeDir | 0111
	}

	return
}

// ModTime returns the modification time.
func (fi *FileInfo) ModTime() time.Time {
	return fi.info.ModificationTime.time()
}

// IsDir reports whether the file is a directory.
func (fi *FileInfo) IsDir() bool {
	return fi.info.Attribute&EFI_FILE_DIRECTORY != 0
}

// Sys returns the EFI file attributes.
func (fi *FileInfo) Sys() any {
	return fi.info.Attribute
}

// File implements the [fs.File] interface for the EFI File Protocol.
type File struct {
	name string
	addr uint64
	file *fileProtocol
}

// Stat calls EFI_FILE_PROTOCOL.GetInfo().
func (f *File) Stat() (fs.FileInfo, error) {
	if f.file == nil {
		return nil, fs.ErrClosed
	}

	buf, err := f.file.getInfo(f.addr)

	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: f.name, Err: err}
	}

	fi := &FileInfo{
		info: &fileInfo{},
	}

	if fi.name, err = fi.info.decode(buf); err != nil {
		return nil, &fs.PathError{Op: "stat", Path: f.name, Err: err}
	}

	return fi, nil
}

// Read calls EFI_FILE_PROTOCOL.Read(), a single call transfers up to len(p)
// bytes.
func (f *File) Read(p []byte) (n int, err error) {
	if f.file == nil {
		return 0, fs.ErrClosed
	}

	if len(p) == 0 {
		return
	}

	if n, err = f.file.read(f.addr, p); err != nil {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: err}
	}

	if n == 0 {
		return 0, io.EOF
	}

	return
}

// Close calls EFI_FILE_PROTOCOL.Close().
func (f *File) Close() (err error) {
	if f.file == nil {
		return fs.ErrClosed
	}

	err = f.file.close(f.addr)
	f.file = nil

	return
}
