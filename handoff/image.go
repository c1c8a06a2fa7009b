// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"

	"github.com/ulikunitz/xz"
)

// DefaultKernelPath is the kernel image path on the boot volume.
const DefaultKernelPath = "loader-stripped.elf"

var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// Image represents a kernel image read from the boot volume.
type Image struct {
	// Data is the kernel image, decompressed if needed.
	Data []byte
	// LoadAddress is the physical address Data is copied to.
	LoadAddress uint64
	// EntryAddress is the physical address control is transferred to.
	EntryAddress uint64
}

// Size returns the kernel image size.
func (img *Image) Size() uint64 {
	return uint64(len(img.Data))
}

// Range returns the physical range occupied by the loaded image.
func (img *Image) Range() Range {
	return Range{img.LoadAddress, img.Size()}
}

// LoadKernel reads the kernel image at the argument path in a single read of
// its full size, as reported by the file information. XZ compressed images
// are decompressed, the result must fit within the layout kernel range.
func LoadKernel(fsys fs.FS, path string, layout *Layout) (img *Image, err error) {
	f, err := fsys.Open(path)

	if err != nil {
		return nil, fail(FileOpenFailure, err)
	}
	defer f.Close()

	fi, err := f.Stat()

	if err != nil {
		return nil, fail(FileInfoFailure, err)
	}

	size := fi.Size()

	if size <= 0 {
		return nil, failf(FileInfoFailure, "invalid image size (%d)", size)
	}

	if uint64(size) > layout.Kernel.Size {
		return nil, failf(AllocationFailure, "image size (%d) exceeds kernel range %v", size, layout.Kernel)
	}

	buf := make([]byte, size)
	n, err := f.Read(buf)

	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, fail(FileReadFailure, err)
	}

	if n != len(buf) {
		return nil, failf(FileReadFailure, "short read (%d < %d)", n, len(buf))
	}

	if bytes.HasPrefix(buf, xzMagic) {
		log.Printf("decompressing kernel image (%d bytes)", len(buf))

		if buf, err = decompress(buf, layout.Kernel.Size); err != nil {
			return nil, fail(FileReadFailure, err)
		}
	}

	img = &Image{
		Data:         buf,
		LoadAddress:  layout.Kernel.Start,
		EntryAddress: layout.Entry,
	}

	return
}

func decompress(buf []byte, max uint64) (out []byte, err error) {
	r, err := xz.NewReader(bytes.NewReader(buf))

	if err != nil {
		return nil, fmt.Errorf("could not open xz stream, %v", err)
	}

	if out, err = io.ReadAll(io.LimitReader(r, int64(max)+1)); err != nil {
		return nil, fmt.Errorf("could not decompress image, %v", err)
	}

	if uint64(len(out)) > max {
		return nil, fmt.Errorf("decompressed image exceeds %d bytes", max)
	}

	return
}

// Verify compares the first n bytes of src and dst, returning a
// VerificationFailure carrying the index of the first mismatch.
func Verify(src []byte, dst []byte, n int) error {
	for i := 0; i < n; i++ {
		if i >= len(src) || i >= len(dst) || src[i] != dst[i] {
			return &Error{Kind: VerificationFailure, Offset: i}
		}
	}

	return nil
}
