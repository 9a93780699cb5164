// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dumb

import (
	"fmt"
	"math"
	"os"

	"github.com/NeowayLabs/drm/mode"
	"golang.org/x/sys/unix"
)

// scanoutBPP is the bits per pixel of the helper library's only buffer
// type, a 32-bit XRGB scanout buffer.
const scanoutBPP = 32

// HelperDevice delegates buffer management to the NeowayLabs/drm mode
// package. The library works on an *os.File, so the device descriptor is
// duplicated into a helper context that Close releases; the caller's
// descriptor is never closed.
type HelperDevice struct {
	file *os.File
}

// NewHelperDevice creates the helper context for fd.
func NewHelperDevice(fd int) (*HelperDevice, error) {
	dup, err := unix.Dup(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHelperInit, err)
	}
	unix.CloseOnExec(dup)

	file := os.NewFile(uintptr(dup), fmt.Sprintf("drm-fd-%d", fd))
	if file == nil {
		unix.Close(dup)
		return nil, ErrHelperInit
	}
	return &HelperDevice{file: file}, nil
}

func (d *HelperDevice) fd() int {
	return int(d.file.Fd())
}

// Capability implements Device.
func (d *HelperDevice) Capability(c uint64) (uint64, error) {
	return getCap(d.fd(), c)
}

// CreateDumb implements Device. The helper only creates buffers in its
// scanout format, so bpp must be scanoutBPP.
func (d *HelperDevice) CreateDumb(width, height, bpp uint32) (Dumb, error) {
	if bpp != scanoutBPP {
		return Dumb{}, fmt.Errorf("dumb: helper supports %d bpp only, got %d", scanoutBPP, bpp)
	}
	if width > math.MaxUint16 || height > math.MaxUint16 {
		return Dumb{}, fmt.Errorf("%w: %dx%d", ErrGeometry, width, height)
	}
	fb, err := mode.CreateFB(d.file, uint16(width), uint16(height), bpp)
	if err != nil {
		return Dumb{}, err
	}
	return Dumb{Handle: fb.Handle, Pitch: fb.Pitch, Size: fb.Size}, nil
}

// MapDumb implements Device.
func (d *HelperDevice) MapDumb(handle uint32) (uint64, error) {
	return mode.MapDumb(d.file, handle)
}

// DestroyDumb implements Device.
func (d *HelperDevice) DestroyDumb(handle uint32) error {
	return mode.DestroyDumb(d.file, handle)
}

// Mmap implements Device.
func (d *HelperDevice) Mmap(offset int64, length int, prot int) ([]byte, error) {
	return unix.Mmap(d.fd(), offset, length, prot, unix.MAP_SHARED)
}

// Munmap implements Device.
func (d *HelperDevice) Munmap(b []byte) error {
	return unix.Munmap(b)
}

// Close releases the helper context.
func (d *HelperDevice) Close() error {
	return d.file.Close()
}

var _ Device = (*HelperDevice)(nil)
