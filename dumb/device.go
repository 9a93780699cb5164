// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dumb

// CapDumbBuffer is the DRM capability reporting dumb-buffer support.
const CapDumbBuffer = 0x1

// Dumb describes a dumb buffer created by the kernel.
type Dumb struct {
	// Handle is the GEM handle of the buffer on the device.
	Handle uint32
	// Pitch is the row pitch in bytes chosen by the kernel.
	Pitch uint32
	// Size is the allocation size reported by the kernel.
	Size uint64
}

// Device is the kernel interface used by the dumb backend.
//
// Two implementations are provided: KMSDevice issues the ioctls itself,
// HelperDevice delegates buffer management to the NeowayLabs/drm
// library. Tests substitute their own.
type Device interface {
	// Capability queries a DRM capability value.
	Capability(c uint64) (uint64, error)

	// CreateDumb creates a linear buffer of the given size in pixels and
	// bits per pixel.
	CreateDumb(width, height, bpp uint32) (Dumb, error)

	// MapDumb returns the fake mmap offset of a dumb buffer.
	MapDumb(handle uint32) (uint64, error)

	// DestroyDumb releases a dumb buffer.
	DestroyDumb(handle uint32) error

	// Mmap maps length bytes of the device at offset.
	Mmap(offset int64, length int, prot int) ([]byte, error)

	// Munmap releases a mapping returned by Mmap.
	Munmap(b []byte) error
}
