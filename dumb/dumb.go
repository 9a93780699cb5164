// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package dumb implements the gralloc backend for kernel dumb buffers.
//
// Dumb buffers are linear, CPU-mappable buffers with no hardware-specific
// layout. They are created with the generic DRM_IOCTL_MODE_CREATE_DUMB
// family of ioctls and mapped through the fake offset returned by
// DRM_IOCTL_MODE_MAP_DUMB.
//
// Two variants exist. The direct variant issues the ioctls itself and
// creates buffers at the format's own depth. The helper variant
// (gralloc.WithHelper) goes through the NeowayLabs/drm library, which
// only creates 32-bit scanout buffers.
//
// The backend does no locking. The kernel serializes the ioctls, but
// operating on the same buffer from several goroutines is not supported.
package dumb

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"

	"golang.org/x/sys/unix"

	"github.com/gogpu/gralloc"
)

// init registers the dumb backend on package import.
func init() {
	gralloc.Register(gralloc.BackendDumb, func(fd int, o gralloc.Options) (gralloc.Driver, error) {
		if !o.Helper {
			return newDriver(NewKMSDevice(fd), o)
		}
		dev, err := NewHelperDevice(fd)
		if err != nil {
			return nil, err
		}
		drv, err := newDriver(dev, o)
		if err != nil {
			dev.Close()
			return nil, err
		}
		return drv, nil
	})
}

// Driver allocates dumb buffers on a DRM device.
type Driver struct {
	dev    Device
	helper bool
	log    *slog.Logger
}

// buffer is the dumb backend's buffer object.
type buffer struct {
	handle *gralloc.BufferHandle

	// kh is the GEM handle; size is pitch times aligned height.
	kh   uint32
	size int

	// mapping outlives Unmap in the direct variant; mapped is set
	// between Map and Unmap.
	mapping  []byte
	writable bool
	mapped   bool
}

// Handle implements gralloc.Buffer.
func (b *buffer) Handle() *gralloc.BufferHandle {
	return b.handle
}

// New creates a dumb driver on dev. Passing gralloc.WithHelper(true)
// selects the helper-variant buffer rules; dev should then be a
// HelperDevice.
func New(dev Device, opts ...gralloc.Option) (*Driver, error) {
	return newDriver(dev, gralloc.NewOptions(opts...))
}

func newDriver(dev Device, o gralloc.Options) (*Driver, error) {
	c, err := dev.Capability(CapDumbBuffer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDumbBuffer, err)
	}
	if c == 0 {
		return nil, ErrNoDumbBuffer
	}

	return &Driver{dev: dev, helper: o.Helper, log: o.Logger}, nil
}

// logger returns the driver's own logger, or the current package logger
// when none was given.
func (d *Driver) logger() *slog.Logger {
	if d.log != nil {
		return d.log
	}
	return gralloc.Logger()
}

// Name implements gralloc.Driver.
func (d *Driver) Name() string {
	return gralloc.BackendDumb
}

// Helper reports whether the driver uses the helper-library variant.
func (d *Driver) Helper() bool {
	return d.helper
}

// Alloc implements gralloc.Driver.
//
// Dumb buffers cannot be imported: a Token on h is ignored and a new
// buffer is always created.
func (d *Driver) Alloc(h *gralloc.BufferHandle) (gralloc.Buffer, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	bpp := gralloc.BytesPerPixel(h.Format)
	if bpp == 0 {
		d.logger().Error("dumb: unrecognized format", "format", h.Format)
		return nil, fmt.Errorf("%w: %v", gralloc.ErrUnsupportedFormat, h.Format)
	}

	width, height := gralloc.AlignGeometry(h.Format, h.Width, h.Height)
	bits := uint32(bpp * 8)
	if d.helper {
		bits = scanoutBPP
	}

	db, err := d.dev.CreateDumb(uint32(width), uint32(height), bits)
	if err != nil {
		d.logger().Error("dumb: failed to create dumb bo", "width", width, "height", height, "bpp", bits, "err", err)
		return nil, fmt.Errorf("%w: create %dx%d: %w", gralloc.ErrNoMemory, width, height, err)
	}

	// The mapping length must fit an int, and every row must fit the pitch.
	row := uint64(width) * uint64(bits) / 8
	size := uint64(db.Pitch) * uint64(height)
	if uint64(db.Pitch) < row || size > math.MaxInt {
		d.logger().Error("dumb: unusable buffer geometry", "pitch", db.Pitch, "width", width, "height", height, "bpp", bits)
		d.destroy(db.Handle)
		return nil, fmt.Errorf("%w: pitch %d for %dx%d at %d bpp", gralloc.ErrInvalidHandle, db.Pitch, width, height, bits)
	}

	h.Stride = int(db.Pitch)
	h.FBHandle = db.Handle

	b := &buffer{
		handle: h,
		kh:     db.Handle,
		size:   int(size),
	}
	d.logger().Debug("dumb: allocated", "handle", db.Handle, "stride", h.Stride, "size", b.size)
	return b, nil
}

func (d *Driver) buffer(buf gralloc.Buffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b == nil {
		return nil, gralloc.ErrForeignBuffer
	}
	return b, nil
}

// Map implements gralloc.Driver. region is ignored.
//
// A second Map before Unmap fails with gralloc.ErrAlreadyMapped. In the
// direct variant Unmap keeps the mapping, so mapping again returns the
// same memory; it is replaced only when write access is requested on a
// read-only mapping.
func (d *Driver) Map(buf gralloc.Buffer, region image.Rectangle, write bool) ([]byte, error) {
	b, err := d.buffer(buf)
	if err != nil {
		return nil, err
	}

	if b.mapped {
		return nil, gralloc.ErrAlreadyMapped
	}
	if b.mapping != nil {
		if !write || b.writable {
			b.mapped = true
			return b.mapping, nil
		}
		d.release(b)
	}

	off, err := d.dev.MapDumb(b.kh)
	if err != nil {
		d.logger().Error("dumb: failed to map dumb bo", "handle", b.kh, "err", err)
		return nil, fmt.Errorf("dumb: map handle %#x: %w", b.kh, err)
	}

	prot := unix.PROT_READ
	if write {
		prot |= unix.PROT_WRITE
	}

	m, err := d.dev.Mmap(int64(off), b.size, prot)
	if err != nil {
		d.logger().Error("dumb: mmap failed", "handle", b.kh, "err", err)
		return nil, fmt.Errorf("%w: mmap handle %#x: %w", gralloc.ErrNoMemory, b.kh, err)
	}

	b.mapping = m
	b.writable = write
	b.mapped = true
	return m, nil
}

// Unmap implements gralloc.Driver.
// Only the helper variant releases the mapping here; the direct variant
// keeps it until the buffer is mapped for writing or freed.
func (d *Driver) Unmap(buf gralloc.Buffer) {
	b, err := d.buffer(buf)
	if err != nil {
		d.logger().Warn("dumb: unmap", "err", err)
		return
	}
	b.mapped = false
	if d.helper {
		d.release(b)
	}
}

// release unmaps the buffer's mapping, if any.
func (d *Driver) release(b *buffer) {
	if b.mapping == nil {
		return
	}
	if err := d.dev.Munmap(b.mapping); err != nil {
		d.logger().Warn("dumb: munmap failed", "handle", b.kh, "err", err)
	}
	b.mapping = nil
	b.writable = false
	b.mapped = false
}

// Free implements gralloc.Driver.
// A failing destroy request is logged and otherwise ignored.
func (d *Driver) Free(buf gralloc.Buffer) {
	b, err := d.buffer(buf)
	if err != nil {
		d.logger().Warn("dumb: free", "err", err)
		return
	}

	d.release(b)
	d.destroy(b.kh)
	b.handle = nil
}

// destroy releases a kernel buffer; a failure is only logged.
func (d *Driver) destroy(kh uint32) {
	if err := d.dev.DestroyDumb(kh); err != nil {
		d.logger().Warn("dumb: failed to destroy dumb bo", "handle", kh, "err", err)
	}
}

// Destroy implements gralloc.Driver. It closes the helper context if the
// device has one; the device descriptor itself belongs to the caller.
func (d *Driver) Destroy() {
	if c, ok := d.dev.(io.Closer); ok {
		if err := c.Close(); err != nil {
			d.logger().Warn("dumb: closing device", "err", err)
		}
	}
	d.logger().Info("dumb: driver destroyed")
}

var _ gralloc.Driver = (*Driver)(nil)
