// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dumb

import (
	"errors"
	"unsafe"

	"github.com/NeowayLabs/drm"
	"github.com/NeowayLabs/drm/ioctl"
	"golang.org/x/sys/unix"
)

type sysGetCap struct {
	capability uint64
	value      uint64
}

type sysCreateDumb struct {
	height, width uint32
	bpp           uint32
	flags         uint32

	// returned values
	handle uint32
	pitch  uint32
	size   uint64
}

type sysMapDumb struct {
	handle uint32
	pad    uint32

	// fake offset for a subsequent mmap
	offset uint64
}

type sysDestroyDumb struct {
	handle uint32
}

// DRM ioctl request codes.
var (
	ioctlGetCap = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetCap{})), drm.IOCTLBase, 0x0C)

	ioctlModeCreateDumb = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysCreateDumb{})), drm.IOCTLBase, 0xB2)

	ioctlModeMapDumb = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysMapDumb{})), drm.IOCTLBase, 0xB3)

	ioctlModeDestroyDumb = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysDestroyDumb{})), drm.IOCTLBase, 0xB4)
)

// drmIoctl issues a DRM request on fd, restarting it when interrupted.
func drmIoctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		err := ioctl.Do(uintptr(fd), req, uintptr(arg))
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		return err
	}
}

// getCap queries a DRM capability on fd.
func getCap(fd int, c uint64) (uint64, error) {
	arg := sysGetCap{capability: c}
	if err := drmIoctl(fd, uintptr(ioctlGetCap), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.value, nil
}

// KMSDevice talks to a DRM device node through raw ioctls.
// It does not own the descriptor.
type KMSDevice struct {
	fd int
}

// NewKMSDevice returns a Device issuing ioctls on fd.
func NewKMSDevice(fd int) *KMSDevice {
	return &KMSDevice{fd: fd}
}

// Capability implements Device.
func (d *KMSDevice) Capability(c uint64) (uint64, error) {
	return getCap(d.fd, c)
}

// CreateDumb implements Device.
func (d *KMSDevice) CreateDumb(width, height, bpp uint32) (Dumb, error) {
	arg := sysCreateDumb{width: width, height: height, bpp: bpp}
	if err := drmIoctl(d.fd, uintptr(ioctlModeCreateDumb), unsafe.Pointer(&arg)); err != nil {
		return Dumb{}, err
	}
	return Dumb{Handle: arg.handle, Pitch: arg.pitch, Size: arg.size}, nil
}

// MapDumb implements Device.
func (d *KMSDevice) MapDumb(handle uint32) (uint64, error) {
	arg := sysMapDumb{handle: handle}
	if err := drmIoctl(d.fd, uintptr(ioctlModeMapDumb), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.offset, nil
}

// DestroyDumb implements Device.
func (d *KMSDevice) DestroyDumb(handle uint32) error {
	arg := sysDestroyDumb{handle: handle}
	return drmIoctl(d.fd, uintptr(ioctlModeDestroyDumb), unsafe.Pointer(&arg))
}

// Mmap implements Device.
func (d *KMSDevice) Mmap(offset int64, length int, prot int) ([]byte, error) {
	return unix.Mmap(d.fd, offset, length, prot, unix.MAP_SHARED)
}

// Munmap implements Device.
func (d *KMSDevice) Munmap(b []byte) error {
	return unix.Munmap(b)
}

var _ Device = (*KMSDevice)(nil)
