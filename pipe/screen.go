// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipe

import "github.com/gogpu/gputypes"

// Screen is the allocation interface of a loaded hardware driver.
// Calls are serialized by the Driver; implementations need not be safe
// for concurrent use.
type Screen interface {
	// IsFormatSupported reports whether resources of the given format,
	// target shape and bind flags can be created.
	IsFormatSupported(f Format, target gputypes.TextureDimension, bind Bind) bool

	// ResourceCreate creates a new resource.
	ResourceCreate(t *Template) (Resource, error)

	// ResourceFromHandle imports the buffer wh refers to.
	ResourceFromHandle(t *Template, wh *WinsysHandle) (Resource, error)

	// ResourceGetHandle exports r as a handle of type wh.Type, filling
	// wh.Handle and wh.Stride.
	ResourceGetHandle(r Resource, wh *WinsysHandle) error

	// ContextCreate creates a rendering context.
	ContextCreate() (Context, error)

	// Destroy releases the screen.
	Destroy()
}

// Context is a rendering context used to move resources in and out of
// CPU-visible memory.
type Context interface {
	// TransferMap maps box of r for CPU access.
	TransferMap(r Resource, usage TransferUsage, box Box) (Transfer, error)

	// TransferUnmap ends a transfer started by TransferMap.
	TransferUnmap(t Transfer)

	// Flush submits pending work without a fence.
	Flush()

	// Destroy releases the context.
	Destroy()
}

// Resource is a hardware buffer owned by the driver.
type Resource interface {
	Width() int
	Height() int

	// Release drops the reference held by the caller.
	Release()
}

// Transfer is a CPU-visible window onto a resource.
type Transfer interface {
	// Bytes returns the mapped memory, starting at the box origin.
	Bytes() []byte

	// Stride returns the row pitch of the mapping in bytes.
	Stride() int
}

// HandleType selects the kind of WinsysHandle.
type HandleType uint8

const (
	// HandleShared is a global (flink) name.
	HandleShared HandleType = iota
	// HandleKMS is a GEM handle local to the device descriptor, used to
	// create framebuffers.
	HandleKMS
	// HandleFD is a dma-buf file descriptor.
	HandleFD
)

// WinsysHandle identifies a resource outside the driver.
type WinsysHandle struct {
	Type   HandleType
	Handle uint32
	Stride int
}

// Template describes a resource to create or import.
type Template struct {
	Format    Format
	Target    gputypes.TextureDimension
	Bind      Bind
	Width     int
	Height    int
	Depth     int
	ArraySize int
}

// TransferUsage is the access requested for a transfer.
type TransferUsage uint32

// Transfer usage flags.
const (
	TransferRead TransferUsage = 1 << iota
	TransferWrite
)

// Box is a region of a resource.
type Box struct {
	X, Y, Z              int
	Width, Height, Depth int
}
