package gralloc

import "image"

// Driver is the uniform operation set implemented by every backend.
// The front end holds one Driver for the lifetime of the process and
// calls Destroy once at shutdown.
//
// Whether a Driver is safe for concurrent use depends on the backend:
// the pipe backend serializes every call internally, the dumb backend
// leaves it to the caller not to operate on the same Buffer from
// several goroutines.
type Driver interface {
	// Name returns the backend identifier (e.g., "dumb", "pipe").
	Name() string

	// Alloc creates a buffer for h, or imports the buffer h.Token refers
	// to. On success Stride (and, for created buffers, Token and
	// FBHandle) are written back into h.
	Alloc(h *BufferHandle) (Buffer, error)

	// Free releases the buffer's kernel resources and any mapping left
	// active. Errors are logged, never returned. b must not be used
	// afterwards.
	Free(b Buffer)

	// Map makes the buffer visible to the CPU. region is accepted for
	// symmetry with the front end and ignored: the returned slice always
	// starts at the buffer origin and covers the whole buffer.
	Map(b Buffer, region image.Rectangle, write bool) ([]byte, error)

	// Unmap ends the CPU access started by Map.
	Unmap(b Buffer)

	// Destroy releases the driver. No Buffer may be used afterwards.
	Destroy()
}
