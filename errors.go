package gralloc

import "errors"

// Errors shared by all backends. Backend packages wrap these with their
// own context, so callers should compare with errors.Is.
var (
	// ErrNotRegistered is returned by Open when no backend with the
	// requested name has been registered.
	ErrNotRegistered = errors.New("gralloc: backend not registered")

	// ErrInvalidHandle is returned when a BufferHandle is nil or carries
	// non-positive geometry.
	ErrInvalidHandle = errors.New("gralloc: invalid buffer handle")

	// ErrUnsupportedFormat is returned when a pixel format, or a
	// format/usage combination, cannot be served by the backend.
	ErrUnsupportedFormat = errors.New("gralloc: unsupported format")

	// ErrNoMemory is returned when the kernel or hardware driver refuses
	// to create or map a resource.
	ErrNoMemory = errors.New("gralloc: out of memory")

	// ErrForeignBuffer is returned when a Buffer created by a different
	// driver is passed in.
	ErrForeignBuffer = errors.New("gralloc: buffer does not belong to driver")

	// ErrAlreadyMapped is returned when mapping a buffer that has an
	// active mapping and the backend cannot reuse it.
	ErrAlreadyMapped = errors.New("gralloc: buffer already mapped")
)
