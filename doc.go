// Package gralloc allocates, maps and shares graphics buffer objects
// backed by a kernel DRM device.
//
// # Overview
//
// The package defines the Driver interface used by a buffer-allocation
// front end, the BufferHandle that describes a buffer across process
// boundaries, and a registry of backends. Two backends are provided:
//
//   - dumb: linear buffers created with the kernel's generic dumb-buffer
//     ioctls, either directly or through a buffer-management helper
//     library.
//   - pipe: buffers created by a hardware driver module loaded at
//     runtime, shared by global name or file descriptor, and mapped
//     through transfers on a lazily created rendering context.
//
// # Backend Selection
//
// Backends register themselves on import. The front end picks one at
// process start and keeps the returned Driver until shutdown:
//
//	import _ "github.com/gogpu/gralloc/pipe"
//
//	drv, err := gralloc.CreateForPipe(fd, "gallium")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer drv.Destroy()
//
// # Buffer Lifecycle
//
//	h := &gralloc.BufferHandle{
//		Width:  64,
//		Height: 64,
//		Format: gralloc.FormatRGBA8888,
//		Usage:  gralloc.UsageSWReadOften | gralloc.UsageSWWriteOften,
//	}
//	bo, err := drv.Alloc(h) // h.Stride and h.Token are now set
//	...
//	pix, err := drv.Map(bo, image.Rectangle{}, true)
//	...
//	drv.Unmap(bo)
//	drv.Free(bo)
//
// Another process imports the buffer by passing a handle with the same
// geometry, Stride and Token to its own driver's Alloc.
//
// # Logging
//
// gralloc is silent by default. Use SetLogger, or WithLogger per driver,
// to receive diagnostics through log/slog.
package gralloc
