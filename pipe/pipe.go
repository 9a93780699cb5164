// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipe implements the gralloc backend for hardware drivers
// loaded at runtime.
//
// The driver module is loaded from DefaultModuleDir (or the directory
// given with gralloc.WithModuleDir) and must export EntryPoint. Its
// Screen creates resources, shares them by global name or dma-buf file
// descriptor, and maps them for the CPU through transfers on a single
// rendering context that is created on the first Map.
//
// All Alloc, Free, Map and Unmap calls are serialized by one mutex per
// Driver, since the screen and the rendering context are shared by every
// buffer.
package pipe

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"golang.org/x/sys/unix"

	"github.com/gogpu/gralloc"
)

// init registers the pipe backend on package import.
func init() {
	gralloc.Register(gralloc.BackendPipe, func(fd int, o gralloc.Options) (gralloc.Driver, error) {
		return newDriver(fd, PluginLoader{}, o)
	})
}

// Driver allocates buffers through a hardware driver screen.
type Driver struct {
	mu     sync.Mutex
	module Module
	screen Screen
	ctx    Context

	export  gralloc.TokenKind
	closeFD func(fd int) error
	log     *slog.Logger
}

// buffer is the pipe backend's buffer object.
type buffer struct {
	handle   *gralloc.BufferHandle
	res      Resource
	winsys   WinsysHandle
	fb       uint32
	imported bool
	transfer Transfer
}

// Handle implements gralloc.Buffer.
func (b *buffer) Handle() *gralloc.BufferHandle {
	return b.handle
}

// New loads the hardware driver module selected by opts and creates a
// screen for fd.
func New(fd int, opts ...gralloc.Option) (*Driver, error) {
	return newDriver(fd, PluginLoader{}, gralloc.NewOptions(opts...))
}

// NewWithLoader is like New but loads the module through l.
func NewWithLoader(fd int, l Loader, opts ...gralloc.Option) (*Driver, error) {
	return newDriver(fd, l, gralloc.NewOptions(opts...))
}

func newDriver(fd int, l Loader, o gralloc.Options) (*Driver, error) {
	path := ModulePath(o.ModuleDir, o.Module)
	mod, err := l.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModuleNotFound, path, err)
	}

	factory, err := mod.Factory()
	if err != nil {
		mod.Close()
		if !errors.Is(err, ErrEntryPoint) {
			err = fmt.Errorf("%w: %s: %w", ErrEntryPoint, path, err)
		}
		return nil, err
	}

	screen, err := factory(fd)
	if err == nil && screen == nil {
		err = errors.New("nil screen")
	}
	if err != nil {
		mod.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrScreenCreate, path, err)
	}

	export := o.ExportKind
	if export == gralloc.TokenNone {
		export = gralloc.TokenName
	}

	d := &Driver{
		module:  mod,
		screen:  screen,
		export:  export,
		closeFD: unix.Close,
		log:     o.Logger,
	}
	d.logger().Info("pipe: module loaded", "path", path, "export", export)
	return d, nil
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
	return gralloc.BackendPipe
}

// ContextCreated reports whether the rendering context has been created.
func (d *Driver) ContextCreated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx != nil
}

func (d *Driver) buffer(buf gralloc.Buffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b == nil {
		return nil, gralloc.ErrForeignBuffer
	}
	return b, nil
}

// Alloc implements gralloc.Driver.
//
// If h.Token is set, the buffer it names is imported with stride
// h.Stride and h.Token is left untouched. Otherwise a new resource is
// created and exported with the driver's export kind. Scanout buffers
// additionally get a KMS handle in h.FBHandle.
func (d *Driver) Alloc(h *gralloc.BufferHandle) (gralloc.Buffer, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	b, err := d.allocLocked(h)
	d.mu.Unlock()

	if err != nil {
		d.logger().Error("pipe: failed to allocate buffer", "format", h.Format, "usage", h.Usage, "err", err)
		return nil, err
	}

	if !b.imported {
		h.Token = gralloc.ShareToken{Kind: d.export, Value: int(b.winsys.Handle)}
	}
	h.Stride = b.winsys.Stride
	h.FBHandle = b.fb
	b.handle = h

	d.logger().Debug("pipe: allocated", "token", h.Token, "stride", h.Stride, "fb", h.FBHandle, "imported", b.imported)
	return b, nil
}

func (d *Driver) allocLocked(h *gralloc.BufferHandle) (_ *buffer, err error) {
	format, bind, err := ResolveFormat(h.Format, h.Usage)
	if err != nil {
		return nil, err
	}

	tmpl := Template{
		Format: format,
		Target: gputypes.TextureDimension2D,
		Bind:   bind,
	}
	if !d.screen.IsFormatSupported(tmpl.Format, tmpl.Target, tmpl.Bind) {
		return nil, fmt.Errorf("%w: %v with %v", gralloc.ErrUnsupportedFormat, format, bind)
	}

	tmpl.Width = h.Width
	tmpl.Height = h.Height
	tmpl.Depth = 1
	tmpl.ArraySize = 1

	b := &buffer{}
	exportedFD := false
	defer func() {
		if err == nil {
			return
		}
		if exportedFD {
			d.closeFD(int(b.winsys.Handle))
		}
		if b.res != nil {
			b.res.Release()
		}
	}()

	if h.Token.IsZero() {
		b.res, err = d.screen.ResourceCreate(&tmpl)
		if err == nil && b.res == nil {
			err = errors.New("nil resource")
		}
		if err != nil {
			b.res = nil
			return nil, fmt.Errorf("%w: create %dx%d %v: %w", gralloc.ErrNoMemory, h.Width, h.Height, format, err)
		}

		b.winsys.Type = handleType(d.export)
		if err = d.screen.ResourceGetHandle(b.res, &b.winsys); err != nil {
			return nil, fmt.Errorf("%w: %v handle: %w", ErrExport, d.export, err)
		}
		exportedFD = b.winsys.Type == HandleFD
	} else {
		b.winsys = WinsysHandle{
			Type:   handleType(h.Token.Kind),
			Handle: uint32(h.Token.Value),
			Stride: h.Stride,
		}
		b.res, err = d.screen.ResourceFromHandle(&tmpl, &b.winsys)
		if err == nil && b.res == nil {
			err = errors.New("nil resource")
		}
		if err != nil {
			b.res = nil
			return nil, fmt.Errorf("%w: %v: %w", ErrImport, h.Token, err)
		}
		b.imported = true
	}

	// The framebuffer needs the GEM handle, whatever the sharing token is.
	if h.Usage.Scanout() {
		kms := WinsysHandle{Type: HandleKMS}
		if err = d.screen.ResourceGetHandle(b.res, &kms); err != nil {
			return nil, fmt.Errorf("%w: kms handle: %w", ErrExport, err)
		}
		b.fb = kms.Handle
	}

	return b, nil
}

func handleType(k gralloc.TokenKind) HandleType {
	if k == gralloc.TokenFD {
		return HandleFD
	}
	return HandleShared
}

// Map implements gralloc.Driver. region is ignored: the returned memory
// always starts at the origin of the buffer.
//
// Mapping a buffer that is already mapped is a programming error and
// panics.
func (d *Driver) Map(buf gralloc.Buffer, region image.Rectangle, write bool) ([]byte, error) {
	b, err := d.buffer(buf)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// need a context to get transfer
	if d.ctx == nil {
		ctx, err := d.screen.ContextCreate()
		if err == nil && ctx == nil {
			err = errors.New("nil context")
		}
		if err != nil {
			d.logger().Error("pipe: failed to create pipe context", "err", err)
			return nil, fmt.Errorf("%w: context: %w", gralloc.ErrNoMemory, err)
		}
		d.ctx = ctx
		d.logger().Debug("pipe: context created")
	}

	if b.transfer != nil {
		panic("pipe: Map of a buffer that is already mapped")
	}

	usage := TransferRead
	if write {
		usage |= TransferWrite
	}
	box := Box{
		Width:  b.res.Width(),
		Height: b.res.Height(),
		Depth:  1,
	}

	t, err := d.ctx.TransferMap(b.res, usage, box)
	if err == nil && t == nil {
		err = errors.New("nil transfer")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: transfer: %w", gralloc.ErrNoMemory, err)
	}
	b.transfer = t
	return t.Bytes(), nil
}

// Unmap implements gralloc.Driver. It flushes the context so that CPU
// writes are visible to later hardware use of the buffer.
//
// Unmapping a buffer that is not mapped is a programming error and
// panics.
func (d *Driver) Unmap(buf gralloc.Buffer) {
	b, err := d.buffer(buf)
	if err != nil {
		d.logger().Warn("pipe: unmap", "err", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if b.transfer == nil {
		panic("pipe: Unmap of a buffer that is not mapped")
	}

	d.ctx.TransferUnmap(b.transfer)
	b.transfer = nil
	d.ctx.Flush()
}

// Free implements gralloc.Driver. A file descriptor token is closed and
// cleared from the handle; an active transfer is ended first.
func (d *Driver) Free(buf gralloc.Buffer) {
	b, err := d.buffer(buf)
	if err != nil {
		d.logger().Warn("pipe: free", "err", err)
		return
	}

	if h := b.handle; h != nil {
		if fd, ok := h.Token.FD(); ok {
			if err := d.closeFD(fd); err != nil {
				d.logger().Warn("pipe: closing buffer fd", "fd", fd, "err", err)
			}
			h.Token = gralloc.FDToken(-1)
		}
	}

	d.mu.Lock()
	if b.transfer != nil {
		d.ctx.TransferUnmap(b.transfer)
		b.transfer = nil
	}
	if b.res != nil {
		b.res.Release()
		b.res = nil
	}
	d.mu.Unlock()

	b.handle = nil
}

// Destroy implements gralloc.Driver.
func (d *Driver) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx != nil {
		d.ctx.Destroy()
		d.ctx = nil
	}
	if d.screen != nil {
		d.screen.Destroy()
		d.screen = nil
	}
	if d.module != nil {
		if err := d.module.Close(); err != nil {
			d.logger().Warn("pipe: closing module", "err", err)
		}
		d.module = nil
	}
	d.logger().Info("pipe: driver destroyed")
}

var _ gralloc.Driver = (*Driver)(nil)
