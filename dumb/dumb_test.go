// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dumb

import (
	"bytes"
	"errors"
	"image"
	"log/slog"
	"math"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/gogpu/gralloc"
)

var errFake = errors.New("fake device error")

// fakeDevice emulates the kernel side of dumb buffers. Pitch is the
// row size rounded up to 64 bytes, like most KMS drivers do.
type fakeDevice struct {
	cap    uint64
	capErr error

	failCreate  bool
	failMap     bool
	failMmap    bool
	failDestroy bool

	// pitch overrides the computed row pitch when non-zero.
	pitch uint32

	next     uint32
	live     map[uint32]uint64
	lastBPP  uint32
	creates  int
	mmaps    int
	munmaps  int
	lastProt int
	closed   bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{cap: 1, live: make(map[uint32]uint64)}
}

func (f *fakeDevice) Capability(c uint64) (uint64, error) {
	if c != CapDumbBuffer {
		return 0, unix.EINVAL
	}
	return f.cap, f.capErr
}

func (f *fakeDevice) CreateDumb(width, height, bpp uint32) (Dumb, error) {
	f.creates++
	f.lastBPP = bpp
	if f.failCreate {
		return Dumb{}, unix.ENOMEM
	}
	f.next++
	pitch := (width*((bpp+7)/8) + 63) &^ 63
	if f.pitch != 0 {
		pitch = f.pitch
	}
	size := uint64(pitch) * uint64(height)
	f.live[f.next] = size
	return Dumb{Handle: f.next, Pitch: pitch, Size: size}, nil
}

func (f *fakeDevice) MapDumb(handle uint32) (uint64, error) {
	if f.failMap {
		return 0, unix.EINVAL
	}
	if _, ok := f.live[handle]; !ok {
		return 0, unix.ENOENT
	}
	return uint64(handle) << 12, nil
}

func (f *fakeDevice) DestroyDumb(handle uint32) error {
	if _, ok := f.live[handle]; !ok {
		return unix.ENOENT
	}
	delete(f.live, handle)
	if f.failDestroy {
		return errFake
	}
	return nil
}

func (f *fakeDevice) Mmap(offset int64, length int, prot int) ([]byte, error) {
	if f.failMmap {
		return nil, unix.ENOMEM
	}
	f.mmaps++
	f.lastProt = prot
	return make([]byte, length), nil
}

func (f *fakeDevice) Munmap(b []byte) error {
	f.munmaps++
	return nil
}

func (f *fakeDevice) Close() error {
	f.closed = true
	return nil
}

func newTestDriver(t *testing.T, dev *fakeDevice, opts ...gralloc.Option) *Driver {
	t.Helper()
	d, err := New(dev, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(d.Destroy)
	return d
}

func rgbaHandle(w, h int) *gralloc.BufferHandle {
	return &gralloc.BufferHandle{
		Width:  w,
		Height: h,
		Format: gralloc.FormatRGBA8888,
		Usage:  gralloc.UsageSWReadOften | gralloc.UsageSWWriteOften,
	}
}

func TestNewProbe(t *testing.T) {
	tests := []struct {
		name    string
		cap     uint64
		capErr  error
		wantErr bool
	}{
		{"supported", 1, nil, false},
		{"capability zero", 0, nil, true},
		{"probe fails", 0, unix.EINVAL, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			dev.cap, dev.capErr = tt.cap, tt.capErr

			d, err := New(dev)
			if tt.wantErr {
				if !errors.Is(err, ErrNoDumbBuffer) {
					t.Fatalf("New() error = %v, want ErrNoDumbBuffer", err)
				}
				if d != nil {
					t.Error("New() returned a driver on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if d.Name() != gralloc.BackendDumb {
				t.Errorf("Name() = %q, want %q", d.Name(), gralloc.BackendDumb)
			}
		})
	}
}

func TestAllocMapUnmapFree(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDriver(t, dev)

	h := rgbaHandle(64, 64)
	bo, err := d.Alloc(h)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if bo == nil {
		t.Fatal("Alloc() returned nil buffer")
	}
	if bo.Handle() != h {
		t.Error("Handle() does not return the allocated handle")
	}
	if h.Stride < 256 {
		t.Errorf("Stride = %d, want >= 256", h.Stride)
	}
	if h.FBHandle == 0 {
		t.Error("FBHandle not set")
	}
	if dev.lastBPP != 32 {
		t.Errorf("requested bpp = %d, want 32", dev.lastBPP)
	}

	pix, err := d.Map(bo, image.Rect(8, 8, 16, 16), true)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if len(pix) != h.Stride*64 {
		t.Errorf("len(Map()) = %d, want %d", len(pix), h.Stride*64)
	}
	if dev.lastProt != unix.PROT_READ|unix.PROT_WRITE {
		t.Errorf("prot = %#x, want read|write", dev.lastProt)
	}

	d.Unmap(bo)
	d.Free(bo)

	if len(dev.live) != 0 {
		t.Errorf("%d buffers still alive after Free", len(dev.live))
	}
	if dev.munmaps != dev.mmaps {
		t.Errorf("munmaps = %d, mmaps = %d", dev.munmaps, dev.mmaps)
	}
}

func TestAllocStride(t *testing.T) {
	tests := []struct {
		format gralloc.Format
		width  int
		bpp    int
	}{
		{gralloc.FormatRGBA8888, 64, 4},
		{gralloc.FormatRGBX8888, 33, 4},
		{gralloc.FormatBGRA8888, 1, 4},
		{gralloc.FormatRGB888, 100, 3},
		{gralloc.FormatRGB565, 17, 2},
		{gralloc.FormatYCbCr422I, 15, 2},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			d := newTestDriver(t, newFakeDevice())

			var strides []int
			for i := 0; i < 2; i++ {
				h := &gralloc.BufferHandle{Width: tt.width, Height: 10, Format: tt.format}
				bo, err := d.Alloc(h)
				if err != nil {
					t.Fatalf("Alloc() error = %v", err)
				}
				strides = append(strides, h.Stride)
				d.Free(bo)
			}

			if strides[0] < tt.width*tt.bpp {
				t.Errorf("Stride = %d, want >= %d", strides[0], tt.width*tt.bpp)
			}
			if strides[0] != strides[1] {
				t.Errorf("Stride not deterministic: %d vs %d", strides[0], strides[1])
			}
		})
	}
}

func TestAllocUnsupportedFormat(t *testing.T) {
	formats := []gralloc.Format{
		gralloc.FormatYV12,
		gralloc.FormatDRMNV12,
		gralloc.FormatYCbCr422SP,
		gralloc.FormatYCrCb420SP,
		gralloc.Format(0x999),
	}

	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			dev := newFakeDevice()
			d := newTestDriver(t, dev)

			bo, err := d.Alloc(&gralloc.BufferHandle{Width: 64, Height: 64, Format: f})
			if !errors.Is(err, gralloc.ErrUnsupportedFormat) {
				t.Fatalf("Alloc() error = %v, want ErrUnsupportedFormat", err)
			}
			if bo != nil {
				t.Error("Alloc() returned a buffer on failure")
			}
			if dev.creates != 0 || len(dev.live) != 0 {
				t.Errorf("device saw %d creates, %d live buffers", dev.creates, len(dev.live))
			}
		})
	}
}

func TestAllocInvalidHandle(t *testing.T) {
	d := newTestDriver(t, newFakeDevice())

	for _, h := range []*gralloc.BufferHandle{
		nil,
		{Width: 0, Height: 10, Format: gralloc.FormatRGBA8888},
		{Width: 10, Height: -1, Format: gralloc.FormatRGBA8888},
	} {
		if _, err := d.Alloc(h); !errors.Is(err, gralloc.ErrInvalidHandle) {
			t.Errorf("Alloc(%+v) error = %v, want ErrInvalidHandle", h, err)
		}
	}
}

func TestAllocCreateFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failCreate = true
	d := newTestDriver(t, dev)

	bo, err := d.Alloc(rgbaHandle(64, 64))
	if !errors.Is(err, gralloc.ErrNoMemory) {
		t.Fatalf("Alloc() error = %v, want ErrNoMemory", err)
	}
	if bo != nil {
		t.Error("Alloc() returned a buffer on failure")
	}
}

func TestMapFailures(t *testing.T) {
	t.Run("map offset", func(t *testing.T) {
		dev := newFakeDevice()
		d := newTestDriver(t, dev)
		bo, err := d.Alloc(rgbaHandle(16, 16))
		if err != nil {
			t.Fatalf("Alloc() error = %v", err)
		}
		defer d.Free(bo)

		dev.failMap = true
		if _, err := d.Map(bo, image.Rectangle{}, false); err == nil {
			t.Error("Map() succeeded with failing MapDumb")
		}
	})

	t.Run("mmap", func(t *testing.T) {
		dev := newFakeDevice()
		d := newTestDriver(t, dev)
		bo, err := d.Alloc(rgbaHandle(16, 16))
		if err != nil {
			t.Fatalf("Alloc() error = %v", err)
		}
		defer d.Free(bo)

		dev.failMmap = true
		if _, err := d.Map(bo, image.Rectangle{}, false); !errors.Is(err, gralloc.ErrNoMemory) {
			t.Errorf("Map() error = %v, want ErrNoMemory", err)
		}
	})
}

func TestDirectUnmapKeepsMapping(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDriver(t, dev)

	bo, err := d.Alloc(rgbaHandle(32, 32))
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}

	first, err := d.Map(bo, image.Rectangle{}, false)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	d.Unmap(bo)
	if dev.munmaps != 0 {
		t.Errorf("direct Unmap released the mapping")
	}

	second, err := d.Map(bo, image.Rectangle{}, false)
	if err != nil {
		t.Fatalf("second Map() error = %v", err)
	}
	if &first[0] != &second[0] {
		t.Error("second read-only Map() created a distinct mapping")
	}
	d.Unmap(bo)

	// Upgrading to write access replaces the read-only mapping.
	if _, err := d.Map(bo, image.Rectangle{}, true); err != nil {
		t.Fatalf("write Map() error = %v", err)
	}
	if dev.mmaps != 2 || dev.munmaps != 1 {
		t.Errorf("mmaps = %d, munmaps = %d, want 2 and 1", dev.mmaps, dev.munmaps)
	}
	d.Unmap(bo)

	// A writable mapping also serves later read requests.
	if _, err := d.Map(bo, image.Rectangle{}, false); err != nil {
		t.Fatalf("read Map() after write error = %v", err)
	}
	if dev.mmaps != 2 {
		t.Errorf("mmaps = %d, want 2", dev.mmaps)
	}

	d.Free(bo)
	if dev.munmaps != 2 {
		t.Errorf("Free did not release the retained mapping")
	}
}

func TestMapTwiceWithoutUnmap(t *testing.T) {
	tests := []struct {
		name        string
		helper      bool
		first, next bool
	}{
		{"direct read then write", false, false, true},
		{"direct read then read", false, false, false},
		{"direct write then write", false, true, true},
		{"helper read then write", true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			d := newTestDriver(t, dev, gralloc.WithHelper(tt.helper))

			bo, err := d.Alloc(rgbaHandle(16, 16))
			if err != nil {
				t.Fatalf("Alloc() error = %v", err)
			}
			defer d.Free(bo)

			held, err := d.Map(bo, image.Rectangle{}, tt.first)
			if err != nil {
				t.Fatalf("Map() error = %v", err)
			}

			pix, err := d.Map(bo, image.Rectangle{}, tt.next)
			if !errors.Is(err, gralloc.ErrAlreadyMapped) {
				t.Errorf("second Map() error = %v, want ErrAlreadyMapped", err)
			}
			if pix != nil {
				t.Error("second Map() returned memory")
			}
			if dev.mmaps != 1 || dev.munmaps != 0 {
				t.Errorf("mmaps = %d, munmaps = %d; the held mapping was replaced", dev.mmaps, dev.munmaps)
			}
			held[0] = 0xff

			d.Unmap(bo)
			if _, err := d.Map(bo, image.Rectangle{}, tt.next); err != nil {
				t.Errorf("Map() after Unmap error = %v", err)
			}
			d.Unmap(bo)
		})
	}
}

func TestAllocGeometryOverflow(t *testing.T) {
	tests := []struct {
		name   string
		h      *gralloc.BufferHandle
		helper bool
	}{
		{"width beyond int", &gralloc.BufferHandle{Width: math.MaxInt, Height: 1, Format: gralloc.FormatRGBA8888}, false},
		{"height beyond int", &gralloc.BufferHandle{Width: 1, Height: math.MaxInt, Format: gralloc.FormatRGB565}, false},
		{"row beyond uint32", &gralloc.BufferHandle{Width: 1 << 30, Height: 1, Format: gralloc.FormatRGBA8888}, false},
		{"just above limit", &gralloc.BufferHandle{Width: gralloc.MaxDimension + 1, Height: 1, Format: gralloc.FormatRGB888}, false},
		{"helper row beyond uint32", &gralloc.BufferHandle{Width: 1 << 30, Height: 1, Format: gralloc.FormatRGB565}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			d := newTestDriver(t, dev, gralloc.WithHelper(tt.helper))

			bo, err := d.Alloc(tt.h)
			if !errors.Is(err, gralloc.ErrInvalidHandle) {
				t.Fatalf("Alloc() error = %v, want ErrInvalidHandle", err)
			}
			if bo != nil {
				t.Error("Alloc() returned a buffer")
			}
			if dev.creates != 0 {
				t.Errorf("creates = %d, want 0", dev.creates)
			}
			if tt.h.Stride != 0 {
				t.Errorf("Stride = %d written on failure", tt.h.Stride)
			}
		})
	}
}

func TestAllocShortPitch(t *testing.T) {
	dev := newFakeDevice()
	dev.pitch = 64
	d := newTestDriver(t, dev)

	h := rgbaHandle(100, 10)
	if _, err := d.Alloc(h); !errors.Is(err, gralloc.ErrInvalidHandle) {
		t.Fatalf("Alloc() error = %v, want ErrInvalidHandle", err)
	}
	if len(dev.live) != 0 {
		t.Errorf("%d buffers leaked after a rejected pitch", len(dev.live))
	}
}

func TestHelperVariant(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDriver(t, dev, gralloc.WithHelper(true))

	if !d.Helper() {
		t.Fatal("Helper() = false")
	}

	h := &gralloc.BufferHandle{Width: 40, Height: 20, Format: gralloc.FormatRGB565}
	bo, err := d.Alloc(h)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if dev.lastBPP != scanoutBPP {
		t.Errorf("requested bpp = %d, want %d", dev.lastBPP, scanoutBPP)
	}
	if h.Stride < 40*4 {
		t.Errorf("Stride = %d, want >= %d", h.Stride, 40*4)
	}

	if _, err := d.Map(bo, image.Rectangle{}, true); err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if _, err := d.Map(bo, image.Rectangle{}, true); !errors.Is(err, gralloc.ErrAlreadyMapped) {
		t.Errorf("second Map() error = %v, want ErrAlreadyMapped", err)
	}

	d.Unmap(bo)
	if dev.munmaps != 1 {
		t.Errorf("helper Unmap did not release the mapping")
	}
	if _, err := d.Map(bo, image.Rectangle{}, false); err != nil {
		t.Errorf("Map() after Unmap error = %v", err)
	}
	d.Unmap(bo)
	d.Free(bo)

	if len(dev.live) != 0 {
		t.Errorf("%d buffers still alive after Free", len(dev.live))
	}
}

func TestFreeLogsDestroyFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dev := newFakeDevice()
	dev.failDestroy = true
	d := newTestDriver(t, dev, gralloc.WithLogger(logger))

	bo, err := d.Alloc(rgbaHandle(8, 8))
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	d.Free(bo)

	if !strings.Contains(buf.String(), "failed to destroy dumb bo") {
		t.Errorf("expected destroy failure to be logged, got: %s", buf.String())
	}
}

type otherBuffer struct{}

func (otherBuffer) Handle() *gralloc.BufferHandle { return nil }

func TestForeignBuffer(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDriver(t, dev)

	if _, err := d.Map(otherBuffer{}, image.Rectangle{}, false); !errors.Is(err, gralloc.ErrForeignBuffer) {
		t.Errorf("Map() error = %v, want ErrForeignBuffer", err)
	}
	// Must not panic.
	d.Unmap(otherBuffer{})
	d.Free(otherBuffer{})
}

func TestDestroyClosesDevice(t *testing.T) {
	dev := newFakeDevice()
	d, err := New(dev, gralloc.WithHelper(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	d.Destroy()
	if !dev.closed {
		t.Error("Destroy() did not close the helper context")
	}
}

func TestRegistered(t *testing.T) {
	if !gralloc.IsRegistered(gralloc.BackendDumb) {
		t.Fatal("dumb backend should be registered on import")
	}
}

func TestOpenBadDescriptor(t *testing.T) {
	// -1 makes the capability probe fail with EBADF.
	drv, err := gralloc.CreateForDumb(-1)
	if !errors.Is(err, ErrNoDumbBuffer) {
		t.Fatalf("CreateForDumb(-1) error = %v, want ErrNoDumbBuffer", err)
	}
	if drv != nil {
		t.Error("CreateForDumb(-1) returned a driver")
	}

	drv, err = gralloc.CreateForDumb(-1, gralloc.WithHelper(true))
	if !errors.Is(err, ErrHelperInit) {
		t.Fatalf("CreateForDumb(-1, helper) error = %v, want ErrHelperInit", err)
	}
	if drv != nil {
		t.Error("CreateForDumb(-1, helper) returned a driver")
	}
}

func TestDriverFollowsPackageLogger(t *testing.T) {
	orig := gralloc.Logger()
	t.Cleanup(func() { gralloc.SetLogger(orig) })

	dev := newFakeDevice()
	d := newTestDriver(t, dev)

	// Installed after the driver was created.
	var buf bytes.Buffer
	gralloc.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	if _, err := d.Alloc(&gralloc.BufferHandle{Width: 8, Height: 8, Format: gralloc.FormatYV12}); err == nil {
		t.Fatal("Alloc() of a planar format succeeded")
	}
	if !strings.Contains(buf.String(), "dumb: unrecognized format") {
		t.Errorf("package logger missed the driver's message: %q", buf.String())
	}
}
