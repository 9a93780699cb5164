// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipe

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gralloc"
)

// Format is a pixel format as understood by the hardware driver.
type Format uint32

// Hardware driver formats.
const (
	FormatNone Format = iota
	FormatR8G8B8A8Unorm
	FormatR8G8B8X8Unorm
	FormatR8G8B8Unorm
	FormatB5G6R5Unorm
	FormatB8G8R8A8Unorm
)

var formatInfo = [...]struct {
	name string
	bpp  int
	tex  gputypes.TextureFormat
}{
	FormatNone:          {"NONE", 0, gputypes.TextureFormatUndefined},
	FormatR8G8B8A8Unorm: {"R8G8B8A8_UNORM", 4, gputypes.TextureFormatRGBA8Unorm},
	FormatR8G8B8X8Unorm: {"R8G8B8X8_UNORM", 4, gputypes.TextureFormatUndefined},
	FormatR8G8B8Unorm:   {"R8G8B8_UNORM", 3, gputypes.TextureFormatUndefined},
	FormatB5G6R5Unorm:   {"B5G6R5_UNORM", 2, gputypes.TextureFormatUndefined},
	FormatB8G8R8A8Unorm: {"B8G8R8A8_UNORM", 4, gputypes.TextureFormatBGRA8Unorm},
}

// String returns the format name.
func (f Format) String() string {
	if int(f) < len(formatInfo) {
		return formatInfo[f].name
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// BytesPerPixel returns the pixel size, or 0 for FormatNone.
func (f Format) BytesPerPixel() int {
	if int(f) < len(formatInfo) {
		return formatInfo[f].bpp
	}
	return 0
}

// TextureFormat returns the WebGPU texture format with the same memory
// layout, or gputypes.TextureFormatUndefined if WebGPU has none.
func (f Format) TextureFormat() gputypes.TextureFormat {
	if int(f) < len(formatInfo) {
		return formatInfo[f].tex
	}
	return gputypes.TextureFormatUndefined
}

// Bind is a set of capabilities requested for a resource.
type Bind uint32

// Bind flags.
const (
	BindRenderTarget Bind = 1 << iota
	BindSamplerView
	BindTransferWrite
	BindTransferRead
	BindScanout
	BindShared
)

var bindNames = []struct {
	bit  Bind
	name string
}{
	{BindRenderTarget, "RENDER_TARGET"},
	{BindSamplerView, "SAMPLER_VIEW"},
	{BindTransferWrite, "TRANSFER_WRITE"},
	{BindTransferRead, "TRANSFER_READ"},
	{BindScanout, "SCANOUT"},
	{BindShared, "SHARED"},
}

// Has reports whether all bits of flag are set.
func (b Bind) Has(flag Bind) bool {
	return b&flag == flag
}

// String lists the set flags separated by '|'.
func (b Bind) String() string {
	if b == 0 {
		return "0"
	}
	var sb strings.Builder
	for _, n := range bindNames {
		if b&n.bit == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(n.name)
	}
	return sb.String()
}

// formatFor maps a front-end format to a driver format.
// Planar YUV formats have no driver equivalent.
func formatFor(f gralloc.Format) Format {
	switch f {
	case gralloc.FormatRGBA8888:
		return FormatR8G8B8A8Unorm
	case gralloc.FormatRGBX8888:
		return FormatR8G8B8X8Unorm
	case gralloc.FormatRGB888:
		return FormatR8G8B8Unorm
	case gralloc.FormatRGB565:
		return FormatB5G6R5Unorm
	case gralloc.FormatBGRA8888:
		return FormatB8G8R8A8Unorm
	}
	return FormatNone
}

// bindFor derives the bind flags for a usage mask. Buffers are always
// shareable.
func bindFor(u gralloc.Usage) Bind {
	bind := BindShared

	if u.CPURead() {
		bind |= BindTransferRead
	}
	if u.CPUWrite() {
		bind |= BindTransferWrite
	}
	if u&gralloc.UsageHWTexture != 0 {
		bind |= BindSamplerView
	}
	if u&gralloc.UsageHWRender != 0 {
		bind |= BindRenderTarget
	}
	if u&gralloc.UsageHWFB != 0 {
		bind |= BindRenderTarget | BindScanout
	}
	return bind
}

// ResolveFormat translates a front-end format and usage into a driver
// format and bind flags. Unknown and planar formats fail with
// gralloc.ErrUnsupportedFormat.
func ResolveFormat(f gralloc.Format, u gralloc.Usage) (Format, Bind, error) {
	pf := formatFor(f)
	if pf == FormatNone {
		return FormatNone, 0, fmt.Errorf("%w: %v", gralloc.ErrUnsupportedFormat, f)
	}
	return pf, bindFor(u), nil
}
