package gralloc

import "fmt"

// Format is a hardware-agnostic pixel format code as used by the front end.
type Format uint32

// Pixel formats understood by the backends.
const (
	FormatRGBA8888 Format = 1
	FormatRGBX8888 Format = 2
	FormatRGB888   Format = 3
	FormatRGB565   Format = 4
	FormatBGRA8888 Format = 5

	FormatYCbCr422SP Format = 0x10
	FormatYCrCb420SP Format = 0x11
	FormatYCbCr422I  Format = 0x14
	FormatDRMNV12    Format = 0x102
	FormatYV12       Format = 0x32315659
)

var formatNames = map[Format]string{
	FormatRGBA8888:   "RGBA_8888",
	FormatRGBX8888:   "RGBX_8888",
	FormatRGB888:     "RGB_888",
	FormatRGB565:     "RGB_565",
	FormatBGRA8888:   "BGRA_8888",
	FormatYCbCr422SP: "YCbCr_422_SP",
	FormatYCrCb420SP: "YCrCb_420_SP",
	FormatYCbCr422I:  "YCbCr_422_I",
	FormatDRMNV12:    "DRM_NV12",
	FormatYV12:       "YV12",
}

// String returns the conventional name of the format.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(0x%x)", uint32(f))
}

// Planar reports whether the format stores luma and chroma in separate planes.
func (f Format) Planar() bool {
	switch f {
	case FormatYV12, FormatDRMNV12, FormatYCbCr422SP, FormatYCrCb420SP:
		return true
	}
	return false
}

// BytesPerPixel returns the size of one pixel of a packed format.
// It returns 0 for planar and unrecognized formats; linear dumb
// buffers cannot describe them.
func BytesPerPixel(f Format) int {
	switch f {
	case FormatRGBA8888, FormatRGBX8888, FormatBGRA8888:
		return 4
	case FormatRGB888:
		return 3
	case FormatRGB565, FormatYCbCr422I:
		return 2
	}
	return 0
}

// AlignGeometry rounds width and height up to the alignment required by
// the format. Planar 4:2:0 formats also grow the height to make room for
// the chroma planes.
func AlignGeometry(f Format, width, height int) (int, int) {
	alignW, alignH, extraDiv := 1, 1, 0

	switch f {
	case FormatYV12:
		alignW, alignH, extraDiv = 32, 2, 2
	case FormatDRMNV12:
		alignW, alignH, extraDiv = 2, 2, 2
	case FormatYCbCr422I:
		alignW = 2
	}

	width = align(width, alignW)
	height = align(height, alignH)
	if extraDiv != 0 {
		height += height / extraDiv
	}
	return width, height
}

func align(v, a int) int {
	return (v + a - 1) &^ (a - 1)
}
