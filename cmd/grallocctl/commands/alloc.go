package commands

import (
	"encoding/binary"
	"fmt"
	"image"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"

	"github.com/gogpu/gralloc"
)

var (
	allocWidth  int
	allocHeight int
	allocFormat string
	allocUsage  []string
	allocFill   bool
	allocImport int
)

var allocCmd = &cobra.Command{
	Use:   "alloc",
	Short: "Allocate a buffer, map it and optionally fill it with a test pattern",
	Long: `alloc runs one buffer through its whole life cycle: allocate, map,
fill, unmap and free. It prints the stride, the sharing token and the
framebuffer handle the backend reported.`,
	Args: cobra.NoArgs,
	RunE: runAlloc,
}

func init() {
	allocCmd.Flags().IntVar(&allocWidth, "width", 256, "buffer width in pixels")
	allocCmd.Flags().IntVar(&allocHeight, "height", 256, "buffer height in pixels")
	allocCmd.Flags().StringVar(&allocFormat, "format", gralloc.FormatRGBA8888.String(), "pixel format")
	allocCmd.Flags().StringSliceVar(&allocUsage, "usage", []string{"sw-read", "sw-write"}, "usage flags (sw-read, sw-write, texture, render, 2d, composer, fb)")
	allocCmd.Flags().BoolVar(&allocFill, "fill", true, "fill the buffer with a test pattern")
	allocCmd.Flags().IntVar(&allocImport, "import-name", 0, "import the buffer with this global name instead of creating one")
	rootCmd.AddCommand(allocCmd)
}

var usageNames = map[string]gralloc.Usage{
	"sw-read":  gralloc.UsageSWReadOften,
	"sw-write": gralloc.UsageSWWriteOften,
	"texture":  gralloc.UsageHWTexture,
	"render":   gralloc.UsageHWRender,
	"2d":       gralloc.UsageHW2D,
	"composer": gralloc.UsageHWComposer,
	"fb":       gralloc.UsageHWFB,
}

func parseUsage(names []string) (gralloc.Usage, error) {
	var u gralloc.Usage
	for _, n := range names {
		flag, ok := usageNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown usage %q", n)
		}
		u |= flag
	}
	return u, nil
}

func runAlloc(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(allocFormat)
	if err != nil {
		return err
	}
	usage, err := parseUsage(allocUsage)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	drv, cleanup, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	h := &gralloc.BufferHandle{
		Width:  allocWidth,
		Height: allocHeight,
		Format: format,
		Usage:  usage,
	}
	if allocImport != 0 {
		h.Token = gralloc.NameToken(uint32(allocImport))
		h.Stride = allocWidth * gralloc.BytesPerPixel(format)
	}

	bo, err := drv.Alloc(h)
	if err != nil {
		return fmt.Errorf("alloc: %w", err)
	}
	defer drv.Free(bo)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "buffer:   %dx%d %s\n", h.Width, h.Height, h.Format)
	fmt.Fprintf(out, "stride:   %d\n", h.Stride)
	fmt.Fprintf(out, "token:    %s\n", h.Token)
	fmt.Fprintf(out, "fb:       %d\n", h.FBHandle)

	if !usage.CPURead() && !usage.CPUWrite() {
		return nil
	}

	pix, err := drv.Map(bo, image.Rect(0, 0, h.Width, h.Height), usage.CPUWrite())
	if err != nil {
		return fmt.Errorf("map: %w", err)
	}
	if allocFill && usage.CPUWrite() {
		if fillPattern(pix, h) {
			fmt.Fprintln(out, "filled:   hsv gradient")
		}
	}
	drv.Unmap(bo)
	return nil
}

// fillPattern paints a horizontal hue sweep that fades to black towards
// the bottom row. It reports false for formats it cannot write.
func fillPattern(pix []byte, h *gralloc.BufferHandle) bool {
	bpp := gralloc.BytesPerPixel(h.Format)
	if bpp == 0 || h.Format == gralloc.FormatYCbCr422I {
		return false
	}

	for y := 0; y < h.Height; y++ {
		row := pix[y*h.Stride:]
		value := 1 - float64(y)/float64(h.Height)
		for x := 0; x < h.Width; x++ {
			c := colorful.Hsv(360*float64(x)/float64(h.Width), 1, value)
			r, g, b := c.Clamped().RGB255()
			putPixel(row[x*bpp:], h.Format, r, g, b)
		}
	}
	return true
}

func putPixel(p []byte, f gralloc.Format, r, g, b uint8) {
	switch f {
	case gralloc.FormatRGBA8888, gralloc.FormatRGBX8888:
		p[0], p[1], p[2], p[3] = r, g, b, 0xff
	case gralloc.FormatBGRA8888:
		p[0], p[1], p[2], p[3] = b, g, r, 0xff
	case gralloc.FormatRGB888:
		p[0], p[1], p[2] = r, g, b
	case gralloc.FormatRGB565:
		v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
		binary.LittleEndian.PutUint16(p, v)
	}
}
