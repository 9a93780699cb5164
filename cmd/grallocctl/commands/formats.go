package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/gralloc"
	"github.com/gogpu/gralloc/pipe"
)

// knownFormats lists the formats in the order they are printed.
var knownFormats = []gralloc.Format{
	gralloc.FormatRGBA8888,
	gralloc.FormatRGBX8888,
	gralloc.FormatRGB888,
	gralloc.FormatRGB565,
	gralloc.FormatBGRA8888,
	gralloc.FormatYCbCr422SP,
	gralloc.FormatYCrCb420SP,
	gralloc.FormatYCbCr422I,
	gralloc.FormatDRMNV12,
	gralloc.FormatYV12,
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "Print how each pixel format maps onto the backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printFormats(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func printFormats(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tCODE\tDUMB BPP\tPIPE FORMAT\tTEXTURE FORMAT")
	for _, f := range knownFormats {
		bpp := "-"
		if n := gralloc.BytesPerPixel(f); n != 0 && !f.Planar() {
			bpp = fmt.Sprint(n * 8)
		}
		pf, tf := "-", "-"
		if p, _, err := pipe.ResolveFormat(f, 0); err == nil {
			pf = p.String()
			tf = fmt.Sprint(p.TextureFormat())
		}
		fmt.Fprintf(tw, "%s\t%#x\t%s\t%s\t%s\n", f, uint32(f), bpp, pf, tf)
	}
	return tw.Flush()
}

func parseFormat(s string) (gralloc.Format, error) {
	for _, f := range knownFormats {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q (see grallocctl formats)", s)
}
