package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/gralloc"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Open the configured backend and report what was found",
	Args:  cobra.NoArgs,
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backends: %s\n", strings.Join(gralloc.Available(), ", "))
	fmt.Fprintf(out, "device:   %s\n", cfg.Device)

	drv, cleanup, err := openDriver(cfg)
	if err != nil {
		fmt.Fprintf(out, "backend:  %s (unavailable: %v)\n", cfg.Backend, err)
		return err
	}
	defer cleanup()

	fmt.Fprintf(out, "backend:  %s\n", drv.Name())
	switch drv.Name() {
	case gralloc.BackendDumb:
		fmt.Fprintf(out, "helper:   %t\n", cfg.Dumb.Helper)
	case gralloc.BackendPipe:
		fmt.Fprintf(out, "module:   %s\n", cfg.Pipe.Module)
		fmt.Fprintf(out, "export:   %s\n", cfg.Pipe.Export)
	}
	return nil
}
