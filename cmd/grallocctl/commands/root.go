package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/gralloc"
	_ "github.com/gogpu/gralloc/dumb"
	"github.com/gogpu/gralloc/internal/config"
	_ "github.com/gogpu/gralloc/pipe"
)

var (
	cfgFile string
	v       = viper.New()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "grallocctl",
	Short: "Exercise gralloc backends on a DRM device",
	Long: `grallocctl opens a DRM device with one of the gralloc backends and
allocates, maps and fills buffers the way a compositor would.

Settings come from flags, GRALLOC_* environment variables and an optional
grallocctl.yaml file.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./grallocctl.yaml or /etc/gralloc/grallocctl.yaml)")
	flags.String("backend", "", "backend to use (dumb|pipe)")
	flags.String("device", "", "DRM device node")
	flags.String("module", "", "hardware driver module name (pipe)")
	flags.String("module-dir", "", "directory hardware driver modules are loaded from (pipe)")
	flags.String("export", "", "sharing token for new buffers (name|fd)")
	flags.Bool("helper", false, "use the helper-library variant (dumb)")
	flags.String("log-level", "", "log level (debug|info|warn|error)")

	v.BindPFlag("backend", flags.Lookup("backend"))
	v.BindPFlag("device", flags.Lookup("device"))
	v.BindPFlag("pipe.module", flags.Lookup("module"))
	v.BindPFlag("pipe.module_dir", flags.Lookup("module-dir"))
	v.BindPFlag("pipe.export", flags.Lookup("export"))
	v.BindPFlag("dumb.helper", flags.Lookup("helper"))
	v.BindPFlag("logging.level", flags.Lookup("log-level"))
}

// loadConfig reads the configuration and installs the package logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWith(v, cfgFile)
	if err != nil {
		return nil, err
	}
	level, _ := config.ParseLevel(cfg.Logging.Level)
	gralloc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	return cfg, nil
}

// openDriver opens the configured device and backend. The returned
// cleanup function destroys the driver and closes the device.
func openDriver(cfg *config.Config) (gralloc.Driver, func(), error) {
	dev, err := os.OpenFile(cfg.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening device: %w", err)
	}

	drv, err := gralloc.Open(cfg.Backend, int(dev.Fd()), cfg.Options()...)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}

	return drv, func() {
		drv.Destroy()
		dev.Close()
	}, nil
}
