package gralloc

import "log/slog"

// Option configures a Driver during creation.
//
// Example:
//
//	drv, err := gralloc.CreateForPipe(fd, "radeonsi",
//		gralloc.WithExportKind(gralloc.TokenFD),
//		gralloc.WithLogger(slog.Default()))
type Option func(*Options)

// Options holds the creation parameters passed to backend factories.
// Backends ignore fields that do not apply to them.
type Options struct {
	// Module is the hardware driver module name (pipe backend).
	Module string

	// ModuleDir overrides the directory the module is loaded from
	// (pipe backend).
	ModuleDir string

	// ExportKind selects the sharing token created for new buffers
	// (pipe backend). Defaults to TokenName.
	ExportKind TokenKind

	// Helper selects the helper-library variant of the dumb backend.
	Helper bool

	// Logger receives backend diagnostics. When nil, the driver logs
	// through whatever Logger() returns at the time of each message.
	Logger *slog.Logger
}

// defaultOptions returns the default driver options.
func defaultOptions() Options {
	return Options{
		ExportKind: TokenName,
	}
}

// NewOptions applies opts on top of the defaults.
// Backend constructors that are called directly use it to share the
// defaulting rules of Open.
func NewOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Log returns o.Logger, or the current package logger if it is nil.
func (o Options) Log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return Logger()
}

// WithModule sets the hardware driver module name.
func WithModule(name string) Option {
	return func(o *Options) {
		o.Module = name
	}
}

// WithModuleDir sets the directory hardware driver modules are loaded from.
func WithModuleDir(dir string) Option {
	return func(o *Options) {
		o.ModuleDir = dir
	}
}

// WithExportKind selects how newly created buffers are shared.
// TokenNone is ignored.
func WithExportKind(k TokenKind) Option {
	return func(o *Options) {
		if k != TokenNone {
			o.ExportKind = k
		}
	}
}

// WithHelper selects the helper-library variant of the dumb backend.
func WithHelper(enable bool) Option {
	return func(o *Options) {
		o.Helper = enable
	}
}

// WithLogger sets the logger used by the driver.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
