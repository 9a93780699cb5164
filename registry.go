package gralloc

import (
	"fmt"
	"sort"
	"sync"
)

// Backend name constants.
const (
	// BackendDumb is the name of the kernel dumb-buffer backend.
	BackendDumb = "dumb"
	// BackendPipe is the name of the hardware-driver (pipe screen) backend.
	BackendPipe = "pipe"
)

// Factory creates a driver for an open device descriptor.
// The descriptor is owned by the caller and must outlive the driver.
type Factory func(fd int, o Options) (Driver, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the sorted names of the registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open creates a driver using the named backend.
// The backend package must have been imported so that its init function
// could register it:
//
//	import _ "github.com/gogpu/gralloc/dumb"
//
//	drv, err := gralloc.Open(gralloc.BackendDumb, fd)
func Open(name string, fd int, opts ...Option) (Driver, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}

	o := NewOptions(opts...)
	drv, err := factory(fd, o)
	if err != nil {
		o.Log().Error("gralloc: driver creation failed", "backend", name, "err", err)
		return nil, err
	}
	o.Log().Info("gralloc: driver created", "backend", name)
	return drv, nil
}

// CreateForDumb creates a dumb-buffer driver for fd.
func CreateForDumb(fd int, opts ...Option) (Driver, error) {
	return Open(BackendDumb, fd, opts...)
}

// CreateForPipe creates a pipe driver for fd that loads the named
// hardware driver module.
func CreateForPipe(fd int, module string, opts ...Option) (Driver, error) {
	opts = append(opts, WithModule(module))
	return Open(BackendPipe, fd, opts...)
}
