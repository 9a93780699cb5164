// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipe

import (
	"fmt"
	"path/filepath"
	"plugin"
	"strconv"
)

// EntryPoint is the symbol a hardware driver module exports. It must be a
// function of type func(fd int) (pipe.Screen, error), or a variable of
// type pipe.ScreenFactory.
const EntryPoint = "LoadPipeScreen"

// DefaultModule is the module loaded when no name is given.
const DefaultModule = "gallium"

// ScreenFactory creates a screen for an open device descriptor.
type ScreenFactory func(fd int) (Screen, error)

// Module is a loaded hardware driver module.
type Module interface {
	// Factory resolves the module's screen factory.
	Factory() (ScreenFactory, error)

	// Close unloads the module.
	Close() error
}

// Loader loads hardware driver modules.
type Loader interface {
	Load(path string) (Module, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (Module, error)

// Load implements Loader.
func (f LoaderFunc) Load(path string) (Module, error) {
	return f(path)
}

// DefaultModuleDir returns the directory hardware driver modules are
// installed in, which depends on the pointer size.
func DefaultModuleDir() string {
	if strconv.IntSize == 64 {
		return "/system/lib64/dri"
	}
	return "/system/lib/dri"
}

// ModulePath returns the path of the named module in dir. Empty values
// select DefaultModuleDir and DefaultModule.
func ModulePath(dir, name string) string {
	if dir == "" {
		dir = DefaultModuleDir()
	}
	if name == "" {
		name = DefaultModule
	}
	return filepath.Join(dir, name+"_dri.so")
}

// PluginLoader loads modules built with -buildmode=plugin.
type PluginLoader struct{}

// Load implements Loader.
func (PluginLoader) Load(path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &pluginModule{path: path, p: p}, nil
}

type pluginModule struct {
	path string
	p    *plugin.Plugin
}

func (m *pluginModule) Factory() (ScreenFactory, error) {
	sym, err := m.p.Lookup(EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEntryPoint, m.path, err)
	}
	return screenFactory(m.path, sym)
}

// screenFactory converts the EntryPoint symbol of the module at path.
func screenFactory(path string, sym plugin.Symbol) (ScreenFactory, error) {
	switch f := sym.(type) {
	case func(int) (Screen, error):
		return f, nil
	case *ScreenFactory:
		if f != nil && *f != nil {
			return *f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: %s has type %T", ErrEntryPoint, path, EntryPoint, sym)
}

// Close is a no-op: the Go runtime cannot unload plugins, so the module
// stays mapped until the process exits.
func (m *pluginModule) Close() error {
	return nil
}
