// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipe

import "errors"

// Package errors for the pipe backend.
var (
	// ErrModuleNotFound is returned when the hardware driver module
	// cannot be loaded.
	ErrModuleNotFound = errors.New("pipe: driver module not found")

	// ErrEntryPoint is returned when the module lacks a usable
	// EntryPoint symbol.
	ErrEntryPoint = errors.New("pipe: driver module entry point missing")

	// ErrScreenCreate is returned when the module fails to create a
	// screen for the device.
	ErrScreenCreate = errors.New("pipe: screen creation failed")

	// ErrImport is returned when a shared buffer cannot be imported.
	ErrImport = errors.New("pipe: buffer import failed")

	// ErrExport is returned when a resource handle cannot be obtained.
	ErrExport = errors.New("pipe: buffer export failed")
)
