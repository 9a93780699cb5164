// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dumb

import "errors"

// Package errors for the dumb backend.
var (
	// ErrNoDumbBuffer is returned when the device does not report
	// dumb-buffer support, or the capability query fails.
	ErrNoDumbBuffer = errors.New("dumb: device lacks dumb buffer support")

	// ErrHelperInit is returned when the helper-library context cannot
	// be created.
	ErrHelperInit = errors.New("dumb: helper context initialization failed")

	// ErrGeometry is returned when the buffer size exceeds what the
	// helper library can express.
	ErrGeometry = errors.New("dumb: geometry out of range")
)
