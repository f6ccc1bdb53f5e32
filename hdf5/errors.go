// Package hdf5 provides a pure Go, read-only reader for HDF5 files.
//
// It covers the subset of the format written by the HDF5 library with its
// default settings: old-style and new-style (compact) groups, numeric and
// string datasets with contiguous, compact or chunked storage, deflate,
// shuffle and fletcher32 filters, and attributes on groups and datasets.
package hdf5

import (
	"errors"

	"github.com/robert-malhotra/go-inovesa/internal/format"
)

// Common errors
var (
	ErrNotHDF5     = format.ErrNoSignature
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = format.ErrUnsupported
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
	ErrType        = errors.New("incompatible datatype")
)

// MaxLinkDepth is the maximum number of soft links followed while resolving
// a single path.
const MaxLinkDepth = 100
