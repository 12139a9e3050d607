package repository

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrInvalidDataset    = errors.New("invalid dataset")
	ErrUnsupportedFormat = errors.New("unsupported table format")
)
