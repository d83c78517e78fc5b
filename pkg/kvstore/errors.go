// Copyright 2024-2026 Aiku AI

package kvstore

import "errors"

var (
	ErrInvalidDataset = errors.New("kvstore: invalid dataset name")
	ErrEncodeFailed   = errors.New("kvstore: encode failed")
	ErrDecodeFailed   = errors.New("kvstore: decode failed")
	ErrWriteFailed    = errors.New("kvstore: write failed")
)
