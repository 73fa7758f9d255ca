package gzip

import "errors"

var (
	errIsDir     = errors.New("is a directory")
	errHasSuffix = errors.New("already has suffix")
	errExists    = errors.New("already exists")
)
