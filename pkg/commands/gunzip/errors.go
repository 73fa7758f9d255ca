package gunzip

import "errors"

var (
	errUnknownSuffix = errors.New("unknown suffix")
	errExists        = errors.New("file exists")
)
