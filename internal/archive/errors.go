package archive

import "errors"

var (
	// ErrArchiveCorrupt is returned when the container or its structure file cannot be read.
	ErrArchiveCorrupt = errors.New("archive corrupt")
	// ErrResourceMissing is returned when a note file or attachment is absent from the archive.
	ErrResourceMissing = errors.New("archive resource missing")
)
