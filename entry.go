package rzip

import (
	"strings"

	"github.com/dounine/rzip/extra"
	"github.com/dounine/rzip/payload"
)

// Entry represents one file or directory record in an Archive. A
// trailing "/" in Name marks a directory entry, which carries no
// payload and always emits zero sizes and a zero CRC.
type Entry struct {
	Name    string
	Comment string

	CompressionMethod uint16
	// IsCompressed is true iff Payload currently holds compressed bytes
	// under CompressionMethod. Invariant: IsCompressed implies
	// CompressionMethod == Deflate.
	IsCompressed bool

	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32

	ModTime uint16
	ModDate uint16

	Extras extra.List

	InternalFileAttributes uint16
	ExternalFileAttributes uint32

	VersionMadeSpec, VersionMadeOS     uint8
	VersionNeededSpec, VersionNeededOS uint8

	// LFHOffset is the absolute byte offset of this entry's local file
	// header in the last-emitted archive. It is updated on every emit
	// and, in snapshot mode, also on every parse.
	LFHOffset uint64

	// PayloadPosition is the archive-relative offset where this entry's
	// payload bytes start, recorded when its LFH was last parsed.
	// Serialized explicitly in snapshot mode.
	PayloadPosition uint64

	// Payload is the stream provider backing this entry's content. Its
	// contents correspond to IsCompressed: compressed bytes under
	// CompressionMethod when true, raw bytes otherwise.
	Payload payload.Provider
}

// IsDir reports whether e is a directory entry: its Name ends with "/".
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// config returns a payload.Config describing e's current advertised
// sizes, used whenever a fresh Provider must be allocated for e (clone,
// decompress, compress).
func (e *Entry) config(limitSize uint64) payload.Config {
	return payload.Config{
		LimitSize:        limitSize,
		CompressedSize:   uint64(e.CompressedSize),
		UncompressedSize: uint64(e.UncompressedSize),
	}
}

const (
	// defaultModTime/defaultModDate are the literal MS-DOS timestamp
	// fields new entries get when created by AddFile. AddDirectory
	// keeps the timestamp of the entry it clones.
	defaultModTime = 39620
	defaultModDate = 23170
)
