// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rzip parses, mutates, and re-serializes ZIP archives. It reads
// an existing container via the central-directory/local-file-header
// layout, lets callers add, replace, remove, decompress, recompress, and
// digest entries, and re-emits either a conformant ZIP file or an
// internal snapshot form that preserves cursor and compression state.
package rzip

import (
	"fmt"
	"io"

	"github.com/dounine/rzip/payload"
)

// Archive is an ordered, keyed collection of Entries plus the
// archive-level state carried across parse and emit.
type Archive struct {
	entries *entryIndex

	// Comment is the EOCD comment.
	Comment string

	// ComputeCRC32 governs whether Compress recomputes CRC-32 over the
	// uncompressed payload. When false, Compress zeroes the CRC field
	// instead, tolerated by readers that skip CRC verification.
	ComputeCRC32 bool
}

// New returns an empty Archive with CRC-32 computation enabled.
func New() *Archive {
	return &Archive{entries: newEntryIndex(), ComputeCRC32: true}
}

// EnableCRC32 turns on CRC-32 recomputation during Compress.
func (a *Archive) EnableCRC32() { a.ComputeCRC32 = true }

// DisableCRC32 turns off CRC-32 recomputation during Compress; the CRC
// field is zeroed instead.
func (a *Archive) DisableCRC32() { a.ComputeCRC32 = false }

// Entries returns the archive's entries in insertion order. The
// returned slice must not be mutated by the caller.
func (a *Archive) Entries() []*Entry { return a.entries.entries() }

// Get returns the entry named name, or nil if absent.
func (a *Archive) Get(name string) *Entry { return a.entries.get(name) }

// RemoveFile removes the entry named name, preserving the relative
// order of the remaining entries. It reports whether name was present.
func (a *Archive) RemoveFile(name string) bool { return a.entries.remove(name) }

// Parse reads a conformant ZIP archive from r: it locates the EOCD via
// a bounded tail scan, seeks to the central directory offset, and reads
// exactly cd_entries_total CDE records, each of which pulls its linked
// LFH and payload bytes via factory. Bytes in front of the archive are
// skipped when r also implements io.ReaderAt; otherwise the stored
// offsets are taken as absolute positions in r.
func Parse(r io.ReadSeeker, factory payload.Factory, limitSize uint64) (*Archive, error) {
	eocdPos, err := findEOCD(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(eocdPos, io.SeekStart); err != nil {
		return nil, ioFailure(eocdPos, err)
	}
	eocd, err := readEOCD(r, eocdPos)
	if err != nil {
		return nil, err
	}

	a := New()
	a.Comment = eocd.comment

	// Prefix bytes shift the EOCD past cd_offset+cd_size; continue over a
	// view that starts where the archive does.
	if base := eocdPos - int64(eocd.cdSize) - int64(eocd.cdOffset); base > 0 {
		if ra, ok := r.(io.ReaderAt); ok {
			end := eocdPos + eocdLen + int64(len(eocd.comment))
			r = io.NewSectionReader(ra, base, end-base)
		}
	}

	if _, err := r.Seek(int64(eocd.cdOffset), io.SeekStart); err != nil {
		return nil, ioFailure(int64(eocd.cdOffset), err)
	}
	for i := uint16(0); i < eocd.cdEntriesTotal; i++ {
		e, err := readCentralDirEntry(r, ModeArchiveParse, factory, limitSize)
		if err != nil {
			return nil, err
		}
		a.entries.upsert(e)
	}
	return a, nil
}

// AddFile reads all of src into a fresh payload provider, classifies it
// as text or binary by inspecting its first 1 KiB, and inserts a new
// Deflate entry named name at the end of the archive. An existing entry
// of the same name is replaced in place, keeping its position.
func (a *Archive) AddFile(name string, src io.Reader, factory payload.Factory, limitSize uint64) error {
	prov, err := factory(payload.Config{LimitSize: limitSize})
	if err != nil {
		return newErr(KindIO, -1, err)
	}
	n, err := io.Copy(prov, src)
	if err != nil {
		return ioFailure(-1, err)
	}
	if _, err := prov.Seek(0, io.SeekStart); err != nil {
		return ioFailure(-1, err)
	}

	prefix := make([]byte, classifyPrefixLen)
	pn, err := io.ReadFull(prov, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ioFailure(-1, err)
	}
	isText := classifyText(prefix[:pn])
	if _, err := prov.Seek(0, io.SeekStart); err != nil {
		return ioFailure(-1, err)
	}

	e := &Entry{
		Name:              name,
		CompressionMethod: Deflate,
		IsCompressed:      false,
		CompressedSize:    uint32(n),
		UncompressedSize:  uint32(n),
		ModTime:           defaultModTime,
		ModDate:           defaultModDate,
		VersionMadeSpec:   versionMadeFile,
		VersionMadeOS:     osUnix,
		VersionNeededSpec: versionNeededFile,
		VersionNeededOS:   osMSDOS,
		Payload:           prov,
	}
	if isText {
		e.InternalFileAttributes = 1
	}
	a.entries.upsert(e)
	return nil
}

// AddDirectory inserts a deep copy of entry, a directory or file
// template the caller has otherwise fully populated. Its payload, if
// any, is streamed into a fresh provider via factory so the archive
// never aliases the caller's provider.
func (a *Archive) AddDirectory(entry *Entry, factory payload.Factory, limitSize uint64) error {
	clone, err := tryClone(entry, factory, limitSize)
	if err != nil {
		return err
	}
	a.entries.upsert(clone)
	return nil
}

// SaveFile upserts name's content: if an entry named name already
// exists its payload is replaced via PutData; otherwise a new entry is
// added via AddFile.
func (a *Archive) SaveFile(name string, src io.Reader, factory payload.Factory, limitSize uint64) error {
	if e := a.entries.get(name); e != nil {
		return e.PutData(src, factory, limitSize)
	}
	return a.AddFile(name, src, factory, limitSize)
}

// PutData replaces e's payload with the contents of src, marking the
// entry as uncompressed raw data pending a future Compress call.
func (e *Entry) PutData(src io.Reader, factory payload.Factory, limitSize uint64) error {
	prov, err := factory(payload.Config{LimitSize: limitSize})
	if err != nil {
		return newErr(KindIO, -1, err)
	}
	n, err := io.Copy(prov, src)
	if err != nil {
		return ioFailure(-1, err)
	}
	if _, err := prov.Seek(0, io.SeekStart); err != nil {
		return ioFailure(-1, err)
	}
	if old := e.Payload; old != nil {
		old.Close()
	}
	e.Payload = prov
	e.UncompressedSize = uint32(n)
	e.CompressedSize = uint32(n)
	e.CRC32 = 0
	e.IsCompressed = false
	return nil
}

// TryClone deep-copies e: its payload is streamed into a fresh provider
// allocated through factory, leaving e untouched.
func (e *Entry) TryClone(factory payload.Factory, limitSize uint64) (*Entry, error) {
	return tryClone(e, factory, limitSize)
}

func tryClone(e *Entry, factory payload.Factory, limitSize uint64) (*Entry, error) {
	clone := *e
	if e.Payload == nil {
		return &clone, nil
	}
	cfg := e.config(limitSize)
	dst, err := factory(cfg)
	if err != nil {
		return nil, newErr(KindIO, -1, err)
	}
	if err := payload.CopyInto(dst, e.Payload, -1); err != nil {
		return nil, ioFailure(-1, err)
	}
	clone.Payload = dst
	return &clone, nil
}

// Package runs the emit pipeline with no progress callback.
func (a *Archive) Package(w io.Writer, level int, factory payload.Factory, limitSize uint64) error {
	return a.PackageWithCallback(w, level, factory, limitSize, nil)
}

// PackageWithCallback compresses every eligible entry (method=Deflate,
// IsCompressed=false) first, then writes LFH+payload for each entry in
// insertion order while buffering the central directory, and finally
// writes the directory and EOCD. cb, when non-nil, receives aggregate
// compression progress across all entries compressed during this call.
func (a *Archive) PackageWithCallback(w io.Writer, level int, factory payload.Factory, limitSize uint64, cb ProgressFunc) error {
	entries := a.entries.entries()

	var total int64
	for _, e := range entries {
		if e.CompressionMethod == Deflate && !e.IsCompressed && e.Payload != nil {
			if n, err := payload.Len(e.Payload); err == nil {
				total += n
			}
		}
	}

	progress := &aggregateProgress{total: total, user: cb}
	for _, e := range entries {
		if e.CompressionMethod != Deflate || e.IsCompressed || e.Payload == nil {
			continue
		}
		preLen, _ := payload.Len(e.Payload)
		if err := e.CompressWithCallback(factory, limitSize, level, a.ComputeCRC32, progress.forEntry()); err != nil {
			return err
		}
		progress.advance(preLen)
	}

	directoryBytes := &sliceCollector{}
	directory := &countWriter{w: directoryBytes}

	cw := &countWriter{w: w}
	for _, e := range entries {
		e.LFHOffset = uint64(cw.count)
		if err := writeLocalFileHeader(cw, e, ModeArchiveEmit); err != nil {
			return err
		}
		if e.Payload != nil && !e.IsDir() {
			if _, err := e.Payload.Seek(0, io.SeekStart); err != nil {
				return ioFailure(-1, err)
			}
			if _, err := io.CopyN(cw, e.Payload, int64(e.CompressedSize)); err != nil && err != io.EOF {
				return ioFailure(-1, err)
			}
		}
		if err := writeCentralDirEntry(directory, e, ModeArchiveEmit); err != nil {
			return err
		}
	}
	filesSize := cw.count
	directorySize := directory.count

	if _, err := w.Write(directoryBytes.b); err != nil {
		return ioFailure(-1, err)
	}

	eocd := &eocdRecord{
		cdEntriesThisDisk: uint16(len(entries)),
		cdEntriesTotal:    uint16(len(entries)),
		cdSize:            uint32(directorySize),
		cdOffset:          uint32(filesSize),
		comment:           a.Comment,
	}
	if err := writeEOCD(w, eocd); err != nil {
		return err
	}

	if ws, ok := w.(io.Seeker); ok {
		if _, err := ws.Seek(0, io.SeekStart); err != nil {
			return ioFailure(-1, err)
		}
	}
	return nil
}

// sliceCollector is a minimal io.Writer that appends to an in-memory
// byte slice, used to accumulate the central directory before it is
// written to the real output.
type sliceCollector struct {
	b []byte
}

func (s *sliceCollector) Write(p []byte) (int, error) {
	s.b = append(s.b, p...)
	return len(p), nil
}

func formatPercent(sum, total int64) string {
	var pct float64
	if total > 0 {
		pct = float64(sum) / float64(total) * 100
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// ToSnapshot writes the internal self-describing form: a compute_crc32
// byte, followed by every entry's CDE, is_compressed byte, inline LFH,
// and full payload bytes.
func (a *Archive) ToSnapshot(w io.Writer) error {
	var crcByte [1]byte
	if a.ComputeCRC32 {
		crcByte[0] = 1
	}
	if _, err := w.Write(crcByte[:]); err != nil {
		return ioFailure(-1, err)
	}

	for _, e := range a.entries.entries() {
		if err := writeCentralDirEntry(w, e, ModeSnapshot); err != nil {
			return err
		}
		var compressedByte [1]byte
		if e.IsCompressed {
			compressedByte[0] = 1
		}
		if _, err := w.Write(compressedByte[:]); err != nil {
			return ioFailure(-1, err)
		}
		if err := writeLocalFileHeader(w, e, ModeSnapshot); err != nil {
			return err
		}
		if e.Payload != nil {
			if _, err := e.Payload.Seek(0, io.SeekStart); err != nil {
				return ioFailure(-1, err)
			}
			if _, err := io.CopyN(w, e.Payload, int64(e.CompressedSize)); err != nil && err != io.EOF {
				return ioFailure(-1, err)
			}
		}
	}
	return nil
}

// FromSnapshot reads the form written by ToSnapshot.
func FromSnapshot(r io.ReadSeeker, factory payload.Factory, limitSize uint64) (*Archive, error) {
	var crcByte [1]byte
	if _, err := io.ReadFull(r, crcByte[:]); err != nil {
		return nil, ioFailure(-1, err)
	}
	a := New()
	a.ComputeCRC32 = crcByte[0] != 0

	for {
		e, err := readCentralDirEntry(r, ModeSnapshot, factory, limitSize)
		if err != nil {
			if ze, ok := err.(*Error); ok && ze.Kind == KindIO && ze.Err == io.EOF {
				break
			}
			return nil, err
		}
		a.entries.upsert(e)
	}
	return a, nil
}
