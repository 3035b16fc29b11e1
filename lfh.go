// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rzip

import (
	"io"

	"github.com/dounine/rzip/extra"
)

// readLocalFileHeader parses one LFH starting at the reader's current
// position. It returns the parsed fields plus the stream offset
// immediately following the header, which the caller records as
// PayloadPosition. If flags bit 3 (the streaming data-descriptor bit)
// is set, the entire flags word is discarded: sizes and CRC are
// trusted from the central directory entry instead.
func readLocalFileHeader(r io.Reader, pos int64) (*Entry, int64, error) {
	var hdr [localFileHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, 0, ioFailure(pos, err)
	}
	b := readBuf(hdr[:])
	sig := b.uint32()
	if sig != localFileHeaderSignature {
		return nil, 0, badMagic(pos, "bad local file header signature")
	}
	e := &Entry{}
	versionNeeded := b.uint16()
	e.VersionNeededSpec = uint8(versionNeeded)
	e.VersionNeededOS = uint8(versionNeeded >> 8)
	flags := b.uint16()
	if flags&0x8 != 0 {
		flags = 0
	}
	_ = flags
	e.CompressionMethod = b.uint16()
	e.ModTime = b.uint16()
	e.ModDate = b.uint16()
	e.CRC32 = b.uint32()
	e.CompressedSize = b.uint32()
	e.UncompressedSize = b.uint32()
	nameLen := b.uint16()
	extraLen := b.uint16()

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, 0, ioFailure(pos+int64(len(hdr)), err)
	}
	e.Name = string(name)

	extras, err := extra.ReadList(r, extraLen)
	if err != nil {
		return nil, 0, newErr(KindBadMagic, pos, err)
	}
	e.Extras = extras

	payloadPos := pos + int64(len(hdr)) + int64(nameLen) + int64(extraLen)
	return e, payloadPos, nil
}

// writeLocalFileHeader emits e's LFH. In archive-emit mode directory
// entries always serialize zero sizes and CRC regardless of model
// state; in snapshot mode PayloadPosition is additionally serialized
// as a trailing u64 so reconstructors can re-seek without scanning.
func writeLocalFileHeader(w io.Writer, e *Entry, mode Mode) error {
	isDir := e.IsDir()

	versionNeededSpec := e.VersionNeededSpec
	if mode == ModeArchiveEmit {
		if isDir {
			versionNeededSpec = versionNeededDir
		} else {
			versionNeededSpec = versionNeededFile
		}
	}
	versionNeeded := uint16(e.VersionNeededOS)<<8 | uint16(versionNeededSpec)

	method := e.CompressionMethod
	crc := e.CRC32
	csize := e.CompressedSize
	usize := e.UncompressedSize
	if mode == ModeArchiveEmit {
		if isDir {
			crc, csize, usize = 0, 0, 0
		}
		if usize == 0 {
			method = Store
		}
	}

	extraBytes, err := e.Extras.Bytes()
	if err != nil {
		return newErr(KindEncode, -1, err)
	}

	var hdr [localFileHeaderLen]byte
	b := writeBuf(hdr[:])
	b.uint32(localFileHeaderSignature)
	b.uint16(versionNeeded)
	b.uint16(0) // flags: always written as 0
	b.uint16(method)
	b.uint16(e.ModTime)
	b.uint16(e.ModDate)
	b.uint32(crc)
	b.uint32(csize)
	b.uint32(usize)
	b.uint16(uint16(len(e.Name)))
	b.uint16(uint16(len(extraBytes)))
	if _, err := w.Write(hdr[:]); err != nil {
		return ioFailure(-1, err)
	}
	if _, err := io.WriteString(w, e.Name); err != nil {
		return ioFailure(-1, err)
	}
	if _, err := w.Write(extraBytes); err != nil {
		return ioFailure(-1, err)
	}
	if mode == ModeSnapshot {
		var posBuf [8]byte
		wb := writeBuf(posBuf[:])
		wb.uint64(e.PayloadPosition)
		if _, err := w.Write(posBuf[:]); err != nil {
			return ioFailure(-1, err)
		}
	}
	return nil
}
