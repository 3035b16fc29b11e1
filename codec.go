// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rzip

import (
	"encoding/binary"
	"io"
	"time"
)

// Signatures and fixed record lengths, little-endian throughout.
const (
	localFileHeaderSignature = 0x04034b50
	centralDirEntrySignature = 0x02014b50
	eocdSignature            = 0x06054b50

	localFileHeaderLen = 30 // + name + extra
	centralDirEntryLen = 46 // + name + extra + comment
	eocdLen            = 22 // + comment

	// Constants for the second (OS) byte of version_made_by/version_needed.
	osMSDOS = 0
	osUnix  = 3

	versionMadeFile   = 0x1E // 3.0, Unix
	versionNeededFile = 0x0E // 1.4, MS-DOS
	versionMadeDir    = 0x1E
	versionNeededDir  = 0x0A

	externalAttrsDir  uint32 = 0x41ED0010
	externalAttrsFile uint32 = 0x81A40000
)

// Compression methods recognized at the type level. Only Store and
// Deflate are processed; the rest round-trip untouched.
const (
	Store     uint16 = 0
	Shrink    uint16 = 1
	Implode   uint16 = 6
	Deflate   uint16 = 8
	Deflate64 uint16 = 9
	BZIP2     uint16 = 12
	LZMA      uint16 = 14
	XZ        uint16 = 95
	JPEG      uint16 = 96
	WavPack   uint16 = 97
	PPMd      uint16 = 98
	AES       uint16 = 99
)

// writeBuf is a cursor over a fixed-size byte slice used to pack a
// header's scalar fields in order.
type writeBuf []byte

func (b *writeBuf) uint8(v uint8) {
	(*b)[0] = v
	*b = (*b)[1:]
}

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

func (b *writeBuf) uint64(v uint64) {
	binary.LittleEndian.PutUint64(*b, v)
	*b = (*b)[8:]
}

// readBuf is the read-side mirror of writeBuf.
type readBuf []byte

func (b *readBuf) uint8() uint8 {
	v := (*b)[0]
	*b = (*b)[1:]
	return v
}

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}

// countWriter wraps an io.Writer, tracking how many bytes have passed
// through it; used to compute the central directory's on-wire size as
// it streams out.
type countWriter struct {
	w     io.Writer
	count int64
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.count += int64(n)
	return n, err
}

// timeToMsDosTime converts a time.Time to an MS-DOS date and time, 2s
// resolution.
func timeToMsDosTime(ts time.Time) (date, t uint16) {
	date = uint16(ts.Day() + int(ts.Month())<<5 + (ts.Year()-1980)<<9)
	t = uint16(ts.Second()/2 + ts.Minute()<<5 + ts.Hour()<<11)
	return
}

// msDosTimeToTime converts an MS-DOS date and time into a time.Time in
// UTC, the reverse of timeToMsDosTime.
func msDosTimeToTime(date, t uint16) time.Time {
	return time.Date(
		int(date>>9)+1980,
		time.Month(date>>5&0xf),
		int(date&0x1f),
		int(t>>11),
		int(t>>5&0x3f),
		int(t&0x1f)*2,
		0,
		time.UTC,
	)
}
