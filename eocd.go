package rzip

import (
	"encoding/binary"
	"io"

	"github.com/valyala/bytebufferpool"
)

// maxEOCDSearch is the largest tail window the scanner will examine:
// the 22-byte fixed record plus the largest possible 16-bit comment.
const maxEOCDSearch = 65557

// findEOCD locates the EOCD signature by tail-scanning r, doubling the
// search window from 22 bytes up to maxEOCDSearch, adapted from the
// doubling-buffer scan used by the other zip readers in this lineage.
// It returns the absolute byte offset of the EOCD signature.
func findEOCD(r io.ReadSeeker) (int64, error) {
	fileSize, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, ioFailure(-1, err)
	}
	if fileSize < eocdLen {
		return 0, badMagic(fileSize, "file too short to contain an EOCD record")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	searchSize := int64(eocdLen)
	for {
		if searchSize > maxEOCDSearch {
			searchSize = maxEOCDSearch
		}
		if searchSize > fileSize {
			searchSize = fileSize
		}

		start := fileSize - searchSize
		if _, err := r.Seek(start, io.SeekStart); err != nil {
			return 0, ioFailure(start, err)
		}

		buf.Reset()
		if _, err := io.CopyN(buf, r, searchSize); err != nil {
			return 0, ioFailure(start, err)
		}
		window := buf.Bytes()

		for i := 0; i <= len(window)-4; i++ {
			if binary.LittleEndian.Uint32(window[i:i+4]) == eocdSignature {
				return start + int64(i), nil
			}
		}

		if searchSize >= maxEOCDSearch || searchSize >= fileSize {
			return 0, badMagic(fileSize, "end of central directory record not found")
		}
		searchSize *= 2
	}
}

// eocdRecord holds the fixed 22-byte portion of an EOCD record plus its
// trailing comment.
type eocdRecord struct {
	diskNumber        uint16
	cdDiskNumber      uint16
	cdEntriesThisDisk uint16
	cdEntriesTotal    uint16
	cdSize            uint32
	cdOffset          uint32
	comment           string
}

// readEOCD reads the fixed record and comment starting at the EOCD
// signature offset returned by findEOCD.
func readEOCD(r io.Reader, pos int64) (*eocdRecord, error) {
	var hdr [eocdLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, ioFailure(pos, err)
	}
	b := readBuf(hdr[:])
	sig := b.uint32()
	if sig != eocdSignature {
		return nil, badMagic(pos, "bad end of central directory signature")
	}
	rec := &eocdRecord{}
	rec.diskNumber = b.uint16()
	rec.cdDiskNumber = b.uint16()
	rec.cdEntriesThisDisk = b.uint16()
	rec.cdEntriesTotal = b.uint16()
	rec.cdSize = b.uint32()
	rec.cdOffset = b.uint32()
	commentLen := b.uint16()

	comment := make([]byte, commentLen)
	if _, err := io.ReadFull(r, comment); err != nil {
		return nil, ioFailure(pos+int64(len(hdr)), err)
	}
	rec.comment = string(comment)
	return rec, nil
}

// writeEOCD emits the fixed EOCD record and its comment.
func writeEOCD(w io.Writer, rec *eocdRecord) error {
	var hdr [eocdLen]byte
	b := writeBuf(hdr[:])
	b.uint32(eocdSignature)
	b.uint16(rec.diskNumber)
	b.uint16(rec.cdDiskNumber)
	b.uint16(rec.cdEntriesThisDisk)
	b.uint16(rec.cdEntriesTotal)
	b.uint32(rec.cdSize)
	b.uint32(rec.cdOffset)
	b.uint16(uint16(len(rec.comment)))
	if _, err := w.Write(hdr[:]); err != nil {
		return ioFailure(-1, err)
	}
	if _, err := io.WriteString(w, rec.comment); err != nil {
		return ioFailure(-1, err)
	}
	return nil
}
