package rzip

import (
	"io"

	"github.com/dounine/rzip/extra"
	"github.com/dounine/rzip/payload"
)

// readCentralDirEntry parses one CDE from r at the directory cursor. In
// ModeArchiveParse, r is also the whole archive stream: after the fixed
// CDE record is parsed, the directory cursor is saved, r seeks away to
// lfh_offset to pull the linked LFH and payload, and the directory
// cursor is restored before returning so the caller can read the next
// CDE sequentially. In ModeSnapshot, LFH and payload are instead read
// inline from r immediately following the CDE, with no seeking.
func readCentralDirEntry(r io.ReadSeeker, mode Mode, factory payload.Factory, limitSize uint64) (*Entry, error) {
	var hdr [centralDirEntryLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, ioFailure(-1, err)
	}
	b := readBuf(hdr[:])
	sig := b.uint32()
	if sig != centralDirEntrySignature {
		return nil, badMagic(-1, "bad central directory entry signature")
	}
	e := &Entry{}
	e.VersionMadeSpec = b.uint8()
	e.VersionMadeOS = b.uint8()
	e.VersionNeededSpec = b.uint8()
	e.VersionNeededOS = b.uint8()
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
	commentLen := b.uint16()
	_ = b.uint16() // disk_start, always zero
	e.InternalFileAttributes = b.uint16()
	e.ExternalFileAttributes = b.uint32()
	lfhOffset := b.uint32()
	e.LFHOffset = uint64(lfhOffset)

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, ioFailure(-1, err)
	}
	e.Name = string(name)

	extras, err := extra.ReadList(r, extraLen)
	if err != nil {
		return nil, newErr(KindBadMagic, -1, err)
	}
	e.Extras = extras

	comment := make([]byte, commentLen)
	if _, err := io.ReadFull(r, comment); err != nil {
		return nil, ioFailure(-1, err)
	}
	e.Comment = string(comment)

	e.IsCompressed = e.CompressionMethod == Deflate

	switch mode {
	case ModeArchiveParse:
		cdCursor, serr := r.Seek(0, io.SeekCurrent)
		if serr != nil {
			return nil, ioFailure(-1, serr)
		}
		if err := populateFromLFHOffset(r, e, factory, limitSize); err != nil {
			return nil, err
		}
		if _, err := r.Seek(cdCursor, io.SeekStart); err != nil {
			return nil, ioFailure(cdCursor, err)
		}
	case ModeSnapshot:
		var compressedByte [1]byte
		if _, err := io.ReadFull(r, compressedByte[:]); err != nil {
			return nil, ioFailure(-1, err)
		}
		e.IsCompressed = compressedByte[0] != 0

		_, _, err = readLocalFileHeader(r, 0)
		if err != nil {
			return nil, err
		}

		var posBuf [8]byte
		if _, err := io.ReadFull(r, posBuf[:]); err != nil {
			return nil, ioFailure(-1, err)
		}
		rb := readBuf(posBuf[:])
		e.PayloadPosition = rb.uint64()

		prov, err := factory(e.config(limitSize))
		if err != nil {
			return nil, newErr(KindIO, -1, err)
		}
		if _, err := io.CopyN(prov, r, int64(e.CompressedSize)); err != nil {
			return nil, ioFailure(-1, err)
		}
		if _, err := prov.Seek(0, io.SeekStart); err != nil {
			return nil, ioFailure(-1, err)
		}
		e.Payload = prov
	}

	return e, nil
}

// populateFromLFHOffset seeks archiveStream to e.LFHOffset, reads and
// discards the linked LFH (whose fields are already authoritative from
// the CDE), then copies exactly e.CompressedSize payload bytes into a
// fresh provider allocated through factory.
func populateFromLFHOffset(archiveStream io.ReadSeeker, e *Entry, factory payload.Factory, limitSize uint64) error {
	if _, err := archiveStream.Seek(int64(e.LFHOffset), io.SeekStart); err != nil {
		return ioFailure(int64(e.LFHOffset), err)
	}
	_, payloadPos, err := readLocalFileHeader(archiveStream, int64(e.LFHOffset))
	if err != nil {
		return err
	}
	e.PayloadPosition = uint64(payloadPos)

	if _, err := archiveStream.Seek(payloadPos, io.SeekStart); err != nil {
		return ioFailure(payloadPos, err)
	}
	prov, err := factory(e.config(limitSize))
	if err != nil {
		return newErr(KindIO, payloadPos, err)
	}
	if _, err := io.CopyN(prov, archiveStream, int64(e.CompressedSize)); err != nil {
		return ioFailure(payloadPos, err)
	}
	if _, err := prov.Seek(0, io.SeekStart); err != nil {
		return ioFailure(payloadPos, err)
	}
	e.Payload = prov
	return nil
}

// writeCentralDirEntry emits e's CDE into w. In ModeArchiveEmit,
// directory entries always serialize zero sizes/CRC and a coerced
// external-attributes value, and a zero-length payload forces
// method=Store, mirroring the LFH codec; in ModeSnapshot every field
// is written exactly as it stands in the model, since the snapshot
// form must round-trip the model unchanged. In ModeSnapshot, the CDE
// is immediately followed by the is_compressed byte, the inline LFH,
// and the full payload bytes, all written by the caller (archive.go)
// in the order the snapshot format requires; writeCentralDirEntry
// itself only emits the fixed CDE record plus name/extras/comment.
func writeCentralDirEntry(w io.Writer, e *Entry, mode Mode) error {
	isDir := e.IsDir()

	verMadeSpec, verMadeOS := e.VersionMadeSpec, e.VersionMadeOS
	verNeededSpec, verNeededOS := e.VersionNeededSpec, e.VersionNeededOS

	method := e.CompressionMethod
	crc := e.CRC32
	csize := e.CompressedSize
	usize := e.UncompressedSize
	eattr := e.ExternalFileAttributes
	if mode == ModeArchiveEmit {
		if isDir {
			crc, csize, usize = 0, 0, 0
			eattr = externalAttrsDir
		} else if eattr == 0 {
			eattr = externalAttrsFile
		}
		if usize == 0 {
			method = Store
		}
	}

	extraBytes, err := e.Extras.Bytes()
	if err != nil {
		return newErr(KindEncode, -1, err)
	}

	var hdr [centralDirEntryLen]byte
	b := writeBuf(hdr[:])
	b.uint32(centralDirEntrySignature)
	b.uint8(verMadeSpec)
	b.uint8(verMadeOS)
	b.uint8(verNeededSpec)
	b.uint8(verNeededOS)
	b.uint16(0) // flags
	b.uint16(method)
	b.uint16(e.ModTime)
	b.uint16(e.ModDate)
	b.uint32(crc)
	b.uint32(csize)
	b.uint32(usize)
	b.uint16(uint16(len(e.Name)))
	b.uint16(uint16(len(extraBytes)))
	b.uint16(uint16(len(e.Comment)))
	b.uint16(0) // disk_start
	b.uint16(e.InternalFileAttributes)
	b.uint32(eattr)
	b.uint32(uint32(e.LFHOffset))

	if _, err := w.Write(hdr[:]); err != nil {
		return ioFailure(-1, err)
	}
	if _, err := io.WriteString(w, e.Name); err != nil {
		return ioFailure(-1, err)
	}
	if _, err := w.Write(extraBytes); err != nil {
		return ioFailure(-1, err)
	}
	if _, err := io.WriteString(w, e.Comment); err != nil {
		return ioFailure(-1, err)
	}
	return nil
}
