package rzip

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/dounine/rzip/payload"
)

// ProgressFunc receives a running compression/decompression total, the
// bytes processed so far, and a formatted "NN.NN%" string.
type ProgressFunc func(total, sum int64, percent string)

// Decompress replaces e's payload with its DEFLATE-decoded form when
// e.IsCompressed is true. It is a no-op otherwise.
func (e *Entry) Decompress(factory payload.Factory, limitSize uint64) error {
	return e.DecompressWithCallback(factory, limitSize, nil)
}

// DecompressWithCallback is Decompress with a progress callback. cb,
// when non-nil, is invoked with cumulative decoded bytes after each
// internal copy step; total is e.UncompressedSize.
func (e *Entry) DecompressWithCallback(factory payload.Factory, limitSize uint64, cb ProgressFunc) error {
	if !e.IsCompressed {
		return nil
	}
	if _, err := e.Payload.Seek(0, io.SeekStart); err != nil {
		return ioFailure(-1, err)
	}

	dst, err := factory(e.config(limitSize))
	if err != nil {
		return newErr(KindIO, -1, err)
	}

	fr := flate.NewReader(e.Payload)
	defer fr.Close()

	total := int64(e.UncompressedSize)
	n, err := copyWithProgress(dst, fr, total, cb)
	if err != nil {
		return newErr(KindDecode, -1, err)
	}

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return ioFailure(-1, err)
	}
	e.Payload = dst
	e.IsCompressed = false
	e.UncompressedSize = uint32(n)
	return nil
}

// Compress replaces e's payload with its DEFLATE-encoded form when
// e.IsCompressed is false and e.CompressionMethod == Deflate, per
// computeCRC and level, with no progress reporting.
func (e *Entry) Compress(factory payload.Factory, limitSize uint64, level int, computeCRC bool) error {
	return e.CompressWithCallback(factory, limitSize, level, computeCRC, nil)
}

// CompressWithCallback is Compress with a progress callback. computeCRC
// selects whether CRC-32 is recomputed over the uncompressed bytes
// first; when false, e.CRC32 is zeroed. level is a flate compression
// level (flate.DefaultCompression is a safe default). cb, when non-nil,
// is invoked with the cumulative count of uncompressed bytes fed to the
// encoder; total is the pre-compression payload length.
func (e *Entry) CompressWithCallback(factory payload.Factory, limitSize uint64, level int, computeCRC bool, cb ProgressFunc) error {
	if e.IsCompressed || e.CompressionMethod != Deflate {
		return nil
	}

	length, err := payload.Len(e.Payload)
	if err != nil {
		return ioFailure(-1, err)
	}
	e.UncompressedSize = uint32(length)

	if computeCRC {
		crc, err := crc32Over(e.Payload)
		if err != nil {
			return ioFailure(-1, err)
		}
		e.CRC32 = crc
	} else {
		e.CRC32 = 0
	}

	if length == 0 {
		e.CompressedSize = 0
		e.IsCompressed = true
		return nil
	}

	if _, err := e.Payload.Seek(0, io.SeekStart); err != nil {
		return ioFailure(-1, err)
	}

	cfg := e.config(limitSize)
	cfg.CompressedSize = uint64(length)
	dst, err := factory(cfg)
	if err != nil {
		return newErr(KindIO, -1, err)
	}

	fw, err := flate.NewWriter(dst, level)
	if err != nil {
		return newErr(KindEncode, -1, err)
	}
	n, err := copyWithProgress(fw, e.Payload, length, cb)
	if err != nil {
		return newErr(KindEncode, -1, err)
	}
	_ = n
	if err := fw.Close(); err != nil {
		return newErr(KindEncode, -1, err)
	}

	encLen, err := payload.Len(dst)
	if err != nil {
		return ioFailure(-1, err)
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return ioFailure(-1, err)
	}
	e.Payload = dst
	e.CompressedSize = uint32(encLen)
	e.IsCompressed = true
	return nil
}

// SHAValue computes SHA-1 and SHA-256 over e's current payload bytes
// (regardless of compression state) and restores the cursor it
// observed on entry before returning.
func (e *Entry) SHAValue() (sha1Sum, sha256Sum []byte, err error) {
	cur, err := e.Payload.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, nil, ioFailure(-1, err)
	}
	if _, err := e.Payload.Seek(0, io.SeekStart); err != nil {
		return nil, nil, ioFailure(-1, err)
	}

	h1 := sha1.New()
	h256 := sha256.New()
	if _, err := io.Copy(io.MultiWriter(h1, h256), e.Payload); err != nil {
		return nil, nil, ioFailure(-1, err)
	}

	if _, err := e.Payload.Seek(cur, io.SeekStart); err != nil {
		return nil, nil, ioFailure(-1, err)
	}
	return h1.Sum(nil), h256.Sum(nil), nil
}

// CopyData returns a copy of e's payload bytes from the current cursor
// to the end, then restores the cursor it observed on entry.
func (e *Entry) CopyData() ([]byte, error) {
	cur, err := e.Payload.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, ioFailure(-1, err)
	}
	data, err := io.ReadAll(e.Payload)
	if err != nil {
		return nil, ioFailure(-1, err)
	}
	if _, err := e.Payload.Seek(cur, io.SeekStart); err != nil {
		return nil, ioFailure(-1, err)
	}
	return data, nil
}

// crc32Over rewinds src to offset 0, computes the CRC-32 of its whole
// content, then rewinds src to offset 0 again.
func crc32Over(src payload.Provider) (uint32, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, src); err != nil {
		return 0, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// copyWithProgress streams all of src into dst, invoking cb after each
// chunk with the cumulative byte count copied so far and a formatted
// percentage of total. The percentage is 0.00% when total is not
// positive and is not capped when sum exceeds total.
func copyWithProgress(dst io.Writer, src io.Reader, total int64, cb ProgressFunc) (int64, error) {
	if cb == nil {
		return io.Copy(dst, src)
	}
	p := newProgressTracker(total, cb)
	buf := make([]byte, 32*1024)
	var sum int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			sum += int64(wn)
			p.report(sum)
			if werr != nil {
				return sum, werr
			}
			if wn != n {
				return sum, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return sum, nil
		}
		if rerr != nil {
			return sum, rerr
		}
	}
}

// progressTracker carries the running state behind a ProgressFunc,
// an explicit struct rather than a closure chain aliasing mutable
// state.
type progressTracker struct {
	total int64
	cb    ProgressFunc
}

func newProgressTracker(total int64, cb ProgressFunc) *progressTracker {
	return &progressTracker{total: total, cb: cb}
}

func (p *progressTracker) report(sum int64) {
	var pct float64
	if p.total > 0 {
		pct = float64(sum) / float64(p.total) * 100
	}
	p.cb(p.total, sum, fmt.Sprintf("%.2f%%", pct))
}
