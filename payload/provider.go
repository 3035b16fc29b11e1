// Package payload implements the stream provider abstraction: a
// polymorphic read+write+seek backing store for entry payloads that
// spills to a temporary file above a configurable size, so archives
// much larger than available memory can still be edited.
package payload

import (
	"errors"
	"io"
	"os"
)

// Provider is the sole payload I/O primitive used by the core. An entry
// owns exactly one Provider at a time; the core seeks it to 0 before
// handing it to a consumer (compression, emission, hashing) and restores
// the previously observed cursor afterward when it promises to do so.
type Provider interface {
	io.Reader
	io.Writer
	io.Seeker

	// Config returns the Config this provider was allocated with.
	Config() Config

	// Close releases any resources held by the provider (e.g. unlinks a
	// spilled temporary file). Safe to call more than once.
	Close() error
}

// Config carries the advertised size of the next allocation plus the
// size threshold above which the default Factory spills to disk.
// Callers may embed Config in a larger struct carrying extension fields;
// the core only ever reads the three fields below.
type Config struct {
	// LimitSize is the byte threshold above which a temporary file is
	// used instead of an in-memory buffer. Zero spills every allocation
	// with a non-zero advertised size.
	LimitSize uint64

	// CompressedSize and UncompressedSize are the advertised sizes of
	// the payload about to be stored. Either one exceeding LimitSize
	// triggers a temp-file allocation.
	CompressedSize   uint64
	UncompressedSize uint64
}

// exceedsLimit reports whether either advertised size in cfg exceeds
// cfg.LimitSize.
func (cfg Config) exceedsLimit() bool {
	return cfg.CompressedSize > cfg.LimitSize || cfg.UncompressedSize > cfg.LimitSize
}

// Factory allocates a Provider for a given Config. FromConfig is the
// default Factory; callers that need a different concrete backing store
// (e.g. a network-backed scratch space) supply their own Factory and the
// core never has to know the difference.
type Factory func(cfg Config) (Provider, error)

// FromConfig is the default Factory: it allocates a temporary file when
// either advertised size in cfg exceeds cfg.LimitSize, and an in-memory
// buffer otherwise.
func FromConfig(cfg Config) (Provider, error) {
	if cfg.exceedsLimit() {
		f, err := os.CreateTemp("", "rzip-payload-*")
		if err != nil {
			return nil, err
		}
		return &fileProvider{f: f, cfg: cfg}, nil
	}
	return &memProvider{cfg: cfg}, nil
}

// fileProvider is a Provider backed by a temporary file on disk. Its
// lifetime equals the owning entry's payload lifetime: Close unlinks the
// file (platform-appropriate removal, since the file is never reopened
// by name after creation).
type fileProvider struct {
	f   *os.File
	cfg Config
}

func (p *fileProvider) Read(b []byte) (int, error)              { return p.f.Read(b) }
func (p *fileProvider) Write(b []byte) (int, error)              { return p.f.Write(b) }
func (p *fileProvider) Seek(off int64, whence int) (int64, error) { return p.f.Seek(off, whence) }
func (p *fileProvider) Config() Config                           { return p.cfg }

func (p *fileProvider) Close() error {
	name := p.f.Name()
	err := p.f.Close()
	if rmErr := os.Remove(name); rmErr != nil && !os.IsNotExist(rmErr) {
		if err == nil {
			err = rmErr
		}
	}
	return err
}

// memProvider is a Provider backed by a growable in-memory buffer, used
// when neither advertised size in cfg exceeds cfg.LimitSize. It tracks
// its own read/write cursor so that interleaved reads, writes and seeks
// behave like a regular seekable file, which a plain bytes.Buffer (a
// write-or-read-but-not-both-with-a-shared-cursor type) cannot do.
type memProvider struct {
	buf []byte
	pos int64
	cfg Config
}

func (p *memProvider) Read(b []byte) (int, error) {
	if p.pos >= int64(len(p.buf)) {
		return 0, io.EOF
	}
	n := copy(b, p.buf[p.pos:])
	p.pos += int64(n)
	return n, nil
}

func (p *memProvider) Write(b []byte) (int, error) {
	end := p.pos + int64(len(b))
	if end > int64(len(p.buf)) {
		grown := make([]byte, end)
		copy(grown, p.buf)
		p.buf = grown
	}
	n := copy(p.buf[p.pos:end], b)
	p.pos = end
	return n, nil
}

func (p *memProvider) Seek(off int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = off
	case io.SeekCurrent:
		newPos = p.pos + off
	case io.SeekEnd:
		newPos = int64(len(p.buf)) + off
	}
	if newPos < 0 {
		return p.pos, errNegativeSeek
	}
	p.pos = newPos
	return p.pos, nil
}

func (p *memProvider) Config() Config { return p.cfg }
func (p *memProvider) Close() error   { return nil }

var errNegativeSeek = errors.New("payload: negative seek position")

// Len seeks p to the end to measure its length, then restores the
// cursor it observed on entry. It is a convenience used throughout the
// core wherever a provider's current byte length is needed.
func Len(p Provider) (int64, error) {
	cur, err := p.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := p.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := p.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// CopyInto rewinds src to the start, streams n bytes (or everything if n
// < 0) into dst, and rewinds both src and dst to offset 0 before
// returning.
func CopyInto(dst, src Provider, n int64) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var err error
	if n < 0 {
		_, err = io.Copy(dst, src)
	} else {
		_, err = io.CopyN(dst, src, n)
	}
	if err != nil {
		return err
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = src.Seek(0, io.SeekStart)
	return err
}
