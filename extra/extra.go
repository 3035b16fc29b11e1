// Package extra implements the extra-field codec: the tagged variant
// records that can appear in a ZIP local file header or central
// directory entry's extra-field area. Three variants are recognized:
// NTFS timestamps, the Unix extended-timestamp field, and Unix uid/gid
// attributes. Unknown header IDs are a hard read error.
package extra

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header IDs, per the PKWARE APPNOTE appendix.
const (
	IDNTFS          uint16 = 0x000A
	IDUnixTimestamp uint16 = 0x5455
	IDUnixAttrs     uint16 = 0x7875
)

// ErrUnknownID is returned when ReadList encounters a header ID none of
// the recognized variants claim.
var ErrUnknownID = errors.New("extra: unrecognized header id")

// ErrBadTimestampFlags is returned when an extended-timestamp record's
// flags byte sets any reserved bit (0xF8).
var ErrBadTimestampFlags = errors.New("extra: invalid flags in Unix extended timestamp")

// ErrBadNTFSTag is returned when an NTFS record's first sub-record is
// not the mandatory tag=1,size=24 timestamp block.
var ErrBadNTFSTag = errors.New("extra: invalid tag/size in NTFS timestamp record")

// Record is one parsed extra-field entry. Exactly one of the typed
// fields is meaningful, selected by ID — a flat tagged struct standing
// in for a sum type.
type Record struct {
	ID uint16

	// NTFS (ID == IDNTFS): Windows FILETIME values (100ns ticks since
	// 1601-01-01), all three always present on read and always written.
	MTime, ATime, CTime uint64

	// UnixTimestamp (ID == IDUnixTimestamp): seconds since the Unix
	// epoch. A nil pointer means the field was absent.
	ModTime, AccessTime, CreateTime *int32

	// UnixAttrs (ID == IDUnixAttrs).
	UID, GID uint32
}

// List is an ordered sequence of extra records, as they appear
// concatenated in the wire-format extra-field area of an LFH or CDE.
type List []Record

// ReadList parses a concatenation of extra records bounded by length
// bytes from r: reading stops once the cumulative bytes consumed reach
// or exceed length.
func ReadList(r io.Reader, length uint16) (List, error) {
	if length == 0 {
		return nil, nil
	}
	lr := &countingReader{r: r}
	var list List
	for uint16(lr.n) < length {
		rec, err := readRecord(lr)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, nil
}

// Bytes serializes list into its wire form, as emitted at the end of an
// LFH or CDE. The CDE/LFH codecs call it once and use the result both
// for extra_field_length and as the bytes written after the name.
func (list List) Bytes() ([]byte, error) {
	var buf []byte
	for _, rec := range list {
		b, err := rec.bytes()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return buf, nil
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readRecord(r io.Reader) (Record, error) {
	id, err := readU16(r)
	if err != nil {
		return Record{}, err
	}
	size, err := readU16(r)
	if err != nil {
		return Record{}, err
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Record{}, err
	}
	switch id {
	case IDNTFS:
		return readNTFS(id, body)
	case IDUnixTimestamp:
		return readUnixTimestamp(id, body)
	case IDUnixAttrs:
		return readUnixAttrs(id, body)
	default:
		return Record{}, fmt.Errorf("%w: 0x%04x", ErrUnknownID, id)
	}
}

func readNTFS(id uint16, body []byte) (Record, error) {
	br := &sliceReader{b: body}
	if _, err := readU32(br); err != nil { // reserved
		return Record{}, err
	}
	tag, err := readU16(br)
	if err != nil {
		return Record{}, err
	}
	subSize, err := readU16(br)
	if err != nil {
		return Record{}, err
	}
	if tag != 1 || subSize != 24 {
		return Record{}, ErrBadNTFSTag
	}
	mtime, err := readU64(br)
	if err != nil {
		return Record{}, err
	}
	atime, err := readU64(br)
	if err != nil {
		return Record{}, err
	}
	ctime, err := readU64(br)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, MTime: mtime, ATime: atime, CTime: ctime}, nil
}

func readUnixTimestamp(id uint16, body []byte) (Record, error) {
	br := &sliceReader{b: body}
	var flagsByte [1]byte
	if _, err := io.ReadFull(br, flagsByte[:]); err != nil {
		return Record{}, err
	}
	flags := flagsByte[0]
	if flags&0xF8 != 0 {
		return Record{}, ErrBadTimestampFlags
	}
	rec := Record{ID: id}
	if flags&0x01 != 0 && br.remaining() >= 4 {
		v, err := readI32(br)
		if err != nil {
			return Record{}, err
		}
		rec.ModTime = &v
	}
	if flags&0x02 != 0 && br.remaining() >= 4 {
		v, err := readI32(br)
		if err != nil {
			return Record{}, err
		}
		rec.AccessTime = &v
	}
	if flags&0x04 != 0 && br.remaining() >= 4 {
		v, err := readI32(br)
		if err != nil {
			return Record{}, err
		}
		rec.CreateTime = &v
	}
	return rec, nil
}

func readI32(r io.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}

func readUnixAttrs(id uint16, body []byte) (Record, error) {
	br := &sliceReader{b: body}
	var version, uidSize, gidSize [1]byte
	if _, err := io.ReadFull(br, version[:]); err != nil {
		return Record{}, err
	}
	if _, err := io.ReadFull(br, uidSize[:]); err != nil {
		return Record{}, err
	}
	uid, err := readU32(br)
	if err != nil {
		return Record{}, err
	}
	if _, err := io.ReadFull(br, gidSize[:]); err != nil {
		return Record{}, err
	}
	gid, err := readU32(br)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, UID: uid, GID: gid}, nil
}

// bytes serializes one record: NTFS always emits exactly the mandatory
// tag-1 sub-record; Unix extended timestamp always emits flags=0x03
// with whichever fields are present; Unix attrs emits fixed
// uid_size/gid_size of 4.
func (rec Record) bytes() ([]byte, error) {
	switch rec.ID {
	case IDNTFS:
		body := make([]byte, 0, 32)
		body = appendU32(body, 0) // reserved
		body = appendU16(body, 1)
		body = appendU16(body, 24)
		body = appendU64(body, rec.MTime)
		body = appendU64(body, rec.ATime)
		body = appendU64(body, rec.CTime)
		return wrap(rec.ID, body), nil
	case IDUnixTimestamp:
		body := []byte{0x03}
		if rec.ModTime != nil {
			body = appendU32(body, uint32(*rec.ModTime))
		}
		if rec.AccessTime != nil {
			body = appendU32(body, uint32(*rec.AccessTime))
		}
		if rec.CreateTime != nil {
			body = appendU32(body, uint32(*rec.CreateTime))
		}
		return wrap(rec.ID, body), nil
	case IDUnixAttrs:
		body := make([]byte, 0, 11)
		body = append(body, 1, 4)
		body = appendU32(body, rec.UID)
		body = append(body, 4)
		body = appendU32(body, rec.GID)
		return wrap(rec.ID, body), nil
	default:
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnknownID, rec.ID)
	}
}

func wrap(id uint16, body []byte) []byte {
	out := make([]byte, 0, 4+len(body))
	out = appendU16(out, id)
	out = appendU16(out, uint16(len(body)))
	return append(out, body...)
}

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

// sliceReader is a tiny io.Reader over a byte slice that tracks how many
// bytes remain, used by the per-variant decoders above to tell whether
// optional trailing fields are present.
type sliceReader struct {
	b []byte
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}

func (s *sliceReader) remaining() int { return len(s.b) }
