package sas7bdat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// secondsPerDay converts between the day counts of DATE-format values and
// the second counts of DATETIME/TIME values, both measured from sasEpoch.
const secondsPerDay = 86400

// encoding_names (spec.md §3 "encoding name") maps the single-byte
// encoding code embedded in the file header to a name, mirroring the
// teacher's incomplete table but kept as the base for charmapForEncoding.
var encodingNames = map[int]string{
	29: "latin1",
	20: "utf-8",
	33: "cyrillic",
	60: "wlatin2",
	61: "wcyrillic",
	62: "wlatin1",
	90: "ebcdic870",
}

// charmapForEncoding resolves a SAS encoding name to an x/text decoder.
// Names with no known charmap (utf-8, and any EBCDIC variant x/text does
// not carry) decode as a pass-through: the bytes are taken as already
// valid UTF-8, matching spec.md §1's "character-set transcoding beyond
// what the embedded encoding name selects" Non-goal.
func charmapForEncoding(name string) *xencoding.Decoder {
	switch name {
	case "latin1":
		return charmap.ISO8859_1.NewDecoder()
	case "cyrillic":
		return charmap.ISO8859_5.NewDecoder()
	case "wlatin2":
		return charmap.Windows1250.NewDecoder()
	case "wcyrillic":
		return charmap.Windows1251.NewDecoder()
	case "wlatin1":
		return charmap.Windows1252.NewDecoder()
	default:
		return nil
	}
}

// readText implements spec.md §4.1 read_text: take the bytes, decode
// through dec if non-nil, strip embedded NULs, and trim surrounding
// whitespace.
func readText(buf []byte, dec *xencoding.Decoder) string {
	raw := buf
	if dec != nil {
		if decoded, err := dec.Bytes(buf); err == nil {
			raw = decoded
		}
	}
	raw = bytes.ReplaceAll(raw, []byte{0}, nil)
	return string(bytes.TrimSpace(raw))
}

// readInt implements spec.md §4.1 read_int for widths 1, 2, 4, 6, and 8.
// The 6-byte case only arises on u64 layouts, where a value is known to
// fit in 48 bits; it is decoded by reading 8 bytes with the two
// unpopulated bytes zeroed according to endianness, then treating the
// result as a signed 64-bit integer.
func readInt(buf []byte, width int, order binary.ByteOrder) (int64, error) {
	if len(buf) < width {
		return 0, fmt.Errorf("sas7bdat: need %d bytes to decode int, have %d: %w", width, len(buf), ErrShortRead)
	}
	switch width {
	case 1:
		return int64(int8(buf[0])), nil
	case 2:
		return int64(int16(order.Uint16(buf))), nil
	case 4:
		return int64(int32(order.Uint32(buf))), nil
	case 6:
		var full [8]byte
		if order == binary.LittleEndian {
			copy(full[0:6], buf[0:6])
		} else {
			copy(full[2:8], buf[0:6])
		}
		return int64(order.Uint64(full[:])), nil
	case 8:
		return int64(order.Uint64(buf)), nil
	default:
		return 0, fmt.Errorf("sas7bdat: unsupported integer width %d", width)
	}
}

// readDouble implements spec.md §4.1 read_double: short values are
// zero-padded to 8 bytes (left-pad on big-endian, right-pad on little-
// endian) before being decoded as IEEE-754 binary64. A NaN bit pattern is
// reported via the ok=false return (the "null" sentinel of spec.md).
func readDouble(buf []byte, order binary.ByteOrder) (value float64, ok bool, err error) {
	width := len(buf)
	if width > 8 {
		return 0, false, fmt.Errorf("sas7bdat: double field wider than 8 bytes (%d)", width)
	}
	var full [8]byte
	if order == binary.LittleEndian {
		copy(full[8-width:], buf)
	} else {
		copy(full[:width], buf)
	}
	bits := order.Uint64(full[:])
	value = math.Float64frombits(bits)
	if math.IsNaN(value) {
		return 0, false, nil
	}
	return value, true, nil
}

// Kind selects which primitive decoding spec.md §4.1's read_as dispatches
// to for a column's raw bytes.
type Kind int

const (
	KindInt Kind = iota
	KindNumber
	KindDateTime
	KindDate
	KindTime
	KindString
)

// dateAsDaysReasonable bounds a days-since-epoch value to less than
// 3652059 days (about 10,000 years) either side of the SAS epoch;
// producers sometimes tag a DATE-format column with datetime (seconds)
// data instead of days, and spec.md §4.1's date fallback kicks in whenever
// the days interpretation is implausible.
func dateAsDaysReasonable(days float64) bool {
	const limit = 3652059 // ~10,000 years of days
	return days > -limit && days < limit
}
