package sas7bdat

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// magic is the 32-byte constant every SAS7BDAT file begins with
// (spec.md §4.2 step 2).
var magic = []byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xc2, 0xea, 0x81, 0x60,
	0xb3, 0x14, 0x11, 0xcf, 0xbd, 0x92, 0x08, 0x00, 0x09, 0xc7, 0x31, 0x8c, 0x18, 0x1f, 0x10, 0x11,
}

// byte offsets used by parseHeader, spec.md §4.2 step 3-4.
const (
	offU64Flag       = 32
	offAlign1Flag    = 35
	offEndianness    = 37
	offPlatform      = 39
	offEncoding      = 70
	offDatasetName   = 92
	lenDatasetName   = 64
	offFileType      = 156
	lenFileType      = 8
	offDateCreated   = 164
	offDateModified  = 172
	offHeaderLength  = 196
	offPageLength    = 200
	offPageCount     = 204
	offSASRelease    = 216
	lenSASRelease    = 8
	offServerType    = 224
	lenServerType    = 16
	offOSType        = 240
	lenOSType        = 16
	offOSMaker       = 256
	lenOSMaker       = 16
	offOSName        = 272
	lenOSName        = 16

	align2Width = 4 // added to offsets once a field is read with u64 mode
)

// parseHeader implements spec.md §4.2: read the first 288 bytes, verify
// the magic number, detect 32/64-bit mode and the two alignment
// adjustments, then read the geometry and informational fields.
func parseHeader(src ByteSource) (*Properties, error) {
	head := make([]byte, 288)
	if err := src.ReadAt(head, 0); err != nil {
		return nil, wrapErr(ErrHeaderTooShort, err.Error())
	}
	if !bytes.Equal(head[:len(magic)], magic) {
		return nil, ErrBadMagic
	}

	p := &Properties{}

	var align1, align2 int
	if head[offU64Flag] == '3' {
		p.U64 = true
		align2 = align2Width
	}
	if head[offAlign1Flag] == '3' {
		align1 = align2Width
	}
	totalAlign := align1 + align2
	p.deriveLayout()

	if head[offEndianness] == 0x01 {
		p.ByteOrder = binary.LittleEndian
	} else {
		p.ByteOrder = binary.BigEndian
	}

	switch head[offPlatform] {
	case '1':
		p.Platform = PlatformUnix
	case '2':
		p.Platform = PlatformWindows
	default:
		p.Platform = PlatformUnknown
	}

	if code := int(head[offEncoding]); code != 0 {
		if name, ok := encodingNames[code]; ok {
			p.Encoding = name
		} else {
			p.Encoding = fmt.Sprintf("encoding code=%d", code)
		}
	} else {
		p.Encoding = "utf-8"
	}

	p.Name = string(bytes.TrimRight(head[offDatasetName:offDatasetName+lenDatasetName], " \x00"))
	p.FileType = string(bytes.TrimRight(head[offFileType:offFileType+lenFileType], " \x00"))

	if v, ok, err := readDouble(shift(head, offDateCreated, 8, align1), p.ByteOrder); err == nil && ok {
		p.DateCreated = sasDateTime(v)
	}
	if v, ok, err := readDouble(shift(head, offDateModified, 8, align1), p.ByteOrder); err == nil && ok {
		p.DateModified = sasDateTime(v)
	}

	hl, err := readInt(shift(head, offHeaderLength, 4, align1), 4, p.ByteOrder)
	if err != nil {
		return nil, wrapErr(err, "header_length")
	}
	p.HeaderLength = int(hl)

	rest := make([]byte, p.HeaderLength)
	if err := src.ReadAt(rest, 0); err != nil {
		return nil, wrapErr(ErrHeaderTooShort, "reading full header")
	}
	head = rest

	pl, err := readInt(shift(head, offPageLength, 4, align1), 4, p.ByteOrder)
	if err != nil {
		return nil, wrapErr(err, "page_length")
	}
	p.PageLength = int(pl)

	pc, err := readInt(shift(head, offPageCount, 4+align2, align1), 4, p.ByteOrder)
	if err != nil {
		return nil, wrapErr(err, "page_count")
	}
	p.PageCount = int(pc)

	p.SASRelease = string(bytes.TrimRight(shift(head, offSASRelease, lenSASRelease, totalAlign), " \x00"))
	p.ServerType = string(bytes.TrimRight(shift(head, offServerType, lenServerType, totalAlign), " \x00"))
	p.OSType = string(bytes.TrimRight(shift(head, offOSType, lenOSType, totalAlign), " \x00"))

	osName := shift(head, offOSName, lenOSName, totalAlign)
	if osName[0] != 0 {
		p.OSName = string(bytes.TrimRight(osName, " \x00"))
	} else {
		p.OSName = string(bytes.TrimRight(shift(head, offOSMaker, lenOSMaker, totalAlign), " \x00"))
	}

	return p, nil
}

// shift slices buf[off+adj : off+adj+n], bounds-checked against buf's
// length by returning a zero-filled slice when the header is too short to
// reach a shifted field (only possible for malformed/truncated inputs).
func shift(buf []byte, off, n, adj int) []byte {
	start := off + adj
	end := start + n
	if start < 0 || end > len(buf) {
		return make([]byte, n)
	}
	return buf[start:end]
}
