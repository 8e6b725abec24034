package sas7bdat

import "encoding/binary"

// subheaderKind identifies which of the nine handlers (spec.md §4.4) a
// subheader dispatches to.
type subheaderKind int

const (
	kindRowSize subheaderKind = iota
	kindColumnSize
	kindSubheaderCounts
	kindColumnText
	kindColumnName
	kindColumnAttributes
	kindFormatAndLabel
	kindColumnList
	kindData
)

func (k subheaderKind) String() string {
	switch k {
	case kindRowSize:
		return "row_size"
	case kindColumnSize:
		return "column_size"
	case kindSubheaderCounts:
		return "subheader_counts"
	case kindColumnText:
		return "column_text"
	case kindColumnName:
		return "column_name"
	case kindColumnAttributes:
		return "column_attributes"
	case kindFormatAndLabel:
		return "format_and_label"
	case kindColumnList:
		return "column_list"
	case kindData:
		return "data"
	default:
		return "unknown"
	}
}

// signatureToKind is the process-wide, immutable signature → handler
// table of spec.md §4.4 and §9 ("Global classification tables ... express
// as a static constant"). Keys are the literal on-disk bytes for every
// 32/64-bit, little/big-endian combination spec.md's table lists.
var signatureToKind = map[string]subheaderKind{
	"\xf7\xf7\xf7\xf7":                 kindRowSize,
	"\x00\x00\x00\x00\xf7\xf7\xf7\xf7": kindRowSize,
	"\xf7\xf7\xf7\xf7\x00\x00\x00\x00": kindRowSize,

	"\xf6\xf6\xf6\xf6":                 kindColumnSize,
	"\x00\x00\x00\x00\xf6\xf6\xf6\xf6": kindColumnSize,
	"\xf6\xf6\xf6\xf6\x00\x00\x00\x00": kindColumnSize,

	"\x00\xfc\xff\xff":                 kindSubheaderCounts,
	"\xff\xff\xfc\x00":                 kindSubheaderCounts,
	"\x00\xfc\xff\xff\xff\xff\xff\xff": kindSubheaderCounts,
	"\xff\xff\xff\xff\xff\xff\xfc\x00": kindSubheaderCounts,

	"\xfd\xff\xff\xff":                 kindColumnText,
	"\xff\xff\xff\xfd":                 kindColumnText,
	"\xfd\xff\xff\xff\xff\xff\xff\xff": kindColumnText,
	"\xff\xff\xff\xff\xff\xff\xff\xfd": kindColumnText,

	"\xff\xff\xff\xff":                 kindColumnName,
	"\xff\xff\xff\xff\xff\xff\xff\xff": kindColumnName,

	"\xfc\xff\xff\xff":                 kindColumnAttributes,
	"\xff\xff\xff\xfc":                 kindColumnAttributes,
	"\xfc\xff\xff\xff\xff\xff\xff\xff": kindColumnAttributes,
	"\xff\xff\xff\xff\xff\xff\xff\xfc": kindColumnAttributes,

	"\xfe\xfb\xff\xff":                 kindFormatAndLabel,
	"\xff\xff\xfb\xfe":                 kindFormatAndLabel,
	"\xfe\xfb\xff\xff\xff\xff\xff\xff": kindFormatAndLabel,
	"\xff\xff\xff\xff\xff\xff\xfb\xfe": kindFormatAndLabel,

	"\xfe\xff\xff\xff":                 kindColumnList,
	"\xff\xff\xff\xfe":                 kindColumnList,
	"\xfe\xff\xff\xff\xff\xff\xff\xff": kindColumnList,
	"\xff\xff\xff\xff\xff\xff\xff\xfe": kindColumnList,
}

const (
	truncatedSubheaderID   = 1
	compressedSubheaderID  = 4
	compressedSubheaderType = 1
)

// subheaderPointer is spec.md §3's "Subheader pointer" quadruple.
type subheaderPointer struct {
	offset      int
	length      int
	compression int
	ptype       int
}

func (p subheaderPointer) skip() bool {
	return p.length == 0 || p.compression == truncatedSubheaderID
}

// readSubheaderPointer implements spec.md §4.4's pointer layout: offset,
// length, compression (signed byte), type (signed byte), located at
// pageBitOffset + 8 + i*ptrLen.
func readSubheaderPointer(page []byte, base int, order binary.ByteOrder, intLen int) (subheaderPointer, error) {
	off, err := readInt(page[base:base+intLen], intLen, order)
	if err != nil {
		return subheaderPointer{}, wrapErr(err, "subheader pointer offset")
	}
	base += intLen
	length, err := readInt(page[base:base+intLen], intLen, order)
	if err != nil {
		return subheaderPointer{}, wrapErr(err, "subheader pointer length")
	}
	base += intLen
	comp, err := readInt(page[base:base+1], 1, order)
	if err != nil {
		return subheaderPointer{}, wrapErr(err, "subheader pointer compression")
	}
	base++
	typ, err := readInt(page[base:base+1], 1, order)
	if err != nil {
		return subheaderPointer{}, wrapErr(err, "subheader pointer type")
	}
	return subheaderPointer{offset: int(off), length: int(length), compression: int(comp), ptype: int(typ)}, nil
}

// classifySubheader implements spec.md §4.4's signature lookup, falling
// back to the Data-subheader heuristic (compression in {4,0} and type==1
// while the file as a whole is compressed) before giving up with
// UnknownSubheaderSignature (logged at debug and skipped by the caller).
func classifySubheader(signature []byte, fileCompressed bool, p subheaderPointer) (subheaderKind, bool) {
	if k, ok := signatureToKind[string(signature)]; ok {
		return k, true
	}
	if fileCompressed && (p.compression == compressedSubheaderID || p.compression == 0) && p.ptype == compressedSubheaderType {
		return kindData, true
	}
	return 0, false
}
