package sas7bdat

import "encoding/binary"

// Layout constants that depend only on 32- vs 64-bit mode (spec.md §3, §4.3,
// §4.4).
const (
	pageBitOffsetX86         = 16
	pageBitOffsetX64         = 32
	subheaderPointerLengthX86 = 12
	subheaderPointerLengthX64 = 24

	subheaderPointersOffset = 8 // spec.md §4.3 SUBHEADER_POINTERS_OFFSET
)

// Page types, spec.md §3 "Page". pageComp's value (-28672) is the signed
// 16-bit reading of 0x9000; spec.md §9 treats it as skip.
const (
	pageMeta = 0
	pageData = 256
	pageMix1 = 512
	pageMix2 = 640
	pageAMD  = 1024
	pageMETC = 16384
	pageCOMP = -28672
)

func isMetaMixAMD(t int) bool {
	switch t {
	case pageMeta, pageMix1, pageMix2, pageAMD:
		return true
	}
	return false
}

func isMix(t int) bool {
	return t == pageMix1 || t == pageMix2
}

// hasRows reports whether a page of type t carries row data directly in
// its row area (MIX or DATA). META pages can also carry rows via
// DATA-indexed subheader pointers, handled separately.
func hasRows(t int) bool {
	return isMix(t) || t == pageData
}

// knownPageType reports whether t is one of the types spec.md §3 names
// (META ∪ MIX ∪ {DATA, AMD, METC, COMP}). Anything else is skipped.
func knownPageType(t int) bool {
	switch t {
	case pageMeta, pageData, pageMix1, pageMix2, pageAMD, pageMETC, pageCOMP:
		return true
	}
	return false
}

// pageHeader is the small fixed header at the front of every page
// (spec.md §3 "Page"): type, block count, subheader count.
type pageHeader struct {
	pageType       int
	blockCount     int
	subheaderCount int
}

func decodePageHeader(page []byte, bitOffset int, order binary.ByteOrder) (pageHeader, error) {
	pt, err := readInt(page[bitOffset:bitOffset+2], 2, order)
	if err != nil {
		return pageHeader{}, wrapErr(err, "page type")
	}
	bc, err := readInt(page[bitOffset+2:bitOffset+4], 2, order)
	if err != nil {
		return pageHeader{}, wrapErr(err, "block count")
	}
	sc, err := readInt(page[bitOffset+4:bitOffset+6], 2, order)
	if err != nil {
		return pageHeader{}, wrapErr(err, "subheader count")
	}
	return pageHeader{pageType: int(pt), blockCount: int(bc), subheaderCount: int(sc)}, nil
}
