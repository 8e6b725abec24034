package sas7bdat

import (
	"fmt"
	"strings"
)

// rleCompressionLiteral and rdcCompressionLiteral are the text strings
// spec.md §3 says identify a file's compression scheme, found embedded in
// the first ColumnText blob.
const (
	rleCompressionLiteral = "SASYZCRL"
	rdcCompressionLiteral = "SASYZCR2"
)

// schema accumulates the mutable state the metadata decoder (spec.md §4.4)
// builds up while walking subheaders, across possibly many metadata pages.
// It is folded into Properties/[]Column once complete.
type schema struct {
	props *Properties

	rowSizeSet         bool
	columnSizeSet      bool
	colCountP1Set      bool
	colCountP2Set      bool
	mixPageRowCountSet bool

	columnNamesStrings []string
	columnNames        []string
	columnDataOffsets  []int
	columnDataLengths  []int
	columnTypes        []ColumnType
	columns            []*Column
}

func newSchema(p *Properties) *schema {
	return &schema{props: p}
}

// processRowSize implements spec.md §4.4's RowSize handler.
func (s *schema) processRowSize(buf []byte, offset int) error {
	if s.rowSizeSet {
		return ErrDuplicateRowSize
	}
	s.rowSizeSet = true
	p := s.props
	L := p.intLength
	order := p.ByteOrder

	read := func(mult int) (int64, error) {
		return readInt(buf[offset+mult*L:offset+mult*L+L], L, order)
	}

	rl, err := read(5)
	if err != nil {
		return wrapErr(err, "row_length")
	}
	p.RowLength = int(rl)

	rc, err := read(6)
	if err != nil {
		return wrapErr(err, "row_count")
	}
	p.RowCount = int(rc)

	p1, err := read(9)
	if err != nil {
		return wrapErr(err, "col_count_p1")
	}
	p.ColCountP1 = int(p1)
	s.colCountP1Set = true

	p2, err := read(10)
	if err != nil {
		return wrapErr(err, "col_count_p2")
	}
	p.ColCountP2 = int(p2)
	s.colCountP2Set = true

	mpr, err := read(15)
	if err != nil {
		return wrapErr(err, "mix_page_row_count")
	}
	p.MixPageRowCount = int(mpr)
	s.mixPageRowCountSet = true

	lcsOff, lcpOff := offset+354, offset+378
	if p.U64 {
		lcsOff, lcpOff = offset+682, offset+706
	}
	lcs, err := readInt(buf[lcsOff:lcsOff+2], 2, order)
	if err != nil {
		return wrapErr(err, "lcs")
	}
	p.LCS = int(lcs)

	lcp, err := readInt(buf[lcpOff:lcpOff+2], 2, order)
	if err != nil {
		return wrapErr(err, "lcp")
	}
	p.LCP = int(lcp)

	return nil
}

// processColumnSize implements spec.md §4.4's ColumnSize handler.
func (s *schema) processColumnSize(buf []byte, offset int, logWarn func(string, ...interface{})) error {
	if s.columnSizeSet {
		return ErrDuplicateColumnSize
	}
	s.columnSizeSet = true
	p := s.props
	L := p.intLength
	cc, err := readInt(buf[offset+L:offset+2*L], L, p.ByteOrder)
	if err != nil {
		return wrapErr(err, "column_count")
	}
	p.ColumnCount = int(cc)
	if p.ColCountP1+p.ColCountP2 != p.ColumnCount {
		logWarn("column count mismatch: %d + %d != %d", p.ColCountP1, p.ColCountP2, p.ColumnCount)
	}
	return nil
}

// processColumnText implements spec.md §4.4's ColumnText handler,
// including the first-blob compression/creator-proc bookkeeping.
func (s *schema) processColumnText(buf []byte, offset, length int) error {
	p := s.props
	L := p.intLength

	sizeOff := offset + L
	if sizeOff+2 > len(buf) {
		return fmt.Errorf("sas7bdat: ColumnText text_block_size at %d exceeds page bounds", sizeOff)
	}
	textBlockSize := int(p.ByteOrder.Uint16(buf[sizeOff : sizeOff+2]))
	blobOff := sizeOff + 2
	if blobOff+textBlockSize > len(buf) {
		return fmt.Errorf("sas7bdat: ColumnText block of %d bytes at %d exceeds page bounds", textBlockSize, blobOff)
	}
	blob := string(buf[blobOff : blobOff+textBlockSize])
	s.columnNamesStrings = append(s.columnNamesStrings, blob)

	if len(s.columnNamesStrings) != 1 {
		return nil
	}

	switch {
	case strings.Contains(blob, rleCompressionLiteral):
		p.Compression = CompressionRLE
	case strings.Contains(blob, rdcCompressionLiteral):
		p.Compression = CompressionRDC
	default:
		p.Compression = CompressionNone
	}

	base := offset + 16
	if p.U64 {
		base += 4
	}
	literalWidth := 8
	if base+literalWidth > len(buf) {
		return nil
	}
	literal := strings.Trim(string(buf[base:base+literalWidth]), "\x00")

	switch {
	case literal == "":
		p.LCS = 0
		creatorOff := offset + 32
		if p.U64 {
			creatorOff += 4
		}
		if creatorOff+p.LCP <= len(buf) {
			p.CreatorProc = string(buf[creatorOff : creatorOff+p.LCP])
		}
	case literal == rleCompressionLiteral:
		creatorOff := offset + 40
		if p.U64 {
			creatorOff += 4
		}
		if creatorOff+p.LCP <= len(buf) {
			p.CreatorProc = string(buf[creatorOff : creatorOff+p.LCP])
		}
	case p.LCS > 0:
		p.LCP = 0
		creatorOff := offset + 16
		if p.U64 {
			creatorOff += 4
		}
		if creatorOff+p.LCS <= len(buf) {
			p.Creator = string(buf[creatorOff : creatorOff+p.LCS])
		}
	}
	return nil
}

// processColumnName implements spec.md §4.4's ColumnName handler.
func (s *schema) processColumnName(buf []byte, offset, length int) error {
	L := s.props.intLength
	base := offset + L
	count := (length - 2*L - 12) / 8

	for i := 0; i < count; i++ {
		rec := base + 8*(i+1)
		idx, err := readInt(buf[rec:rec+2], 2, s.props.ByteOrder)
		if err != nil {
			return wrapErr(err, "column name text index")
		}
		nameOff, err := readInt(buf[rec+2:rec+4], 2, s.props.ByteOrder)
		if err != nil {
			return wrapErr(err, "column name offset")
		}
		nameLen, err := readInt(buf[rec+4:rec+6], 2, s.props.ByteOrder)
		if err != nil {
			return wrapErr(err, "column name length")
		}
		if int(idx) >= len(s.columnNamesStrings) {
			return fmt.Errorf("sas7bdat: column name text index %d out of range", idx)
		}
		pool := s.columnNamesStrings[idx]
		s.columnNames = append(s.columnNames, pool[nameOff:nameOff+nameLen])
	}
	return nil
}

// processColumnAttributes implements spec.md §4.4's ColumnAttributes
// handler.
func (s *schema) processColumnAttributes(buf []byte, offset, length int) error {
	L := s.props.intLength
	count := (length - 2*L - 12) / (L + 8)

	for i := 0; i < count; i++ {
		// Record i's data_offset starts 8 bytes past the (offset, length)
		// pair every subheader begins with; data_length and type sit L and
		// L+6 bytes further in, matching the teacher's column_data_offset_offset
		// / column_data_length_offset / column_type_offset constants.
		rec := offset + L + 8 + i*(L+8)
		dataOff, err := readInt(buf[rec:rec+L], L, s.props.ByteOrder)
		if err != nil {
			return wrapErr(err, "column data offset")
		}
		dataLen, err := readInt(buf[rec+L:rec+L+4], 4, s.props.ByteOrder)
		if err != nil {
			return wrapErr(err, "column data length")
		}
		typeCode, err := readInt(buf[rec+L+6:rec+L+7], 1, s.props.ByteOrder)
		if err != nil {
			return wrapErr(err, "column type")
		}
		s.columnDataOffsets = append(s.columnDataOffsets, int(dataOff))
		s.columnDataLengths = append(s.columnDataLengths, int(dataLen))
		if typeCode == 1 {
			s.columnTypes = append(s.columnTypes, ColumnNumber)
		} else {
			s.columnTypes = append(s.columnTypes, ColumnString)
		}
	}
	return nil
}

// processFormatAndLabel implements spec.md §4.4's FormatAndLabel handler,
// the point at which a Column is finally materialized.
func (s *schema) processFormatAndLabel(buf []byte, offset int) error {
	L := s.props.intLength
	base := offset + 3*L

	clampIdx := func(idx int64) int {
		if int(idx) >= len(s.columnNamesStrings) {
			return len(s.columnNamesStrings) - 1
		}
		return int(idx)
	}

	formatIdxRaw, err := readInt(buf[base+22:base+24], 2, s.props.ByteOrder)
	if err != nil {
		return wrapErr(err, "format text index")
	}
	formatOff, err := readInt(buf[base+24:base+26], 2, s.props.ByteOrder)
	if err != nil {
		return wrapErr(err, "format offset")
	}
	formatLen, err := readInt(buf[base+26:base+28], 2, s.props.ByteOrder)
	if err != nil {
		return wrapErr(err, "format length")
	}
	labelIdxRaw, err := readInt(buf[base+28:base+30], 2, s.props.ByteOrder)
	if err != nil {
		return wrapErr(err, "label text index")
	}
	labelOff, err := readInt(buf[base+30:base+32], 2, s.props.ByteOrder)
	if err != nil {
		return wrapErr(err, "label offset")
	}
	labelLen, err := readInt(buf[base+32:base+34], 2, s.props.ByteOrder)
	if err != nil {
		return wrapErr(err, "label length")
	}

	formatIdx := clampIdx(formatIdxRaw)
	labelIdx := clampIdx(labelIdxRaw)
	if formatIdx < 0 || labelIdx < 0 {
		return fmt.Errorf("sas7bdat: FormatAndLabel subheader seen before any ColumnText")
	}

	formatPool := s.columnNamesStrings[formatIdx]
	labelPool := s.columnNamesStrings[labelIdx]

	var format, label string
	if int(formatOff+formatLen) <= len(formatPool) {
		format = formatPool[formatOff : formatOff+formatLen]
	}
	if int(labelOff+labelLen) <= len(labelPool) {
		label = labelPool[labelOff : labelOff+labelLen]
	}

	pos := len(s.columns)
	if pos >= len(s.columnNames) || pos >= len(s.columnTypes) || pos >= len(s.columnDataLengths) {
		return fmt.Errorf("sas7bdat: FormatAndLabel subheader for column %d arrived before its ColumnName/ColumnAttributes", pos)
	}

	col := &Column{
		Index:  pos,
		Name:   s.columnNames[pos],
		Label:  label,
		Format: format,
		Type:   s.columnTypes[pos],
		Length: s.columnDataLengths[pos],
	}
	s.columns = append(s.columns, col)
	return nil
}
