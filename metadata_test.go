package sas7bdat

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestProps() *Properties {
	p := &Properties{ByteOrder: binary.LittleEndian}
	p.deriveLayout()
	return p
}

func TestProcessRowSizeAndDuplicateRejected(t *testing.T) {
	p := newTestProps()
	s := newSchema(p)

	buf := make([]byte, 700)
	binary.LittleEndian.PutUint32(buf[5*4:], 18) // row_length
	binary.LittleEndian.PutUint32(buf[6*4:], 5)  // row_count
	binary.LittleEndian.PutUint32(buf[9*4:], 2)  // col_count_p1
	binary.LittleEndian.PutUint32(buf[10*4:], 0) // col_count_p2
	binary.LittleEndian.PutUint32(buf[15*4:], 5) // mix_page_row_count
	binary.LittleEndian.PutUint16(buf[354:], 0)  // lcs
	binary.LittleEndian.PutUint16(buf[378:], 0)  // lcp

	require.NoError(t, s.processRowSize(buf, 0))
	require.Equal(t, 18, p.RowLength)
	require.Equal(t, 5, p.RowCount)
	require.Equal(t, 5, p.MixPageRowCount)

	require.ErrorIs(t, s.processRowSize(buf, 0), ErrDuplicateRowSize)
}

func TestProcessColumnSizeWarnsOnMismatch(t *testing.T) {
	p := newTestProps()
	p.ColCountP1, p.ColCountP2 = 1, 0
	s := newSchema(p)

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[4:8], 2) // column_count

	var warned bool
	err := s.processColumnSize(buf, 0, func(string, ...interface{}) { warned = true })
	require.NoError(t, err)
	require.Equal(t, 2, p.ColumnCount)
	require.True(t, warned)
}

func TestProcessColumnTextDetectsCompression(t *testing.T) {
	p := newTestProps()
	s := newSchema(p)

	blob := []byte("SASYZCRL")
	buf := make([]byte, 4+2+len(blob)+64)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(blob))) // text_block_size
	copy(buf[6:], blob)

	require.NoError(t, s.processColumnText(buf, 0, 4+2+len(blob)))
	require.Equal(t, CompressionRLE, p.Compression)
	require.Equal(t, []string{string(blob)}, s.columnNamesStrings)
}

func TestProcessColumnNameAndAttributesAndFormatAndLabel(t *testing.T) {
	p := newTestProps()
	p.ColumnCount = 2
	s := newSchema(p)
	s.columnNamesStrings = []string{"idname"}

	// ColumnName: two records at offset 0, length 36.
	nameBuf := make([]byte, 36)
	base := 4
	binary.LittleEndian.PutUint16(nameBuf[base+8:], 0)
	binary.LittleEndian.PutUint16(nameBuf[base+10:], 0)
	binary.LittleEndian.PutUint16(nameBuf[base+12:], 2)
	binary.LittleEndian.PutUint16(nameBuf[base+16:], 0)
	binary.LittleEndian.PutUint16(nameBuf[base+18:], 2)
	binary.LittleEndian.PutUint16(nameBuf[base+20:], 4)
	require.NoError(t, s.processColumnName(nameBuf, 0, 36))
	require.Equal(t, []string{"id", "name"}, s.columnNames)

	// ColumnAttributes: two records at offset 0, length 44; record i sits
	// at offset+L+8+i*(L+8) = 12+i*12, with type at rec+L+6.
	attrBuf := make([]byte, 44)
	rec0, rec1 := 12, 24
	binary.LittleEndian.PutUint32(attrBuf[rec0:], 0)
	binary.LittleEndian.PutUint32(attrBuf[rec0+4:], 8)
	attrBuf[rec0+10] = 1
	binary.LittleEndian.PutUint32(attrBuf[rec1:], 8)
	binary.LittleEndian.PutUint32(attrBuf[rec1+4:], 10)
	attrBuf[rec1+10] = 2
	require.NoError(t, s.processColumnAttributes(attrBuf, 0, 44))
	require.Equal(t, []int{0, 8}, s.columnDataOffsets)
	require.Equal(t, []int{8, 10}, s.columnDataLengths)
	require.Equal(t, []ColumnType{ColumnNumber, ColumnString}, s.columnTypes)

	// FormatAndLabel: all-zero fields select an empty format/label.
	flBuf := make([]byte, 64)
	require.NoError(t, s.processFormatAndLabel(flBuf, 0))
	require.NoError(t, s.processFormatAndLabel(flBuf, 0))
	require.Len(t, s.columns, 2)
	require.Equal(t, "id", s.columns[0].Name)
	require.Equal(t, ColumnNumber, s.columns[0].Type)
	require.Equal(t, "name", s.columns[1].Name)
	require.Equal(t, ColumnString, s.columns[1].Type)
}

func TestProcessFormatAndLabelBeforeColumnNameFails(t *testing.T) {
	p := newTestProps()
	s := newSchema(p)
	s.columnNamesStrings = []string{""}

	flBuf := make([]byte, 64)
	require.Error(t, s.processFormatAndLabel(flBuf, 0))
}
