package sas7bdat

import (
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildScenario1File hand-assembles a minimal 32-bit little-endian
// SAS7BDAT file: one MIX page carrying both the full metadata (RowSize,
// ColumnSize, ColumnText, ColumnName, ColumnAttributes, two FormatAndLabel
// subheaders) and all five uncompressed data rows, matching spec.md §8
// scenario 1 (two columns: "id" number length 8, "name" string length 10;
// five rows).
func buildScenario1File(t *testing.T) []byte {
	t.Helper()

	const headerLength = 288
	const pageLength = 4096
	const (
		pageBitOffset          = 16 // 32-bit layout
		subheaderPointersBase  = pageBitOffset + 8
		ptrLen                 = 12
		subheaderCount         = 7
		intLen                 = 4
	)

	header := make([]byte, headerLength)
	copy(header[0:32], magic)
	header[32] = '0' // 32-bit
	header[35] = '0' // no align1
	header[37] = 0x01 // little-endian
	header[39] = '1'  // unix
	header[70] = 0    // utf-8
	binary.LittleEndian.PutUint32(header[196:200], headerLength)
	binary.LittleEndian.PutUint32(header[200:204], pageLength)
	binary.LittleEndian.PutUint32(header[204:208], 1)

	page := make([]byte, pageLength)

	// Page header: type=MIX(512), block_count=0, subheader_count=7.
	binary.LittleEndian.PutUint16(page[pageBitOffset:pageBitOffset+2], uint16(pageMix1))
	binary.LittleEndian.PutUint16(page[pageBitOffset+2:pageBitOffset+4], 0)
	binary.LittleEndian.PutUint16(page[pageBitOffset+4:pageBitOffset+6], subheaderCount)

	type ptr struct{ offset, length int }
	ptrs := []ptr{
		{300, 400},  // 0: RowSize
		{700, 8},    // 1: ColumnSize
		{750, 10},   // 2: ColumnText
		{900, 36},   // 3: ColumnName
		{1000, 44},  // 4: ColumnAttributes
		{1100, 64},  // 5: FormatAndLabel(id)
		{1150, 64},  // 6: FormatAndLabel(name)
	}
	for i, p := range ptrs {
		base := subheaderPointersBase + i*ptrLen
		binary.LittleEndian.PutUint32(page[base:base+4], uint32(p.offset))
		binary.LittleEndian.PutUint32(page[base+4:base+8], uint32(p.length))
		page[base+8] = 0 // compression
		page[base+9] = 0 // type
	}

	// RowSize subheader at 300.
	copy(page[300:304], []byte{0xf7, 0xf7, 0xf7, 0xf7})
	putInt32 := func(off int, v int32) { binary.LittleEndian.PutUint32(page[off:off+4], uint32(v)) }
	putInt16 := func(off int, v int16) { binary.LittleEndian.PutUint16(page[off:off+2], uint16(v)) }
	putInt32(300+5*intLen, 18) // row_length
	putInt32(300+6*intLen, 5)  // row_count
	putInt32(300+9*intLen, 2)  // col_count_p1
	putInt32(300+10*intLen, 0) // col_count_p2
	putInt32(300+15*intLen, 5) // mix_page_row_count
	putInt16(300+354, 0)       // lcs
	putInt16(300+378, 0)       // lcp

	// ColumnSize subheader at 700.
	copy(page[700:704], []byte{0xf6, 0xf6, 0xf6, 0xf6})
	putInt32(700+intLen, 2) // column_count

	// ColumnText subheader at 750: text pool blob "idname".
	copy(page[750:754], []byte{0xfd, 0xff, 0xff, 0xff})
	putInt16(750+intLen, 6) // text_block_size
	copy(page[750+intLen+2:750+intLen+2+6], []byte("idname"))

	// ColumnName subheader at 900: two name records.
	copy(page[900:904], []byte{0xff, 0xff, 0xff, 0xff})
	nameBase := 900 + intLen // 904
	putInt16(nameBase+8, 0)  // rec0: text_index
	putInt16(nameBase+10, 0) // rec0: name_offset ("id" at 0)
	putInt16(nameBase+12, 2) // rec0: name_length
	putInt16(nameBase+16, 0) // rec1: text_index
	putInt16(nameBase+18, 2) // rec1: name_offset ("name" at 2)
	putInt16(nameBase+20, 4) // rec1: name_length

	// ColumnAttributes subheader at 1000: two records. Each record i starts
	// at offset+intLen+8+i*(intLen+8) (the teacher's column_data_offset_offset
	// == 8 past the signature+length-header pair), data_length is intLen
	// further in, and type is intLen+6 further in.
	copy(page[1000:1004], []byte{0xfc, 0xff, 0xff, 0xff})
	attrRec0 := 1000 + intLen + 8           // 1012
	attrRec1 := attrRec0 + (intLen + 8)     // 1024
	putInt32(attrRec0, 0)              // id: data_offset
	putInt32(attrRec0+intLen, 8)       // id: data_length
	page[attrRec0+intLen+6] = 1        // id: type=number
	putInt32(attrRec1, 8)              // name: data_offset
	putInt32(attrRec1+intLen, 10)      // name: data_length
	page[attrRec1+intLen+6] = 2        // name: type=string

	// FormatAndLabel subheaders at 1100 (id) and 1150 (name): every field
	// left zero selects an empty format/label string, which is valid
	// since column_names_strings has at least one entry.
	copy(page[1100:1104], []byte{0xfe, 0xfb, 0xff, 0xff})
	copy(page[1150:1154], []byte{0xfe, 0xfb, 0xff, 0xff})

	// Row area: base = pageBitOffset + 8 + subheader_count*ptrLen + align,
	// align = (pageBitOffset + 8 + subheader_count*ptrLen) mod 8.
	base := subheaderPointersBase + subheaderCount*ptrLen
	align := base % 8
	rowBase := base + align
	const rowLength = 18

	names := []string{"alpha     ", "beta      ", "          ", "delta     ", "epsilon   "}
	for i := 0; i < 5; i++ {
		off := rowBase + i*rowLength
		binary.LittleEndian.PutUint64(page[off:off+8], math.Float64bits(float64(i+1)))
		copy(page[off+8:off+18], []byte(names[i]))
	}

	return append(header, page...)
}

func TestReaderScenario1(t *testing.T) {
	data := buildScenario1File(t)
	src := NewMemorySource(data)

	r, err := NewReader(src)
	require.NoError(t, err)

	require.Equal(t, 2, r.Properties().ColumnCount)
	require.Equal(t, 5, r.Properties().RowCount)
	require.Len(t, r.Columns(), 2)
	require.Equal(t, "id", r.Columns()[0].Name)
	require.Equal(t, "name", r.Columns()[1].Name)

	header, err := r.NextRow()
	require.NoError(t, err)
	require.Equal(t, []interface{}{"id", "name"}, header)

	want := []struct {
		id   float64
		name string
	}{
		{1, "alpha"},
		{2, "beta"},
		{3, ""},
		{4, "delta"},
		{5, "epsilon"},
	}
	for _, w := range want {
		row, err := r.NextRow()
		require.NoError(t, err)
		got, ok := row.([]interface{})
		require.True(t, ok)
		require.Equal(t, w.id, got[0])
		require.Equal(t, w.name, got[1])
	}

	_, err = r.NextRow()
	require.Equal(t, io.EOF, err)
}

func TestReaderSkipHeaderAndRowFormatMap(t *testing.T) {
	data := buildScenario1File(t)
	src := NewMemorySource(data)

	r, err := NewReader(src, WithSkipHeader(), WithRowFormat(RowMap))
	require.NoError(t, err)

	row, err := r.NextRow()
	require.NoError(t, err)
	m, ok := row.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(1), m["id"])
	require.Equal(t, "alpha", m["name"])
}

func TestReaderReadRowsBulk(t *testing.T) {
	data := buildScenario1File(t)
	src := NewMemorySource(data)

	r, err := NewReader(src, WithSkipHeader())
	require.NoError(t, err)

	rows, err := r.ReadRows(-1)
	require.NoError(t, err)
	require.Len(t, rows, 5)
}
