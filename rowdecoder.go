package sas7bdat

import (
	"encoding/binary"
	"fmt"

	xencoding "golang.org/x/text/encoding"
)

// decodedRow is the pre-formatting result of decoding one physical row:
// one value per column, in column order. The Reader turns this into
// RowArray or RowMap shape per the configured RowFormat.
type decodedRow []interface{}

// decodeRow implements spec.md §4.5: for each column in order, stop if its
// declared length is zero, otherwise slice its byte range out of raw
// (column_data_offsets[i] relative to the row's base) and convert
// according to its type/format.
func decodeRow(raw []byte, columns []*Column, offsets, lengths []int, order binary.ByteOrder, dec *xencoding.Decoder, fs *formatSets, dateFmt DateFormatter) (decodedRow, error) {
	row := make(decodedRow, 0, len(columns))

	for i, col := range columns {
		if lengths[i] == 0 {
			break
		}
		cell := columnSlice(raw, offsets, lengths, i)
		if cell == nil {
			return nil, fmt.Errorf("sas7bdat: column %q range [%d:%d+%d) exceeds row_length %d",
				col.Name, offsets[i], offsets[i], lengths[i], len(raw))
		}
		v, err := decodeCell(cell, col, order, dec, fs, dateFmt)
		if err != nil {
			return nil, err
		}
		row = append(row, v)
	}
	return row, nil
}

// decodeCell decodes one column's bytes, already sliced to [start:start+length)
// by the caller via columnSlice.
func decodeCell(cell []byte, col *Column, order binary.ByteOrder, dec *xencoding.Decoder, fs *formatSets, dateFmt DateFormatter) (interface{}, error) {
	if col.Type == ColumnString {
		return readText(cell, dec), nil
	}

	if len(cell) <= 2 {
		// spec.md §4.5: short numeric columns always decode as a 16-bit
		// signed integer, even when only 1 byte is physically stored.
		var buf [2]byte
		if order == binary.LittleEndian {
			copy(buf[:len(cell)], cell)
		} else {
			copy(buf[2-len(cell):], cell)
		}
		v, err := readInt(buf[:], 2, order)
		if err != nil {
			return nil, wrapErr(err, fmt.Sprintf("column %q", col.Name))
		}
		return v, nil
	}

	kind := classifyNumericFormat(col.Format, fs)

	raw, ok, err := readDouble(cell, order)
	if err != nil {
		return nil, wrapErr(err, fmt.Sprintf("column %q", col.Name))
	}
	if !ok {
		return nil, nil // NaN -> null, spec.md §4.1/§8 "NaN→null" law
	}

	switch kind {
	case KindTime:
		return dateFmt(DateKindTime, raw), nil
	case KindDateTime:
		return dateFmt(DateKindDateTime, raw), nil
	case KindDate:
		if !dateAsDaysReasonable(raw) {
			// spec.md §4.1 date fallback: retry as datetime seconds.
			return dateFmt(DateKindDateTime, raw), nil
		}
		return dateFmt(DateKindDate, raw*secondsPerDay), nil
	default:
		return raw, nil
	}
}

func classifyNumericFormat(format string, fs *formatSets) Kind {
	switch {
	case fs.time[format]:
		return KindTime
	case fs.datetime[format]:
		return KindDateTime
	case fs.date[format]:
		return KindDate
	default:
		return KindNumber
	}
}

// columnSlice extracts column i's byte range from a row buffer of at least
// row_length bytes, per spec.md §4.5: "Slice column_data_lengths[i] bytes
// starting at column_data_offsets[i] relative to the row's base offset."
func columnSlice(rowBuf []byte, offsets, lengths []int, i int) []byte {
	start := offsets[i]
	length := lengths[i]
	if start < 0 || start+length > len(rowBuf) {
		return nil
	}
	return rowBuf[start : start+length]
}
