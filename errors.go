package sas7bdat

import "errors"

// Structural parse failures. All are fatal to the read that triggered them.
var (
	ErrBadMagic       = errors.New("sas7bdat: magic number mismatch (not a SAS7BDAT file)")
	ErrHeaderTooShort = errors.New("sas7bdat: header is shorter than the minimum 288 bytes")
	ErrShortRead      = errors.New("sas7bdat: short read from byte source")
	ErrIncompleteRead = errors.New("sas7bdat: incomplete page read")

	ErrDuplicateRowSize          = errors.New("sas7bdat: duplicate RowSize subheader")
	ErrDuplicateColumnSize       = errors.New("sas7bdat: duplicate ColumnSize subheader")
	ErrDuplicateColCountP1       = errors.New("sas7bdat: duplicate column count (part 1) value")
	ErrDuplicateColCountP2       = errors.New("sas7bdat: duplicate column count (part 2) value")
	ErrDuplicateMixPageRowCount  = errors.New("sas7bdat: duplicate mix-page row count value")

	ErrUnknownControlByte         = errors.New("sas7bdat: unknown RLE control byte")
	ErrDecompressedLengthMismatch = errors.New("sas7bdat: decompressed row length does not match row_length")

	ErrUnknownPageType       = errors.New("sas7bdat: unknown page type encountered while iterating rows")
	ErrUnsupportedCompression = errors.New("sas7bdat: unsupported compression scheme (RDC / SASYZCR2)")
)

// ParseError wraps one of the sentinel errors above with positional context
// (byte offset, page index, or similar) without losing errors.Is/As
// compatibility with the sentinel.
type ParseError struct {
	Err     error
	Context string
}

func (e *ParseError) Error() string {
	if e.Context == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Context
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func wrapErr(err error, context string) error {
	if err == nil {
		return nil
	}
	return &ParseError{Err: err, Context: context}
}
