package sas7bdat

// Ross Data Compression ("SASYZCR2") is deliberately unimplemented.
//
// spec.md §9's Open Question notes that the reference implementation's own
// RDC decompressor is commented out / incomplete, and that guessing at the
// algorithm risks silently producing wrong data rather than failing loudly.
// This module takes option (a): reject files compressed with RDC outright,
// at Open/NewReader time, rather than attempt a decoder nobody has verified.
func rejectIfRDC(p *Properties) error {
	if p.Compression == CompressionRDC {
		return ErrUnsupportedCompression
	}
	return nil
}
