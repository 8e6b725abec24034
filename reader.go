package sas7bdat

import (
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	xencoding "golang.org/x/text/encoding"
)

// Reader is the public row stream of spec.md §4.7. It owns exactly one
// ByteSource and is not safe for concurrent use (spec.md §5).
type Reader struct {
	src ByteSource
	cfg *config

	logger  log.Logger
	metrics *Metrics

	props       *Properties
	columns     []*Column
	dataOffsets []int
	dataLengths []int
	formats     *formatSets
	textDecoder *xencoding.Decoder

	nextPageIdx int // index of the next unread page, relative to header_length
	curPage     []byte
	curHeader   pageHeader
	curDataPtrs []subheaderPointer

	curRowOnPage int
	rowsEmitted  int

	headerRowPending bool
	closed           bool
	pendingErr       error

	stringCache  *lru.Cache[string, string]
	factorizePool map[string]uint64
	factorizeRev  map[uint64]string
}

// Open opens the SAS7BDAT file at path and parses its header and metadata.
func Open(path string, opts ...Option) (*Reader, error) {
	src, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(src, opts...)
	if err != nil {
		src.Close()
		return nil, err
	}
	return r, nil
}

// NewReader constructs a Reader over an already-open ByteSource, parsing
// the header and walking metadata pages until the first row-bearing page
// is reached.
func NewReader(src ByteSource, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	props, err := parseHeader(src)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		src:              src,
		cfg:              cfg,
		logger:           filteredLogger(cfg),
		props:            props,
		headerRowPending: !cfg.skipHeader,
	}
	if cfg.metricsReg != nil {
		r.metrics = NewMetrics(cfg.metricsReg)
	}

	size := cfg.stringCacheSize
	if size < 1 {
		size = 1
	}
	cache, _ := lru.New[string, string](size)
	r.stringCache = cache
	if cfg.factorize {
		r.factorizePool = make(map[string]uint64)
		r.factorizeRev = make(map[uint64]string)
	}

	if err := r.walkMetadata(); err != nil {
		return nil, err
	}

	encName := cfg.encoding
	if encName == "" {
		encName = props.Encoding
	}
	if encName != "" && encName != "utf-8" {
		r.textDecoder = charmapForEncoding(encName)
	}

	r.formats = newFormatSets(cfg)

	if err := rejectIfRDC(r.props); err != nil {
		return nil, err
	}

	return r, nil
}

// walkMetadata reads pages starting at header_length, dispatching
// metadata subheaders, until the first page that carries row data is
// reached (spec.md §4.4; equivalent to the teacher's parseMetadata loop).
func (r *Reader) walkMetadata() error {
	sc := newSchema(r.props)

	for {
		page, hdr, err := r.readPageAt(r.nextPageIdx)
		if err == io.EOF {
			return fmt.Errorf("sas7bdat: reached end of file before metadata was complete")
		}
		if err != nil {
			return err
		}
		r.nextPageIdx++

		if !knownPageType(hdr.pageType) {
			level.Debug(r.logger).Log("msg", "skipping unknown page type", "page_type", hdr.pageType)
			continue
		}

		var dataPtrs []subheaderPointer
		if isMetaMixAMD(hdr.pageType) {
			dataPtrs, err = r.processPageMetadata(sc, page, hdr)
			if err != nil {
				return err
			}
		}
		r.metrics.pageRead(pageTypeLabel(hdr.pageType))

		if hasRows(hdr.pageType) || len(dataPtrs) > 0 {
			r.curPage = page
			r.curHeader = hdr
			r.curDataPtrs = dataPtrs
			r.curRowOnPage = 0
			break
		}
	}

	return r.finalizeSchema(sc)
}

func pageTypeLabel(t int) string {
	switch t {
	case pageMeta:
		return "meta"
	case pageData:
		return "data"
	case pageMix1, pageMix2:
		return "mix"
	case pageAMD:
		return "amd"
	case pageMETC:
		return "metc"
	case pageCOMP:
		return "comp"
	default:
		return "unknown"
	}
}

// finalizeSchema implements the invariants of spec.md §3: exactly one
// RowSize/ColumnSize subheader, matching slice lengths, Columns built in
// FormatAndLabel processing order.
func (r *Reader) finalizeSchema(sc *schema) error {
	if !sc.rowSizeSet {
		return fmt.Errorf("sas7bdat: no RowSize subheader found")
	}
	if !sc.columnSizeSet {
		return fmt.Errorf("sas7bdat: no ColumnSize subheader found")
	}
	n := r.props.ColumnCount
	if len(sc.columnNames) != n || len(sc.columnDataOffsets) != n || len(sc.columnDataLengths) != n || len(sc.columnTypes) != n || len(sc.columns) != n {
		return fmt.Errorf(
			"sas7bdat: schema incomplete: %d names, %d offsets, %d lengths, %d types, %d columns, want %d",
			len(sc.columnNames), len(sc.columnDataOffsets), len(sc.columnDataLengths), len(sc.columnTypes), len(sc.columns), n)
	}
	r.columns = sc.columns
	r.dataOffsets = sc.columnDataOffsets
	r.dataLengths = sc.columnDataLengths
	return nil
}

// processPageMetadata implements spec.md §4.4: walk the page's subheader
// pointer array, classify each by signature, and dispatch to its handler.
// Data-kind subheaders are collected and returned rather than dispatched
// immediately, since their rows are consumed lazily by NextRow.
func (r *Reader) processPageMetadata(sc *schema, page []byte, hdr pageHeader) ([]subheaderPointer, error) {
	var dataPtrs []subheaderPointer
	intLen := r.props.intLength
	ptrLen := r.props.subheaderPointerLength
	base := r.props.pageBitOffset + subheaderPointersOffset

	for i := 0; i < hdr.subheaderCount; i++ {
		ptr, err := readSubheaderPointer(page, base+i*ptrLen, r.props.ByteOrder, intLen)
		if err != nil {
			return nil, err
		}
		if ptr.skip() {
			continue
		}

		if ptr.offset+intLen > len(page) {
			continue
		}
		signature := page[ptr.offset : ptr.offset+intLen]
		kind, ok := classifySubheader(signature, r.props.Compression != CompressionNone, ptr)
		if !ok {
			level.Debug(r.logger).Log("msg", "unknown subheader signature", "signature", fmt.Sprintf("%x", signature))
			continue
		}
		r.metrics.subheader(kind.String())

		if kind == kindData {
			dataPtrs = append(dataPtrs, ptr)
			continue
		}

		if err := r.dispatchSubheader(sc, kind, page, ptr); err != nil {
			return nil, err
		}
	}
	return dataPtrs, nil
}

func (r *Reader) dispatchSubheader(sc *schema, kind subheaderKind, page []byte, ptr subheaderPointer) error {
	switch kind {
	case kindRowSize:
		return sc.processRowSize(page, ptr.offset)
	case kindColumnSize:
		return sc.processColumnSize(page, ptr.offset, r.logWarn)
	case kindSubheaderCounts:
		return nil // spec.md §4.4: ignored
	case kindColumnText:
		return sc.processColumnText(page, ptr.offset, ptr.length)
	case kindColumnName:
		return sc.processColumnName(page, ptr.offset, ptr.length)
	case kindColumnAttributes:
		return sc.processColumnAttributes(page, ptr.offset, ptr.length)
	case kindFormatAndLabel:
		return sc.processFormatAndLabel(page, ptr.offset)
	case kindColumnList:
		return nil // spec.md §4.4: ignored
	default:
		return fmt.Errorf("sas7bdat: unhandled subheader kind %v", kind)
	}
}

func (r *Reader) logWarn(format string, args ...interface{}) {
	level.Warn(r.logger).Log("msg", fmt.Sprintf(format, args...))
}

// readPageAt reads the page at the given zero-based index relative to
// header_length, and decodes its header.
func (r *Reader) readPageAt(idx int) ([]byte, pageHeader, error) {
	off := int64(r.props.HeaderLength) + int64(idx)*int64(r.props.PageLength)
	if off >= r.src.Len() {
		return nil, pageHeader{}, io.EOF
	}
	page := make([]byte, r.props.PageLength)
	if err := r.src.ReadAt(page, off); err != nil {
		return nil, pageHeader{}, wrapErr(ErrIncompleteRead, err.Error())
	}
	hdr, err := decodePageHeader(page, r.props.pageBitOffset, r.props.ByteOrder)
	if err != nil {
		return nil, pageHeader{}, err
	}
	return page, hdr, nil
}

// loadNextPage advances to the next row-bearing (or data-subheader-
// bearing) page, skipping unknown page types and every other page that
// carries neither rows nor Data subheaders, and collecting Data-subheader
// pointers from any interleaved META/MIX/AMD pages, per spec.md §4.3.
func (r *Reader) loadNextPage() error {
	for {
		page, hdr, err := r.readPageAt(r.nextPageIdx)
		if err == io.EOF {
			return io.EOF
		}
		if err != nil {
			return err
		}
		r.nextPageIdx++

		if !knownPageType(hdr.pageType) {
			level.Debug(r.logger).Log("msg", "skipping unknown page type", "page_type", hdr.pageType)
			continue
		}

		var dataPtrs []subheaderPointer
		if isMetaMixAMD(hdr.pageType) {
			dataPtrs, err = r.processPageMetadataForRows(page, hdr)
			if err != nil {
				return err
			}
		}
		r.metrics.pageRead(pageTypeLabel(hdr.pageType))

		if !hasRows(hdr.pageType) && len(dataPtrs) == 0 {
			// A page with nothing to read (pure metadata, AMD, METC,
			// COMP); keep going.
			continue
		}

		r.curPage = page
		r.curHeader = hdr
		r.curDataPtrs = dataPtrs
		r.curRowOnPage = 0
		return nil
	}
}

// processPageMetadataForRows collects the Data-subheader pointers of a page
// seen after the initial walkMetadata pass. Schema subheaders on such pages
// are not dispatched again (RowSize/ColumnSize would trip the
// duplicate-subheader invariant), so only Data pointers are kept.
func (r *Reader) processPageMetadataForRows(page []byte, hdr pageHeader) ([]subheaderPointer, error) {
	var dataPtrs []subheaderPointer
	intLen := r.props.intLength
	ptrLen := r.props.subheaderPointerLength
	base := r.props.pageBitOffset + subheaderPointersOffset

	for i := 0; i < hdr.subheaderCount; i++ {
		ptr, err := readSubheaderPointer(page, base+i*ptrLen, r.props.ByteOrder, intLen)
		if err != nil {
			return nil, err
		}
		if ptr.skip() {
			continue
		}
		if ptr.offset+intLen > len(page) {
			continue
		}
		signature := page[ptr.offset : ptr.offset+intLen]
		kind, ok := classifySubheader(signature, r.props.Compression != CompressionNone, ptr)
		if !ok {
			continue
		}
		if kind == kindData {
			r.metrics.subheader(kind.String())
			dataPtrs = append(dataPtrs, ptr)
		}
	}
	return dataPtrs, nil
}

// Properties returns the parsed file-level schema. Valid after
// Open/NewReader returns successfully.
func (r *Reader) Properties() *Properties { return r.props }

// Columns returns the parsed column schema, in declaration order.
func (r *Reader) Columns() []*Column { return r.columns }

// StringFactorMap returns the mapping from pooled integer code to decoded
// string value, populated only when WithFactorizeStrings was used.
func (r *Reader) StringFactorMap() map[uint64]string {
	return r.factorizeRev
}

// Close releases the underlying ByteSource. NextRow calls it automatically
// once the stream is exhausted.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.src.Close()
}

// NextRow returns the next row in RowArray or RowMap shape (per the
// configured RowFormat), or io.EOF once the stream is exhausted. The
// header row, if enabled, is returned before the first data row.
func (r *Reader) NextRow() (interface{}, error) {
	if r.headerRowPending {
		r.headerRowPending = false
		return r.headerRow(), nil
	}
	if r.pendingErr != nil {
		err := r.pendingErr
		r.pendingErr = nil
		r.Close()
		return nil, err
	}
	if r.closed || r.rowsEmitted >= r.props.RowCount {
		r.Close()
		return nil, io.EOF
	}

	for {
		switch {
		case r.curHeader.pageType == pageMeta:
			if r.curRowOnPage >= len(r.curDataPtrs) {
				if err := r.loadNextPage(); err != nil {
					if err != io.EOF {
						return nil, err
					}
					r.Close()
					return nil, io.EOF
				}
				continue
			}
			ptr := r.curDataPtrs[r.curRowOnPage]
			r.curRowOnPage++
			return r.emitRow(ptr.offset, ptr.length)

		case isMix(r.curHeader.pageType):
			raw, err := r.readMixOrDataRow()
			if err != nil {
				return nil, err
			}
			row, err := r.decode(raw)
			if err != nil {
				return nil, err
			}
			r.curRowOnPage++
			r.rowsEmitted++
			r.metrics.rowDecoded()
			if r.curRowOnPage >= min(r.props.RowCount, r.props.MixPageRowCount) {
				if err := r.loadNextPage(); err != nil {
					r.Close()
					if err != io.EOF {
						r.pendingErr = err
					}
				}
			}
			return row, nil

		case r.curHeader.pageType == pageData:
			raw, err := r.readMixOrDataRow()
			if err != nil {
				return nil, err
			}
			row, err := r.decode(raw)
			if err != nil {
				return nil, err
			}
			r.curRowOnPage++
			r.rowsEmitted++
			r.metrics.rowDecoded()
			if r.curRowOnPage >= r.curHeader.blockCount {
				if err := r.loadNextPage(); err != nil {
					r.Close()
					if err != io.EOF {
						r.pendingErr = err
					}
				}
			}
			return row, nil

		default:
			return nil, ErrUnknownPageType
		}
	}
}

// readMixOrDataRow computes the k-th row's byte range on the current MIX
// or DATA page (spec.md §4.5) and returns its (always uncompressed, since
// only Data-subheader rows can be compressed, see rowdecoder.go / §4.5)
// physical bytes.
func (r *Reader) readMixOrDataRow() ([]byte, error) {
	bitOffset := r.props.pageBitOffset
	var offset int
	if isMix(r.curHeader.pageType) {
		ptrLen := r.props.subheaderPointerLength
		align := 0
		if r.cfg.alignCorrection {
			align = (bitOffset + subheaderPointersOffset + r.curHeader.subheaderCount*ptrLen) % 8
		}
		offset = bitOffset + subheaderPointersOffset + r.curHeader.subheaderCount*ptrLen + r.curRowOnPage*r.props.RowLength + align
	} else {
		offset = bitOffset + subheaderPointersOffset + r.curRowOnPage*r.props.RowLength
	}
	if offset+r.props.RowLength > len(r.curPage) {
		return nil, fmt.Errorf("sas7bdat: row at offset %d exceeds page bounds: %w", offset, ErrIncompleteRead)
	}
	return r.curPage[offset : offset+r.props.RowLength], nil
}

// emitRow decodes a META-page Data subheader row, applying RLE
// decompression when the physical length is shorter than row_length
// (spec.md §4.5/§4.6).
func (r *Reader) emitRow(offset, length int) (interface{}, error) {
	var raw []byte
	if r.props.Compression != CompressionNone && length < r.props.RowLength {
		decoded, err := rleDecompress(r.curPage, offset, length, r.props.RowLength)
		if err != nil {
			return nil, err
		}
		r.metrics.rleBytes(length, r.props.RowLength)
		raw = decoded
	} else {
		if offset+length > len(r.curPage) {
			return nil, fmt.Errorf("sas7bdat: data subheader row exceeds page bounds: %w", ErrIncompleteRead)
		}
		raw = r.curPage[offset : offset+length]
	}
	row, err := r.decode(raw)
	if err != nil {
		return nil, err
	}
	r.rowsEmitted++
	r.metrics.rowDecoded()
	return row, nil
}

func (r *Reader) decode(raw []byte) (interface{}, error) {
	decoded, err := decodeRow(raw, r.columns, r.dataOffsets, r.dataLengths, r.props.ByteOrder, r.textDecoder, r.formats, r.cfg.dateFormatter)
	if err != nil {
		return nil, err
	}
	if r.cfg.factorize {
		r.internString(decoded)
	} else {
		r.dedupStrings(decoded)
	}
	return r.shapeRow(decoded), nil
}

// dedupStrings interns repeated string values through the bounded LRU
// cache so identical column values across rows share one Go string
// header instead of each being a fresh allocation.
func (r *Reader) dedupStrings(row decodedRow) {
	for i, v := range row {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if cached, ok := r.stringCache.Get(s); ok {
			row[i] = cached
		} else {
			r.stringCache.Add(s, s)
		}
	}
}

// internString replaces string column values with their pooled integer
// code, for WithFactorizeStrings.
func (r *Reader) internString(row decodedRow) {
	for i, v := range row {
		s, ok := v.(string)
		if !ok {
			continue
		}
		code, ok := r.factorizePool[s]
		if !ok {
			code = uint64(len(r.factorizePool))
			r.factorizePool[s] = code
			r.factorizeRev[code] = s
		}
		row[i] = code
	}
}

func (r *Reader) headerRow() interface{} {
	if r.cfg.rowFormat == RowMap {
		m := make(map[string]interface{}, len(r.columns))
		for _, c := range r.columns {
			m[c.Name] = c.Name
		}
		return m
	}
	names := make([]interface{}, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

func (r *Reader) shapeRow(row decodedRow) interface{} {
	if r.cfg.rowFormat == RowMap {
		m := make(map[string]interface{}, len(row))
		for i, v := range row {
			m[r.columns[i].Name] = v
		}
		return m
	}
	out := make([]interface{}, len(row))
	copy(out, row)
	return out
}

// ReadRows reads up to n more rows (or, if n < 0, the remainder of the
// file), folding the teacher's bulk Read(num_rows) into the pull-based
// stream: it simply drives NextRow in a loop.
func (r *Reader) ReadRows(n int) ([]interface{}, error) {
	var out []interface{}
	for n < 0 || len(out) < n {
		row, err := r.NextRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
	return out, nil
}
