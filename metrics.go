package sas7bdat

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus counters a Reader optionally reports
// through. A nil *Metrics (the default, when WithMetrics is not used)
// disables collection entirely; all methods on it are safe no-ops.
type Metrics struct {
	PagesRead        *prometheus.CounterVec
	SubheadersByKind *prometheus.CounterVec
	RowsDecoded      prometheus.Counter
	RLEBytesIn       prometheus.Counter
	RLEBytesOut      prometheus.Counter
}

// NewMetrics creates and registers the reader's metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	pagesRead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sas7bdat_pages_read_total",
		Help: "Total pages read from the byte source, by page type.",
	}, []string{"page_type"})

	subheadersByKind := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sas7bdat_subheaders_total",
		Help: "Total subheaders dispatched, by kind.",
	}, []string{"kind"})

	rowsDecoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sas7bdat_rows_decoded_total",
		Help: "Total data rows decoded.",
	})

	rleBytesIn := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sas7bdat_rle_bytes_in_total",
		Help: "Total compressed bytes passed into the RLE decompressor.",
	})

	rleBytesOut := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sas7bdat_rle_bytes_out_total",
		Help: "Total decompressed bytes produced by the RLE decompressor.",
	})

	reg.MustRegister(pagesRead, subheadersByKind, rowsDecoded, rleBytesIn, rleBytesOut)

	return &Metrics{
		PagesRead:        pagesRead,
		SubheadersByKind: subheadersByKind,
		RowsDecoded:      rowsDecoded,
		RLEBytesIn:       rleBytesIn,
		RLEBytesOut:      rleBytesOut,
	}
}

func (m *Metrics) pageRead(pageType string) {
	if m == nil {
		return
	}
	m.PagesRead.WithLabelValues(pageType).Inc()
}

func (m *Metrics) subheader(kind string) {
	if m == nil {
		return
	}
	m.SubheadersByKind.WithLabelValues(kind).Inc()
}

func (m *Metrics) rowDecoded() {
	if m == nil {
		return
	}
	m.RowsDecoded.Inc()
}

func (m *Metrics) rleBytes(in, out int) {
	if m == nil {
		return
	}
	m.RLEBytesIn.Add(float64(in))
	m.RLEBytesOut.Add(float64(out))
}
