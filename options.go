package sas7bdat

import (
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

// RowFormat selects the shape of the values returned by NextRow.
type RowFormat int

const (
	// RowArray returns each row as an ordered []interface{}, one entry
	// per column in declaration order. This is the default.
	RowArray RowFormat = iota
	// RowMap returns each row as a map[string]interface{} keyed by
	// column name.
	RowMap
)

// DateKind identifies which of the three date-ish semantic kinds a value
// belongs to, for a custom DateFormatter.
type DateKind int

const (
	DateKindDate DateKind = iota
	DateKindTime
	DateKindDateTime
)

// DateFormatter renders a decoded date/time/datetime value. seconds is the
// number of seconds (DateKindDateTime, DateKindTime) or v*86400 for
// DateKindDate, relative to the SAS epoch (1960-01-01 UTC). The default
// formatter renders an ISO-8601 string; see defaultDateFormatter.
type DateFormatter func(kind DateKind, seconds float64) interface{}

type config struct {
	logger          log.Logger
	logLevel        string
	extraTime       []string
	extraDatetime   []string
	extraDate       []string
	skipHeader      bool
	encoding        string
	alignCorrection bool
	dateFormatter   DateFormatter
	rowFormat       RowFormat
	metricsReg      prometheus.Registerer
	factorize       bool
	stringCacheSize int
}

func defaultConfig() *config {
	return &config{
		logger:          log.NewNopLogger(),
		logLevel:        "warning",
		skipHeader:      false,
		encoding:        "", // defer to the header's embedded encoding byte; see WithEncoding
		alignCorrection: true,
		dateFormatter:   defaultDateFormatter,
		rowFormat:       RowArray,
		factorize:       false,
		stringCacheSize: 4096,
	}
}

// Option configures a Reader at construction time.
type Option func(*config)

// WithLogger sets the go-kit logger rows/pages/subheaders are logged
// through. Defaults to a no-op logger.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithLogLevel sets the minimum severity reported ("debug", "info",
// "warning", or "error"). Default "warning".
func WithLogLevel(level string) Option {
	return func(c *config) { c.logLevel = level }
}

// WithExtraTimeFormats extends the set of SAS format strings treated as
// time-of-day values.
func WithExtraTimeFormats(formats ...string) Option {
	return func(c *config) { c.extraTime = append(c.extraTime, formats...) }
}

// WithExtraDatetimeFormats extends the set of SAS format strings treated as
// datetime values.
func WithExtraDatetimeFormats(formats ...string) Option {
	return func(c *config) { c.extraDatetime = append(c.extraDatetime, formats...) }
}

// WithExtraDateFormats extends the set of SAS format strings treated as
// date values.
func WithExtraDateFormats(formats ...string) Option {
	return func(c *config) { c.extraDate = append(c.extraDate, formats...) }
}

// WithSkipHeader suppresses the initial header row that would otherwise be
// emitted before the first data row.
func WithSkipHeader() Option {
	return func(c *config) { c.skipHeader = true }
}

// WithEncoding overrides the text encoding used to decode string columns,
// rather than deferring to the encoding byte embedded in the file header.
func WithEncoding(name string) Option {
	return func(c *config) { c.encoding = name }
}

// WithoutAlignCorrection disables the 0/4-byte alignment shift normally
// applied before the row area of a MIX page. A small number of producers
// write files that decode correctly only with this disabled.
func WithoutAlignCorrection() Option {
	return func(c *config) { c.alignCorrection = false }
}

// WithDateFormatter overrides the default ISO-8601 rendering of
// date/time/datetime columns.
func WithDateFormatter(f DateFormatter) Option {
	return func(c *config) { c.dateFormatter = f }
}

// WithRowFormat selects between ordered-array and name-keyed-map rows.
func WithRowFormat(f RowFormat) Option {
	return func(c *config) { c.rowFormat = f }
}

// WithMetrics registers the reader's Prometheus counters against reg. If
// never called, no metrics are collected.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) { c.metricsReg = reg }
}

// WithFactorizeStrings represents string column values as pooled integer
// codes rather than decoded strings; the mapping is available from
// Reader.StringFactorMap after the read completes.
func WithFactorizeStrings() Option {
	return func(c *config) { c.factorize = true }
}

// WithStringCacheSize bounds the number of distinct decoded string values
// the reader's de-duplication cache holds. Default 4096.
func WithStringCacheSize(n int) Option {
	return func(c *config) { c.stringCacheSize = n }
}
