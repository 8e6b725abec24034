package sas7bdat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyNumericFormatBaseSets(t *testing.T) {
	fs := newFormatSets(defaultConfig())

	require.Equal(t, KindTime, classifyNumericFormat("TIME", fs))
	require.Equal(t, KindDateTime, classifyNumericFormat("DATETIME", fs))
	require.Equal(t, KindDate, classifyNumericFormat("YYMMDD", fs))
	require.Equal(t, KindDate, classifyNumericFormat("DATE", fs))
	require.Equal(t, KindNumber, classifyNumericFormat("", fs))
	require.Equal(t, KindNumber, classifyNumericFormat("COMMA9.", fs))
}

func TestClassifyNumericFormatExtensionsAreIsolated(t *testing.T) {
	cfg := defaultConfig()
	WithExtraTimeFormats("HHMM")(cfg)
	WithExtraDateFormats("MYCUSTOMDATE")(cfg)
	fs := newFormatSets(cfg)

	require.Equal(t, KindTime, classifyNumericFormat("HHMM", fs))
	require.Equal(t, KindDate, classifyNumericFormat("MYCUSTOMDATE", fs))
	// Extending one Reader's format sets must not mutate the package-level
	// base tables that later Readers start from.
	fs2 := newFormatSets(defaultConfig())
	require.Equal(t, KindNumber, classifyNumericFormat("HHMM", fs2))
	require.Equal(t, KindNumber, classifyNumericFormat("MYCUSTOMDATE", fs2))
}

func TestColumnTypeString(t *testing.T) {
	require.Equal(t, "number", ColumnNumber.String())
	require.Equal(t, "string", ColumnString.String())
}
