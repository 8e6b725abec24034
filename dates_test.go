package sas7bdat

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultDateFormatterDate(t *testing.T) {
	// 1960-01-01 to 1970-01-01 is 3653 days (3 leap years in between);
	// 1970-01-01 to 2020-01-01 is 18262 days (12 leap years in between);
	// plus 12 more days lands on 2020-01-13.
	days := 3653 + 18262 + 12
	got := defaultDateFormatter(DateKindDate, float64(days)*secondsPerDay)
	require.Equal(t, "2020-01-13", got)
}

func TestDefaultDateFormatterDateTime(t *testing.T) {
	got := defaultDateFormatter(DateKindDateTime, 0)
	require.Equal(t, "1960-01-01T00:00:00Z", got)
}

func TestDateFallbackScenario(t *testing.T) {
	// spec.md §8 scenario 5: a DATE-tagged column whose raw value is
	// 1893456000 is not a plausible days-since-epoch count, so decodeCell
	// must retry it as a datetime-seconds value instead of failing.
	raw := 1893456000.0
	require.False(t, dateAsDaysReasonable(raw))

	cell := make([]byte, 8)
	binary.LittleEndian.PutUint64(cell, math.Float64bits(raw))
	col := &Column{Name: "d", Type: ColumnNumber, Length: 8, Format: "DATE"}
	fs := newFormatSets(defaultConfig())

	v, err := decodeCell(cell, col, binary.LittleEndian, nil, fs, defaultDateFormatter)
	require.NoError(t, err)
	s, ok := v.(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(s, "20"), "expected an ISO-8601 date in the 2000s, got %q", s)
}
