package sas7bdat

import "time"

var sasEpoch = time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)

// sasDateTime converts seconds-since-epoch to an absolute time, used for
// the header's own DateCreated/DateModified fields and for DATETIME-format
// columns.
func sasDateTime(seconds float64) time.Time {
	return sasEpoch.Add(time.Duration(seconds * float64(time.Second)))
}

// sasDate converts days-since-epoch to an absolute time (midnight), used
// for DATE-format columns.
func sasDate(days float64) time.Time {
	return sasEpoch.Add(time.Duration(days * secondsPerDay * float64(time.Second)))
}

// defaultDateFormatter renders dates, times, and datetimes as ISO-8601
// strings (spec.md §4.1, the "produced as an ISO-8601 string" default).
func defaultDateFormatter(kind DateKind, seconds float64) interface{} {
	switch kind {
	case DateKindDate:
		return sasDate(seconds / secondsPerDay).Format("2006-01-02")
	case DateKindTime:
		t := sasDateTime(seconds)
		return t.Format("15:04:05")
	case DateKindDateTime:
		return sasDateTime(seconds).Format("2006-01-02T15:04:05Z")
	default:
		return seconds
	}
}
