package metrics

import "errors"

var (
	// ErrInvalidArgument reports a bad timescale, a missing field or an unusable input series.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrParse reports a period label the year extractor cannot read.
	ErrParse = errors.New("parse error")
	// ErrNotImplemented is returned by catalog entries that have no formula yet.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUnknownMetric is returned when a metric name is not in the catalog.
	ErrUnknownMetric = errors.New("unknown metric")
)
