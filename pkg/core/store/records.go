package store

import (
	"fmt"

	"tmts_oracle/pkg/core/metrics"
)

// DefaultPeriodField is the record key holding the period label when the
// catalog does not name one.
const DefaultPeriodField = metrics.PeriodKeyDate

func periodFieldOr(field string) string {
	if field == "" {
		return DefaultPeriodField
	}
	return field
}

// project keeps only the requested fields of each record. Missing fields are
// left out so the engine can report which one is absent. No fields keeps everything.
func project(records []metrics.Record, fields []string) []metrics.Record {
	if len(fields) == 0 {
		return records
	}
	out := make([]metrics.Record, len(records))
	for i, r := range records {
		sub := make(metrics.Record, len(fields))
		for _, f := range fields {
			if v, ok := r[f]; ok {
				sub[f] = v
			}
		}
		out[i] = sub
	}
	return out
}

func periodOf(r metrics.Record, field string) (string, error) {
	v, ok := r[field]
	if !ok {
		return "", fmt.Errorf("record has no %q field: %w", field, metrics.ErrInvalidArgument)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("record %q field is %T, want a label: %w", field, v, metrics.ErrInvalidArgument)
	}
	return s, nil
}
