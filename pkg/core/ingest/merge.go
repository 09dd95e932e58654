package ingest

import (
	"fmt"
	"sort"

	"tmts_oracle/pkg/core/metrics"
)

// MergeRecords folds incoming records into existing ones by period label.
// Fields from incoming win; fields only present in existing are kept.
// The result runs newest first.
func MergeRecords(existing, incoming []metrics.Record, periodField string) ([]metrics.Record, error) {
	byPeriod := make(map[string]metrics.Record, len(existing)+len(incoming))
	var labels []string
	add := func(r metrics.Record) error {
		label, ok := r[periodField].(string)
		if !ok {
			return fmt.Errorf("record without %q label: %w", periodField, metrics.ErrInvalidArgument)
		}
		cur, seen := byPeriod[label]
		if !seen {
			cur = metrics.Record{}
			byPeriod[label] = cur
			labels = append(labels, label)
		}
		for k, v := range r {
			cur[k] = v
		}
		return nil
	}
	for _, r := range existing {
		if err := add(r); err != nil {
			return nil, err
		}
	}
	for _, r := range incoming {
		if err := add(r); err != nil {
			return nil, err
		}
	}

	quarters := make(map[string]metrics.Quarter, len(labels))
	for _, l := range labels {
		q, err := metrics.ParseQuarter(l)
		if err != nil {
			return nil, err
		}
		quarters[l] = q
	}
	sort.SliceStable(labels, func(i, j int) bool { return quarters[labels[j]].Before(quarters[labels[i]]) })

	out := make([]metrics.Record, len(labels))
	for i, l := range labels {
		out[i] = byPeriod[l]
	}
	return out, nil
}
