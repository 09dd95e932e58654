package ingest

import (
	"errors"
	"testing"

	"tmts_oracle/pkg/core/metrics"
)

func TestMergeRecords(t *testing.T) {
	existing := []metrics.Record{
		{"date": "2Q22", "TotalRevenues": 16934.0, "GrossProfit": 4234.0},
		{"date": "1Q22", "TotalRevenues": 18756.0},
	}
	incoming := []metrics.Record{
		{"date": "2Q22", "TotalRevenues": 16935.0},
		{"date": "3Q22", "TotalRevenues": 21454.0},
	}

	merged, err := MergeRecords(existing, incoming, "date")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(merged))
	}
	want := []string{"3Q22", "2Q22", "1Q22"}
	for i, w := range want {
		if merged[i]["date"] != w {
			t.Errorf("Record %d: expected %s, got %v", i, w, merged[i]["date"])
		}
	}
	if merged[1]["TotalRevenues"] != 16935.0 {
		t.Errorf("Expected incoming value to win, got %v", merged[1]["TotalRevenues"])
	}
	if merged[1]["GrossProfit"] != 4234.0 {
		t.Errorf("Expected existing field kept, got %v", merged[1]["GrossProfit"])
	}
}

func TestMergeRecordsRejectsBadLabels(t *testing.T) {
	_, err := MergeRecords(nil, []metrics.Record{{"TotalRevenues": 1.0}}, "date")
	if !errors.Is(err, metrics.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	_, err = MergeRecords(nil, []metrics.Record{{"date": "FY22"}}, "date")
	if !errors.Is(err, metrics.ErrParse) {
		t.Errorf("Expected ErrParse, got %v", err)
	}
}
