package speech

import (
	"testing"
	"time"
)

func TestParseExtraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantAmount float64
		wantTime   string
	}{
		{
			name:       "both fields extracted",
			raw:        `{"amount": 120, "time": "2026-08-31 14:30:00"}`,
			wantAmount: 120,
			wantTime:   "2026-08-31 14:30:00",
		},
		{
			name:       "amount sentinel",
			raw:        `{"amount": -1, "time": "2026-08-31 14:30:00"}`,
			wantAmount: -1,
			wantTime:   "2026-08-31 14:30:00",
		},
		{
			name:       "time sentinel as string",
			raw:        `{"amount": 90, "time": "-1"}`,
			wantAmount: 90,
			wantTime:   "-1",
		},
		{
			name:       "time sentinel as number",
			raw:        `{"amount": 90, "time": -1}`,
			wantAmount: 90,
			wantTime:   "-1",
		},
		{
			name:       "missing fields default to sentinels",
			raw:        `{}`,
			wantAmount: -1,
			wantTime:   "-1",
		},
		{
			name:       "fractional amount",
			raw:        `{"amount": 62.5, "time": "-1"}`,
			wantAmount: 62.5,
			wantTime:   "-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseExtraction(tt.raw)
			if err != nil {
				t.Fatalf("parseExtraction(%q) error = %v", tt.raw, err)
			}
			if got.Amount != tt.wantAmount {
				t.Errorf("Amount = %v, want %v", got.Amount, tt.wantAmount)
			}
			if got.Time != tt.wantTime {
				t.Errorf("Time = %q, want %q", got.Time, tt.wantTime)
			}
		})
	}
}

func TestParseExtractionMalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := parseExtraction("not json"); err == nil {
		t.Error("parseExtraction() error = nil, want parse failure")
	}
}

func TestExtractionHasAmount(t *testing.T) {
	t.Parallel()

	if (&Extraction{Amount: -1}).HasAmount() {
		t.Error("HasAmount() = true for sentinel")
	}
	if !(&Extraction{Amount: 0}).HasAmount() {
		t.Error("HasAmount() = false for zero amount")
	}
	if !(&Extraction{Amount: 80}).HasAmount() {
		t.Error("HasAmount() = false for positive amount")
	}
}

func TestExtractionOccurredAt(t *testing.T) {
	t.Parallel()

	e := &Extraction{Time: "2026-08-31 14:30:00"}
	got, ok := e.OccurredAt("America/New_York")
	if !ok {
		t.Fatal("OccurredAt() ok = false")
	}

	loc, _ := time.LoadLocation("America/New_York")
	want := time.Date(2026, 8, 31, 14, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("OccurredAt() = %v, want %v", got, want)
	}

	if _, ok := (&Extraction{Time: UnknownValue}).OccurredAt("America/New_York"); ok {
		t.Error("OccurredAt() ok = true for sentinel")
	}
	if _, ok := (&Extraction{Time: "yesterday-ish"}).OccurredAt("America/New_York"); ok {
		t.Error("OccurredAt() ok = true for unparseable time")
	}
}
