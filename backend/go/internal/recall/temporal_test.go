package recall

import (
	"testing"
	"time"
)

func TestDetectTemporalRangeLastSeason(t *testing.T) {
	now := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	r := DetectTemporalRange("what happened last winter", now)
	if r == nil {
		t.Fatal("expected a range for 'last winter'")
	}
	wantStart := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(wantStart) {
		t.Errorf("expected start %v, got %v", wantStart, r.Start)
	}
	if r.End.After(now) {
		t.Errorf("expected the most recently completed winter, got an end in the future: %v", r.End)
	}
}

func TestDetectTemporalRangeBareMonthYear(t *testing.T) {
	now := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	r := DetectTemporalRange("things noted in March 2024", now)
	if r == nil {
		t.Fatal("expected a range for 'March 2024'")
	}
	wantStart := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC)
	if !r.Start.Equal(wantStart) || !r.End.Equal(wantEnd) {
		t.Errorf("expected [%v, %v], got [%v, %v]", wantStart, wantEnd, r.Start, r.End)
	}
}

func TestDetectTemporalRangeBareYear(t *testing.T) {
	now := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	r := DetectTemporalRange("anything from 2022", now)
	if r == nil {
		t.Fatal("expected a range for a bare year")
	}
	wantStart := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2022, time.December, 31, 23, 59, 59, 0, time.UTC)
	if !r.Start.Equal(wantStart) || !r.End.Equal(wantEnd) {
		t.Errorf("expected [%v, %v], got [%v, %v]", wantStart, wantEnd, r.Start, r.End)
	}
}

func TestDetectTemporalRangeBareYearNotConfusedWithMonthYear(t *testing.T) {
	now := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	r := DetectTemporalRange("things noted in March 2024", now)
	if r == nil {
		t.Fatal("expected March 2024 to resolve")
	}
	if r.Start.Month() != time.March {
		t.Errorf("expected the month-year form to win over the bare-year fallback, got %v", r.Start)
	}
}

func TestDetectTemporalRangeAmbiguousYieldsNil(t *testing.T) {
	now := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	cases := []string{
		"what happened in June",
		"anything between March and May",
		"tell me about last week",
		"no temporal expression here at all",
	}
	for _, text := range cases {
		if r := DetectTemporalRange(text, now); r != nil {
			t.Errorf("expected %q to yield nil (ambiguous or unrecognized), got %v", text, r)
		}
	}
}
