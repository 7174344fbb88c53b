package deals

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCandidateDateDecoding(t *testing.T) {
	cases := []struct {
		raw      string
		want     *time.Time
		unparsed string
	}{
		{raw: `"2026-01-11"`, want: &time.Time{}},
		{raw: `"2026-01-11T18:30:00Z"`, want: &time.Time{}},
		{raw: `"mid January 2026"`, unparsed: "mid January 2026"},
		{raw: `20260111`, unparsed: "20260111"},
		{raw: `""`},
		{raw: `null`},
	}
	day := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)
	for _, tc := range cases {
		var c Candidate
		if err := json.Unmarshal([]byte(`{"company":"Torq","announced_date":`+tc.raw+`}`), &c); err != nil {
			t.Fatalf("%s: decode: %v", tc.raw, err)
		}
		got := c.AnnouncedDate.Ptr()
		if tc.want != nil {
			if got == nil || !got.Equal(day) {
				t.Fatalf("%s: date = %v, want %v", tc.raw, got, day)
			}
		} else if got != nil {
			t.Fatalf("%s: expected undated, got %v", tc.raw, got)
		}
		if u := c.AnnouncedDate.Unparsed(); u != tc.unparsed {
			t.Fatalf("%s: unparsed = %q, want %q", tc.raw, u, tc.unparsed)
		}
	}
}
