package filings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
)

func TestLoadStaticLooksUpByNormalizedNameAndRound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filings.yaml")
	doc := `filings:
  - company: "Orbital Labs, Inc."
    round: "Series A"
    amount: "$12.4M"
    date: "2026-01-04"
    reference: "form-d-0001"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := LoadStatic(path)
	if err != nil {
		t.Fatalf("LoadStatic: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("entries: want 1 got %d", s.Len())
	}

	o, err := s.Lookup(context.Background(), deals.Candidate{Company: "Orbital", Round: "series_a"})
	if err != nil || o == nil {
		t.Fatalf("Lookup: override=%v err=%v", o, err)
	}
	if o.RawAmount != "$12.4M" || o.Reference != "form-d-0001" {
		t.Fatalf("unexpected override %+v", o)
	}
	if o.AnnouncedDate == nil || !o.AnnouncedDate.Equal(time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date: got %v", o.AnnouncedDate)
	}

	if o, _ := s.Lookup(context.Background(), deals.Candidate{Company: "Orbital", Round: "seed"}); o != nil {
		t.Fatalf("different round must not match")
	}
}

func TestNewStaticRejectsBadEntries(t *testing.T) {
	if _, err := NewStatic([]Entry{{Company: " "}}); err == nil {
		t.Fatalf("want error for empty company")
	}
	if _, err := NewStatic([]Entry{{Company: "Acme", Date: "someday"}}); err == nil {
		t.Fatalf("want error for bad date")
	}
}

func TestNopHasNoFilings(t *testing.T) {
	if o, err := (Nop{}).Lookup(context.Background(), deals.Candidate{Company: "Acme"}); o != nil || err != nil {
		t.Fatalf("Nop: %v %v", o, err)
	}
}
