package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/normalization"
)

// spyStore filters rows the way the SQL store does and records every query.
type spyStore struct {
	rows    []Row
	queries []Query
	err     error
}

func (s *spyStore) FindCandidates(_ context.Context, q Query) ([]Row, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	var out []Row
	for _, r := range s.rows {
		if !nameHit(r, q) {
			continue
		}
		if q.Round != "" && r.Deal.RoundType != q.Round {
			continue
		}
		if !dateHit(r, q) {
			continue
		}
		if q.AmountMin != nil || q.AmountMax != nil {
			a := r.Deal.NormalizedAmount
			if a == nil || (q.AmountMin != nil && *a < *q.AmountMin) || (q.AmountMax != nil && *a > *q.AmountMax) {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *spyStore) labels() []string {
	out := make([]string, 0, len(s.queries))
	for _, q := range s.queries {
		out = append(out, q.Label)
	}
	return out
}

func nameHit(r Row, q Query) bool {
	if q.NamePrefix == "" && len(q.NameIn) == 0 {
		return true
	}
	for _, n := range append([]string{r.NormalizedName}, r.Aliases...) {
		if q.NamePrefix != "" && strings.HasPrefix(n, q.NamePrefix) {
			return true
		}
		for _, in := range q.NameIn {
			if n == in {
				return true
			}
		}
	}
	return false
}

func dateHit(r Row, q Query) bool {
	recent := q.CreatedAfter != nil && !r.Deal.CreatedAt.Before(*q.CreatedAfter) &&
		(!q.RecentDatelessOnly || r.Deal.AnnouncedDate == nil)
	if q.DateFrom == nil {
		return q.CreatedAfter == nil || recent
	}
	d := r.Deal.AnnouncedDate
	inWindow := d != nil && !d.Before(*q.DateFrom) && !d.After(*q.DateTo)
	return inWindow || recent
}

var testNow = time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)

func amt(v int64) *int64 { return &v }

func storedRow(name string, round deals.RoundType, date *time.Time, amount *int64, created time.Time) Row {
	return Row{
		Deal: deals.Deal{
			ID:               uuid.New(),
			RoundType:        round,
			AnnouncedDate:    date,
			NormalizedAmount: amount,
			CreatedAt:        created,
		},
		CompanyName:    name,
		NormalizedName: normalization.NormalizeName(name),
	}
}

func probe(name string, round deals.RoundType, date *time.Time, amount *int64) Probe {
	return NewProbe(name, round, date, amount, testNow)
}

func TestTier0DateBoundary(t *testing.T) {
	existing := storedRow("Torq", deals.RoundSeriesD, dayPtr(2026, 1, 11), amt(140_000_000), testNow.Add(-time.Hour))
	m := NewMatcher(nil, DefaultTiers()[0])

	store := &spyStore{rows: []Row{existing}}
	got, err := m.Find(context.Background(), store, probe("Torq", deals.RoundSeriesD, dayPtr(2026, 1, 14), nil))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Tier != "tier0" || got.Row.Deal.ID != existing.Deal.ID {
		t.Fatalf("3 days apart should match at tier0, got %+v", got)
	}

	got, err = m.Find(context.Background(), store, probe("Torq", deals.RoundSeriesD, dayPtr(2026, 1, 15), nil))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("4 days apart must not match at tier0, got %+v", got)
	}
}

func TestTier0DatelessRecency(t *testing.T) {
	recent := storedRow("Torq", deals.RoundSeriesD, nil, nil, testNow.Add(-6*day))
	stale := storedRow("Torq", deals.RoundSeriesD, nil, nil, testNow.Add(-8*day))
	m := NewMatcher(nil, DefaultTiers()[0])

	got, err := m.Find(context.Background(), &spyStore{rows: []Row{recent}}, probe("Torq", deals.RoundSeriesD, nil, nil))
	if err != nil || got == nil {
		t.Fatalf("dateless records created 6 days apart should match, got %+v err=%v", got, err)
	}
	got, err = m.Find(context.Background(), &spyStore{rows: []Row{stale}}, probe("Torq", deals.RoundSeriesD, nil, nil))
	if err != nil || got != nil {
		t.Fatalf("dateless records created 8 days apart must not match, got %+v err=%v", got, err)
	}
	got, err = m.Find(context.Background(), &spyStore{rows: []Row{stale}}, probe("Torq", deals.RoundSeriesD, dayPtr(2026, 1, 19), nil))
	if err != nil || got == nil {
		t.Fatalf("one-side dateless within 14 days should match, got %+v err=%v", got, err)
	}
}

func TestTierOrderingStopsAtFirstHit(t *testing.T) {
	// Matches tier 0 (same name/round, 1 day apart) and tier 1. Amounts differ
	// by far more than any tolerance; tier 0 ignores them.
	existing := storedRow("Protege", deals.RoundSeriesA, dayPtr(2026, 1, 8), amt(30_000_000), testNow.Add(-time.Hour))
	store := &spyStore{rows: []Row{existing}}

	got, err := NewMatcher(nil).Find(context.Background(), store, probe("Protege", deals.RoundSeriesA, dayPtr(2026, 1, 9), amt(90_000_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Tier != "tier0" {
		t.Fatalf("expected tier0 match, got %+v", got)
	}
	if labels := store.labels(); len(labels) != 1 || labels[0] != "tier0" {
		t.Fatalf("later tiers must not be queried, got %v", labels)
	}
}

func TestTierCascadeOrder(t *testing.T) {
	store := &spyStore{}
	got, err := NewMatcher(nil).Find(context.Background(), store, probe("Nobody", deals.RoundSeed, dayPtr(2026, 1, 8), amt(5_000_000)))
	if err != nil || got != nil {
		t.Fatalf("expected miss, got %+v err=%v", got, err)
	}
	want := []string{"tier0", "tier4", "tier3", "tier2", "tier2.5", "tier1"}
	labels := store.labels()
	if len(labels) != len(want) {
		t.Fatalf("queried tiers %v want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("queried tiers %v want %v", labels, want)
		}
	}
}

func TestNoFalsePositivesAcrossTiers(t *testing.T) {
	pairs := [][2]string{{"Amazon", "Amazonia"}, {"OpenAI", "OpenAPI"}, {"Air", "Airbnb"}}
	d := dayPtr(2026, 1, 10)
	for _, pair := range pairs {
		existing := storedRow(pair[0], deals.RoundSeriesB, d, amt(50_000_000), testNow.Add(-time.Hour))
		store := &spyStore{rows: []Row{existing}}
		got, err := NewMatcher(nil).Find(context.Background(), store, probe(pair[1], deals.RoundSeriesB, d, amt(50_000_000)))
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got != nil {
			t.Fatalf("%q must not match %q, matched at %s", pair[1], pair[0], got.Tier)
		}
	}
}

func TestRoundTypeIsolation(t *testing.T) {
	seed := storedRow("Acme", deals.RoundSeed, dayPtr(2026, 1, 5), amt(2_000_000), testNow.Add(-time.Hour))
	store := &spyStore{rows: []Row{seed}}
	got, err := NewMatcher(nil).Find(context.Background(), store, probe("Acme", deals.RoundSeriesA, dayPtr(2026, 1, 8), amt(10_000_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("seed and series A must stay separate, matched at %s", got.Tier)
	}
}

func TestTier3FoldsAcrossRounds(t *testing.T) {
	growth := storedRow("Parloa", deals.RoundGrowth, dayPtr(2026, 1, 15), amt(350_000_000), testNow.Add(-time.Hour))
	store := &spyStore{rows: []Row{growth}}
	got, err := NewMatcher(nil).Find(context.Background(), store, probe("Parloa", deals.RoundSeriesD, dayPtr(2026, 1, 15), amt(350_000_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Tier != "tier3" {
		t.Fatalf("expected tier3 cross-round match, got %+v", got)
	}
}

func TestTier4TrailingWordVariation(t *testing.T) {
	existing := storedRow("Torq Security", deals.RoundSeriesB, dayPtr(2026, 1, 10), amt(42_000_000), testNow.Add(-time.Hour))
	store := &spyStore{rows: []Row{existing}}
	got, err := NewMatcher(nil).Find(context.Background(), store, probe("Torq", deals.RoundSeriesB, dayPtr(2026, 1, 10), amt(43_000_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Tier != "tier4" {
		t.Fatalf("expected tier4 match, got %+v", got)
	}
}

func TestTier2SameDayAnyAmount(t *testing.T) {
	existing := storedRow("Acme AI", deals.RoundSeriesA, dayPtr(2026, 1, 10), nil, testNow.Add(-time.Hour))
	store := &spyStore{rows: []Row{existing}}
	got, err := NewMatcher(nil).Find(context.Background(), store, probe("Acme", deals.RoundUnknown, dayPtr(2026, 1, 10), amt(12_000_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Tier != "tier2" {
		t.Fatalf("expected tier2 match, got %+v", got)
	}
}

func TestTier25ValuationConfusion(t *testing.T) {
	existing := storedRow("Acme", deals.RoundSeriesC, dayPtr(2026, 1, 1), amt(100_000_000), testNow.Add(-time.Hour))
	store := &spyStore{rows: []Row{existing}}

	got, err := NewMatcher(nil).Find(context.Background(), store, probe("Acme", deals.RoundSeriesC, dayPtr(2026, 1, 20), amt(1_000_000_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Tier != "tier2.5" {
		t.Fatalf("expected tier2.5 match for valuation vs round size, got %+v", got)
	}

	small := storedRow("Acme", deals.RoundSeriesC, dayPtr(2026, 1, 1), amt(10_000_000), testNow.Add(-time.Hour))
	store = &spyStore{rows: []Row{small}}
	got, err = NewMatcher(nil, DefaultTiers()[4]).Find(context.Background(), store, probe("Acme", deals.RoundSeriesC, dayPtr(2026, 1, 20), amt(80_000_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("8x ratio under $500M must not match at tier2.5")
	}
}

func TestTier1WindowTightensWithoutAmounts(t *testing.T) {
	existing := storedRow("Acme", deals.RoundSeriesA, dayPtr(2025, 10, 1), nil, testNow.Add(-100*day))
	tier1 := NewMatcher(nil, DefaultTiers()[5])

	got, err := tier1.Find(context.Background(), &spyStore{rows: []Row{existing}}, probe("Acme", deals.RoundSeriesA, dayPtr(2026, 1, 10), nil))
	if err != nil || got != nil {
		t.Fatalf("101 days apart without amounts must not match, got %+v err=%v", got, err)
	}

	existing.Deal.NormalizedAmount = amt(20_000_000)
	got, err = tier1.Find(context.Background(), &spyStore{rows: []Row{existing}}, probe("Acme", deals.RoundSeriesA, dayPtr(2026, 1, 10), amt(22_000_000)))
	if err != nil || got == nil {
		t.Fatalf("within a year and 15%% should match, got %+v err=%v", got, err)
	}
}

func TestClosestCandidateWins(t *testing.T) {
	far := storedRow("Acme", deals.RoundSeriesA, dayPtr(2025, 12, 1), nil, testNow.Add(-50*day))
	near := storedRow("Acme", deals.RoundSeriesA, dayPtr(2026, 1, 2), nil, testNow.Add(-18*day))
	store := &spyStore{rows: []Row{far, near}}
	got, err := NewMatcher(nil, DefaultTiers()[5]).Find(context.Background(), store, probe("Acme", deals.RoundSeriesA, dayPtr(2026, 1, 10), nil))
	if err != nil || got == nil {
		t.Fatalf("expected match, got %+v err=%v", got, err)
	}
	if got.Row.Deal.ID != near.Deal.ID {
		t.Fatalf("expected nearest-dated deal")
	}
}

func TestAliasResolvesRebrand(t *testing.T) {
	existing := storedRow("Meta Platforms", deals.RoundSeriesA, dayPtr(2026, 1, 10), nil, testNow.Add(-time.Hour))
	existing.Aliases = []string{"facebook"}
	got, err := NewMatcher(nil).Find(context.Background(), &spyStore{rows: []Row{existing}}, probe("Facebook", deals.RoundSeriesA, dayPtr(2026, 1, 10), nil))
	if err != nil || got == nil || got.Tier != "tier0" {
		t.Fatalf("expected alias match at tier0, got %+v err=%v", got, err)
	}
}

func TestStoreErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewMatcher(nil).Find(context.Background(), &spyStore{err: boom}, probe("Acme", deals.RoundSeed, nil, nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestNonLatinNamesMatchFuzzyTiers(t *testing.T) {
	existing := storedRow("Яндекс", deals.RoundSeriesB, dayPtr(2026, 1, 1), amt(50_000_000), testNow.Add(-19*day))
	store := &spyStore{rows: []Row{existing}}

	got, err := NewMatcher(nil).Find(context.Background(), store, probe("Яндекс", deals.RoundSeriesB, dayPtr(2026, 1, 11), amt(50_000_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Tier != "tier3" {
		t.Fatalf("expected tier3 match for Cyrillic name, got %+v", got)
	}
	for _, q := range store.queries {
		if !utf8.ValidString(q.NamePrefix) {
			t.Fatalf("%s: name prefix %q is not valid UTF-8", q.Label, q.NamePrefix)
		}
		for _, n := range q.NameIn {
			if !utf8.ValidString(n) {
				t.Fatalf("%s: name %q is not valid UTF-8", q.Label, n)
			}
		}
	}

	if !NamesMatch("Яндекс", "Яндекс AI") {
		t.Fatalf("narrow suffix after a Cyrillic name should match")
	}
	if NamesMatch("Як", "Якai") {
		t.Fatalf("two-character names must not prefix-match")
	}
}

func TestFuzzyQueryAdmitsOnlyMatchableNames(t *testing.T) {
	q := fuzzyNameQuery("tier1", probe("Datazoom", deals.RoundSeriesA, nil, nil))
	if q.NamePrefix != "datazoom" {
		t.Fatalf("prefix = %q, want the full normalized name", q.NamePrefix)
	}
	want := []string{"dat", "data", "dataz", "datazo", "datazoo"}
	if strings.Join(q.NameIn, ",") != strings.Join(want, ",") {
		t.Fatalf("NameIn = %v, want %v", q.NameIn, want)
	}

	rows := []Row{storedRow("Datazoom", deals.RoundSeriesA, dayPtr(2025, 12, 1), amt(10_000_000), testNow.Add(-50*day))}
	for i := 0; i < 250; i++ {
		rows = append(rows, storedRow(fmt.Sprintf("Datum%04d", i), deals.RoundSeriesA, dayPtr(2025, 11, 1), amt(10_000_000), testNow.Add(-300*day)))
	}
	store := &spyStore{rows: rows}
	got, err := NewMatcher(nil, DefaultTiers()[5]).Find(context.Background(), store, probe("Datazoom", deals.RoundSeriesA, dayPtr(2026, 1, 15), amt(10_500_000)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Row.CompanyName != "Datazoom" {
		t.Fatalf("expected tier1 match on Datazoom, got %+v", got)
	}
	for _, q := range store.queries {
		for _, r := range rows[1:] {
			if nameHit(r, q) {
				t.Fatalf("%s admitted unrelated name %q", q.Label, r.NormalizedName)
			}
		}
	}
}

func TestTier4PrefixIsWholeLeadingWords(t *testing.T) {
	if got := leadingWords([]string{"ai", "labs", "x"}); got != "ailabs" {
		t.Fatalf("leadingWords = %q", got)
	}
	if got := leadingWords([]string{"Як"}); got != "" {
		t.Fatalf("short single token should give no prefix, got %q", got)
	}
	if got := leadingWords([]string{"яндекс", "маркет"}); got != "яндекс" {
		t.Fatalf("leadingWords = %q", got)
	}
}
