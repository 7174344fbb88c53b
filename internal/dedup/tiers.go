package dedup

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yungbote/dealwatch-backend/internal/domain/deals"
	"github.com/yungbote/dealwatch-backend/internal/normalization"
)

const (
	day = 24 * time.Hour

	candidateLimit = 200

	valuationConfusionFloor int64 = 500_000_000
)

// Probe is an incoming record reduced to the values tiers compare on.
type Probe struct {
	Name           string
	NormalizedName string
	Tokens         []string
	Round          deals.RoundType
	Date           *time.Time
	Amount         *int64
	Now            time.Time
}

// NewProbe normalizes a candidate's identity fields.
func NewProbe(name string, round deals.RoundType, date *time.Time, amount *int64, now time.Time) Probe {
	return Probe{
		Name:           name,
		NormalizedName: normalization.NormalizeName(name),
		Tokens:         normalization.NameTokens(name),
		Round:          round,
		Date:           date,
		Amount:         amount,
		Now:            now,
	}
}

// Tier is one matching strategy. Find returns nil when the tier has no opinion.
type Tier struct {
	Name string
	Find func(ctx context.Context, store Store, p Probe) (*Row, error)
}

// DefaultTiers returns the cascade in evaluation order.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "tier0", Find: findTier0},
		{Name: "tier4", Find: findTier4},
		{Name: "tier3", Find: findTier3},
		{Name: "tier2", Find: findTier2},
		{Name: "tier2.5", Find: findTier25},
		{Name: "tier1", Find: findTier1},
	}
}

// Tier 0: same normalized name, same round, dates within 3 days. Undated
// records fall back to creation recency: 7 days when both are undated, 14 when
// only one is.
func findTier0(ctx context.Context, store Store, p Probe) (*Row, error) {
	if p.NormalizedName == "" {
		return nil, nil
	}
	q := Query{Label: "tier0", NameIn: []string{p.NormalizedName}, Round: p.Round, CreatedAfter: ago(p.Now, 14*day)}
	if p.Date != nil {
		q.DateFrom, q.DateTo = window(*p.Date, 3*day)
		q.RecentDatelessOnly = true
	}
	return pick(ctx, store, q, p, func(r Row) bool {
		if !exactName(p, r) || r.Deal.RoundType != p.Round {
			return false
		}
		switch {
		case p.Date != nil && r.Deal.AnnouncedDate != nil:
			return withinDays(*p.Date, *r.Deal.AnnouncedDate, 3)
		case p.Date == nil && r.Deal.AnnouncedDate == nil:
			return createdSince(r, p.Now, 7*day)
		default:
			return createdSince(r, p.Now, 14*day)
		}
	})
}

// Tier 4: leading-word name match, same round, same date, amounts within 5%.
func findTier4(ctx context.Context, store Store, p Probe) (*Row, error) {
	lead := leadingWords(p.Tokens)
	if p.Date == nil || p.Amount == nil || lead == "" {
		return nil, nil
	}
	lo, hi := amountRange(*p.Amount, 0.05)
	from, to := window(*p.Date, 0)
	q := Query{
		Label:      "tier4",
		NamePrefix: lead,
		Round:      p.Round,
		DateFrom:   from,
		DateTo:     to,
		AmountMin:  &lo,
		AmountMax:  &hi,
	}
	return pick(ctx, store, q, p, func(r Row) bool {
		return r.Deal.RoundType == p.Round &&
			leadingWordsMatch(p.Tokens, normalization.NameTokens(r.CompanyName)) &&
			sameDay(p.Date, r.Deal.AnnouncedDate) &&
			amountsWithin(p.Amount, r.Deal.NormalizedAmount, 0.05)
	})
}

// Tier 3: fuzzy name in any round, dates within 30 days, amounts within 10%.
// This is the only tier that folds records across round types.
func findTier3(ctx context.Context, store Store, p Probe) (*Row, error) {
	if p.Amount == nil {
		return nil, nil
	}
	lo, hi := amountRange(*p.Amount, 0.10)
	q := fuzzyQuery("tier3", p, 30*day, 30*day)
	q.AmountMin, q.AmountMax = &lo, &hi
	return pick(ctx, store, q, p, func(r Row) bool {
		return fuzzyName(p, r) &&
			dateOrRecent(p, r, 30, 30*day) &&
			amountsWithin(p.Amount, r.Deal.NormalizedAmount, 0.10)
	})
}

// Tier 2: fuzzy name, any round and amount, same announced date.
func findTier2(ctx context.Context, store Store, p Probe) (*Row, error) {
	if p.Date == nil {
		return nil, nil
	}
	q := fuzzyNameQuery("tier2", p)
	q.DateFrom, q.DateTo = window(*p.Date, 0)
	return pick(ctx, store, q, p, func(r Row) bool {
		return fuzzyName(p, r) && sameDay(p.Date, r.Deal.AnnouncedDate)
	})
}

// Tier 2.5: fuzzy name, same round, within 30 days. Known amounts may differ up
// to 5x, or by any factor once the larger exceeds $500M, since one source often
// quotes the valuation instead of the round size.
func findTier25(ctx context.Context, store Store, p Probe) (*Row, error) {
	q := fuzzyQuery("tier2.5", p, 30*day, 30*day)
	q.Round = p.Round
	return pick(ctx, store, q, p, func(r Row) bool {
		return fuzzyName(p, r) &&
			r.Deal.RoundType == p.Round &&
			dateOrRecent(p, r, 30, 30*day) &&
			ratioPlausible(p.Amount, r.Deal.NormalizedAmount)
	})
}

// Tier 1: fuzzy name, same round, within a year (60 days when neither side has
// an amount), amounts within 15% when both are known.
func findTier1(ctx context.Context, store Store, p Probe) (*Row, error) {
	q := fuzzyQuery("tier1", p, 365*day, 90*day)
	q.Round = p.Round
	return pick(ctx, store, q, p, func(r Row) bool {
		if !fuzzyName(p, r) || r.Deal.RoundType != p.Round {
			return false
		}
		days := 365
		if p.Amount == nil && r.Deal.NormalizedAmount == nil {
			days = 60
		}
		return dateOrRecent(p, r, days, 90*day) && amountsWithin(p.Amount, r.Deal.NormalizedAmount, 0.15)
	})
}

func fuzzyQuery(label string, p Probe, span, recency time.Duration) Query {
	q := fuzzyNameQuery(label, p)
	q.CreatedAfter = ago(p.Now, recency)
	if p.Date != nil {
		q.DateFrom, q.DateTo = window(*p.Date, span)
		q.RecentDatelessOnly = true
	}
	return q
}

// pick runs the query and returns the closest row that passes keep: nearest
// date, then nearest amount, then oldest.
func pick(ctx context.Context, store Store, q Query, p Probe, keep func(Row) bool) (*Row, error) {
	if q.Limit == 0 {
		q.Limit = candidateLimit
	}
	rows, err := store.FindCandidates(ctx, q)
	if err != nil {
		return nil, err
	}
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	sort.SliceStable(kept, func(i, j int) bool {
		di, dj := dateDistance(p.Date, kept[i].Deal.AnnouncedDate), dateDistance(p.Date, kept[j].Deal.AnnouncedDate)
		if di != dj {
			return di < dj
		}
		ai, aj := amountDistance(p.Amount, kept[i].Deal.NormalizedAmount), amountDistance(p.Amount, kept[j].Deal.NormalizedAmount)
		if ai != aj {
			return ai < aj
		}
		return kept[i].Deal.CreatedAt.Before(kept[j].Deal.CreatedAt)
	})
	return &kept[0], nil
}

// fuzzyNameQuery admits exactly the names NamesMatch can accept: the probe
// name extended by anything, or a prefix of it at least minPrefixLen long.
func fuzzyNameQuery(label string, p Probe) Query {
	q := Query{Label: label, NamePrefix: p.NormalizedName}
	runes := []rune(p.NormalizedName)
	for n := minPrefixLen; n < len(runes); n++ {
		q.NameIn = append(q.NameIn, string(runes[:n]))
	}
	return q
}

// leadingWords joins whole leading tokens until they reach minPrefixLen
// characters; every tier 4 match starts with this string.
func leadingWords(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t)
		if utf8.RuneCountInString(b.String()) >= minPrefixLen {
			return b.String()
		}
	}
	return ""
}

func exactName(p Probe, r Row) bool {
	if p.NormalizedName == "" {
		return false
	}
	if p.NormalizedName == r.NormalizedName {
		return true
	}
	for _, a := range r.Aliases {
		if p.NormalizedName == a {
			return true
		}
	}
	return false
}

func fuzzyName(p Probe, r Row) bool {
	return NamesMatchWithAliases(p.NormalizedName, r.NormalizedName, nil, r.Aliases)
}

// dateOrRecent accepts dated pairs within days of each other, otherwise falls
// back to the stored row having been created within recency.
func dateOrRecent(p Probe, r Row, days int, recency time.Duration) bool {
	if p.Date != nil && r.Deal.AnnouncedDate != nil {
		return withinDays(*p.Date, *r.Deal.AnnouncedDate, days)
	}
	return createdSince(r, p.Now, recency)
}

func withinDays(a, b time.Time, days int) bool {
	return absDuration(deals.TruncateDay(a).Sub(deals.TruncateDay(b))) <= time.Duration(days)*day
}

func sameDay(a, b *time.Time) bool {
	return a != nil && b != nil && withinDays(*a, *b, 0)
}

func createdSince(r Row, now time.Time, d time.Duration) bool {
	return !r.Deal.CreatedAt.Before(now.Add(-d))
}

// amountsWithin is true when either amount is unknown or |a-b|/max(a,b) <= tol.
func amountsWithin(a, b *int64, tol float64) bool {
	if a == nil || b == nil {
		return true
	}
	x, y := float64(*a), float64(*b)
	m := math.Max(x, y)
	if m == 0 {
		return true
	}
	return math.Abs(x-y)/m <= tol
}

func ratioPlausible(a, b *int64) bool {
	if a == nil || b == nil || *a <= 0 || *b <= 0 {
		return true
	}
	lo, hi := *a, *b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi > valuationConfusionFloor {
		return true
	}
	return hi <= 5*lo
}

// amountRange widens a so that every b with |a-b|/max(a,b) <= tol is inside.
func amountRange(a int64, tol float64) (int64, int64) {
	lo := int64(math.Floor(float64(a) * (1 - tol)))
	hi := int64(math.Ceil(float64(a) / (1 - tol)))
	return lo, hi
}

func window(d time.Time, span time.Duration) (*time.Time, *time.Time) {
	from := deals.TruncateDay(d).Add(-span)
	to := deals.TruncateDay(d).Add(span)
	return &from, &to
}

func ago(now time.Time, d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func dateDistance(a, b *time.Time) time.Duration {
	if a == nil || b == nil {
		return time.Duration(math.MaxInt64)
	}
	return absDuration(deals.TruncateDay(*a).Sub(deals.TruncateDay(*b)))
}

func amountDistance(a, b *int64) int64 {
	if a == nil || b == nil {
		return math.MaxInt64
	}
	d := *a - *b
	if d < 0 {
		d = -d
	}
	return d
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
