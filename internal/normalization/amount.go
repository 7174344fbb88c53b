package normalization

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

// MinAmountKey is the smallest normalized amount that receives an amount dedup key.
const MinAmountKey int64 = 250_000

var placeholderAmounts = map[string]struct{}{
	"": {}, "undisclosed": {}, "unknown": {}, "n/a": {}, "na": {}, "tbd": {}, "tba": {},
	"not disclosed": {}, "none": {}, "null": {}, "nil": {}, "-": {}, "--": {}, "—": {},
	"?": {}, "unspecified": {}, "confidential": {}, "not available": {}, "pending": {},
}

// IsPlaceholderAmount reports whether raw carries no amount information.
func IsPlaceholderAmount(raw string) bool {
	s := collapseSpace(ParseInputString(raw))
	if _, ok := placeholderAmounts[s]; ok {
		return true
	}
	return strings.Contains(s, "undisclosed") || strings.Contains(s, "not disclosed")
}

var (
	currencySymbols = strings.NewReplacer("$", " ", "€", " ", "£", " ", "¥", " ", "₹", " ", ",", "")
	currencyCodes   = regexp.MustCompile(`\b(usd|us|eur|euros?|gbp|inr|rs|dollars?|rupees?)\b\.?`)
	approxPrefix    = regexp.MustCompile(`^(approximately|approx\.?|about|around|roughly|nearly|almost|over|more than|up to|upto|at least|some|circa|an estimated|estimated|~|>|<|\+)\s*`)
	amountShape     = regexp.MustCompile(`^(\d+(?:\.\d+)?)(?:\s*(?:-|–|—|to)\s*\d+(?:\.\d+)?)?\s*([a-z]+)?`)
)

var multipliers = map[string]int64{
	"million": 1_000_000, "millions": 1_000_000, "mn": 1_000_000, "mm": 1_000_000, "m": 1_000_000, "mil": 1_000_000,
	"billion": 1_000_000_000, "billions": 1_000_000_000, "bn": 1_000_000_000, "b": 1_000_000_000,
	"thousand": 1_000, "k": 1_000,
	"crore": 120_500, "crores": 120_500, "cr": 120_500,
	"lakh": 1_205, "lakhs": 1_205, "lac": 1_205, "lacs": 1_205,
}

// AmountParser turns free-text funding amounts into whole USD.
type AmountParser struct {
	log *logger.Logger
}

func NewAmountParser(log *logger.Logger) *AmountParser {
	if log == nil {
		log = logger.NewNop()
	}
	return &AmountParser{log: log.With("component", "AmountParser")}
}

// ParseAmount parses without logging.
func ParseAmount(raw string) (int64, bool) {
	return NewAmountParser(nil).Parse(raw)
}

// Parse returns the amount in USD. ok is false for placeholders and anything
// that does not parse; it never fails harder than that.
func (p *AmountParser) Parse(raw string) (int64, bool) {
	if IsPlaceholderAmount(raw) {
		return 0, false
	}
	s := ParseInputString(raw)
	s = currencySymbols.Replace(s)
	s = currencyCodes.ReplaceAllString(s, " ")
	s = collapseSpace(s)
	for {
		next := strings.TrimSpace(approxPrefix.ReplaceAllString(s, ""))
		if next == s {
			break
		}
		s = next
	}

	m := amountShape.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num, err := decimal.NewFromString(m[1])
	if err != nil {
		return 0, false
	}

	if unit := m[2]; unit != "" {
		mult, ok := multipliers[unit]
		if !ok {
			return 0, false
		}
		return positive(num.Mul(decimal.NewFromInt(mult)))
	}

	switch {
	case num.LessThan(decimal.NewFromInt(1_000)):
		return positive(num.Mul(decimal.NewFromInt(1_000_000)))
	case num.LessThan(decimal.NewFromInt(10_000)):
		return positive(num)
	case num.LessThan(decimal.NewFromInt(1_000_000)):
		p.log.Warn("ambiguous amount magnitude, keeping literal dollars", "raw", raw, "value", num.String())
		return positive(num)
	default:
		return positive(num)
	}
}

func positive(d decimal.Decimal) (int64, bool) {
	v := d.IntPart()
	if v <= 0 {
		return 0, false
	}
	return v, true
}
