package normalization

import (
	"strings"
	"unicode"
)

// BroadSuffixes are stripped when building identity keys. Over-stripping here
// only merges clusters, so the list is generous.
var BroadSuffixes = []string{
	"incorporated", "inc",
	"corporation", "corp",
	"company", "co",
	"llc", "l l c",
	"limited", "ltd",
	"private limited", "pvt ltd", "pvt", "pte ltd", "pte",
	"plc", "gmbh", "ag", "sa", "sas", "bv", "nv", "pty ltd", "pty",
	"technologies", "technology", "tech",
	"labs", "lab",
	"ai", "cloud", "ops",
	"io", "app", "apps", "hq",
	"systems", "software", "solutions",
	"group", "holdings",
	"x", "go", "ly",
}

// NarrowSuffixes is the curated remainder set for prefix name matching. It must
// stay small: "meta" vs "metadata" may never match.
var NarrowSuffixes = []string{
	"inc", "corp", "co", "llc", "ltd",
	"labs", "lab", "hq", "ai", "io", "app",
	"technologies", "tech",
	"group", "holdings",
}

// NormalizeName reduces a raw company name to a lowercase alphanumeric token
// using the broad suffix list. NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(raw string) string {
	return NormalizeNameWith(raw, BroadSuffixes)
}

// NormalizeNameWith is NormalizeName with a caller-supplied suffix list.
func NormalizeNameWith(raw string, suffixes []string) string {
	return strings.Join(nameTokens(raw, suffixes), "")
}

// NameTokens returns the words left after suffix stripping, in order.
func NameTokens(raw string) []string {
	return nameTokens(raw, BroadSuffixes)
}

func nameTokens(raw string, suffixes []string) []string {
	s := ParseInputString(raw)
	s = strings.TrimPrefix(s, "the ")
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return nil
	}
	split := splitSuffixes(suffixes)
	for len(tokens) > 1 {
		n := longestTrailingSuffix(tokens, split)
		if n == 0 || n >= len(tokens) {
			break
		}
		tokens = tokens[:len(tokens)-n]
	}
	return tokens
}

func splitSuffixes(suffixes []string) [][]string {
	out := make([][]string, 0, len(suffixes))
	for _, s := range suffixes {
		if f := strings.Fields(ParseInputString(s)); len(f) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// longestTrailingSuffix returns how many trailing tokens the longest matching
// suffix covers, 0 when nothing matches.
func longestTrailingSuffix(tokens []string, suffixes [][]string) int {
	bestTokens, bestLen := 0, 0
	for _, suf := range suffixes {
		if len(suf) > len(tokens) {
			continue
		}
		tail := tokens[len(tokens)-len(suf):]
		match := true
		chars := 0
		for i := range suf {
			if tail[i] != suf[i] {
				match = false
				break
			}
			chars += len(suf[i])
		}
		if match && chars > bestLen {
			bestTokens, bestLen = len(suf), chars
		}
	}
	return bestTokens
}

// IsNarrowSuffix reports whether s, already normalized, is in the narrow set.
func IsNarrowSuffix(s string) bool {
	for _, suf := range NarrowSuffixes {
		if s == suf {
			return true
		}
	}
	return false
}
