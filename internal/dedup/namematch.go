package dedup

import (
	"strings"
	"unicode/utf8"

	"github.com/yungbote/dealwatch-backend/internal/normalization"
)

const minPrefixLen = 3

// NamesMatch reports whether two company names denote the same company. It
// prefers false negatives: only exact normalized equality or a prefix whose
// remainder is a narrow suffix ("acme" / "acmeai") counts.
func NamesMatch(a, b string) bool {
	return normalizedMatch(normalization.NormalizeName(a), normalization.NormalizeName(b))
}

// NamesMatchWithAliases also tries every alias on either side, so a company
// keeps matching under a name it used before a rebrand.
func NamesMatchWithAliases(a, b string, aliasesA, aliasesB []string) bool {
	left := append([]string{a}, aliasesA...)
	right := append([]string{b}, aliasesB...)
	for _, l := range left {
		nl := normalization.NormalizeName(l)
		for _, r := range right {
			if normalizedMatch(nl, normalization.NormalizeName(r)) {
				return true
			}
		}
	}
	return false
}

func normalizedMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if utf8.RuneCountInString(short) < minPrefixLen || !strings.HasPrefix(long, short) {
		return false
	}
	return normalization.IsNarrowSuffix(long[len(short):])
}

// leadingWordsMatch is the tier 4 name shape: both names start with the same
// whole words, and those words cover at least 60% of the shorter name.
func leadingWordsMatch(a, b []string) bool {
	shared := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
		shared += utf8.RuneCountInString(a[i])
	}
	if shared < minPrefixLen {
		return false
	}
	shorter := joinedLen(a)
	if l := joinedLen(b); l < shorter {
		shorter = l
	}
	return shared*10 >= shorter*6
}

func joinedLen(tokens []string) int {
	n := 0
	for _, t := range tokens {
		n += utf8.RuneCountInString(t)
	}
	return n
}
