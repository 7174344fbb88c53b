package deals

import (
	"regexp"
	"strings"
)

// RoundType is the closed classification of a financing event.
type RoundType string

const (
	RoundPreSeed     RoundType = "pre_seed"
	RoundSeed        RoundType = "seed"
	RoundSeedA       RoundType = "seed_a"
	RoundSeriesA     RoundType = "series_a"
	RoundSeriesB     RoundType = "series_b"
	RoundSeriesC     RoundType = "series_c"
	RoundSeriesD     RoundType = "series_d"
	RoundSeriesEPlus RoundType = "series_e_plus"
	RoundGrowth      RoundType = "growth"
	RoundDebt        RoundType = "debt"
	RoundUnknown     RoundType = "unknown"
)

var AllRoundTypes = []RoundType{
	RoundPreSeed, RoundSeed, RoundSeedA,
	RoundSeriesA, RoundSeriesB, RoundSeriesC, RoundSeriesD, RoundSeriesEPlus,
	RoundGrowth, RoundDebt, RoundUnknown,
}

func (r RoundType) Valid() bool {
	for _, rt := range AllRoundTypes {
		if r == rt {
			return true
		}
	}
	return false
}

var (
	roundSeparators = regexp.MustCompile(`[\s\-_/]+`)
	seriesLetter    = regexp.MustCompile(`^series([a-z])\+?$`)
)

// ParseRoundType maps free-text round labels from extractors ("Series A",
// "series-d", "Seed+A", "Pre-Seed", "Series F") onto the closed enum. Anything
// unrecognised is RoundUnknown.
func ParseRoundType(raw string) RoundType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return RoundUnknown
	}
	if rt := RoundType(s); rt.Valid() {
		return rt
	}
	compact := roundSeparators.ReplaceAllString(s, "")
	compact = strings.TrimSuffix(compact, "round")
	compact = strings.TrimSuffix(compact, "funding")
	compact = strings.TrimSuffix(compact, "financing")

	switch compact {
	case "preseed", "angel":
		return RoundPreSeed
	case "seed":
		return RoundSeed
	case "seed+a", "seeda", "seedandseriesa", "seed+seriesa":
		return RoundSeedA
	case "growth", "growthequity", "lategrowth", "privateequity", "pe":
		return RoundGrowth
	case "debt", "venturedebt", "credit", "creditfacility", "loan", "debtfinancing":
		return RoundDebt
	}
	if m := seriesLetter.FindStringSubmatch(compact); m != nil {
		switch m[1] {
		case "a":
			return RoundSeriesA
		case "b":
			return RoundSeriesB
		case "c":
			return RoundSeriesC
		case "d":
			return RoundSeriesD
		default:
			return RoundSeriesEPlus
		}
	}
	return RoundUnknown
}
