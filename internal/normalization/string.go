package normalization

import (
	"strings"
)

func ParseInputString(input string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	return normalized
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
