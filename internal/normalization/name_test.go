package normalization

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Labs AI", "acme"},
		{"  The Acme Corporation ", "acme"},
		{"Torq", "torq"},
		{"Torq, Inc.", "torq"},
		{"OpenAI", "openai"},
		{"Open AI", "open"},
		{"Protégé", "protégé"},
		{"Acme Technologies Pvt. Ltd.", "acme"},
		{"Labs", "labs"},
		{"AI Labs", "ai"},
		{"Parloa GmbH", "parloa"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeNameFixpoint(t *testing.T) {
	inputs := []string{
		"Acme Labs AI", "The The Co", "the-trade desk", "Space X", "Tradly", "Hello Cloud Ops",
		"Meta Platforms, Inc.", "İstanbul Tech", "x", "Group Holdings", "A.I. Labs LLC",
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		if twice := NormalizeName(once); twice != once {
			t.Fatalf("not a fixpoint for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeNameWithNarrowSetStripsLess(t *testing.T) {
	if got := NormalizeNameWith("Acme Cloud", NarrowSuffixes); got != "acmecloud" {
		t.Fatalf("narrow normalize: got %q", got)
	}
	if got := NormalizeName("Acme Cloud"); got != "acme" {
		t.Fatalf("broad normalize: got %q", got)
	}
}

func TestNameTokens(t *testing.T) {
	got := NameTokens("Torq Security, Inc.")
	if len(got) != 2 || got[0] != "torq" || got[1] != "security" {
		t.Fatalf("unexpected tokens: %v", got)
	}
}

func TestIsNarrowSuffix(t *testing.T) {
	if !IsNarrowSuffix("ai") || IsNarrowSuffix("data") || IsNarrowSuffix("cloud") {
		t.Fatalf("narrow suffix membership wrong")
	}
}
