package envutil

import (
	"testing"
	"time"
)

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("DW_TEST_DUR", "45")
	if got := Duration("DW_TEST_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("bare seconds: got=%s", got)
	}
	t.Setenv("DW_TEST_DUR", "1m30s")
	if got := Duration("DW_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("go duration: got=%s", got)
	}
	t.Setenv("DW_TEST_DUR", "soon")
	if got := Duration("DW_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("fallback: got=%s", got)
	}
}

func TestCSVDropsBlanks(t *testing.T) {
	t.Setenv("DW_TEST_CSV", " a16z, ,Sequoia Capital ,")
	got := CSV("DW_TEST_CSV")
	if len(got) != 2 || got[0] != "a16z" || got[1] != "Sequoia Capital" {
		t.Fatalf("unexpected: %#v", got)
	}
}

func TestBoolAndInt(t *testing.T) {
	t.Setenv("DW_TEST_BOOL", "on")
	if !Bool("DW_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("DW_TEST_INT", "x")
	if Int("DW_TEST_INT", 7) != 7 {
		t.Fatalf("expected default")
	}
}
