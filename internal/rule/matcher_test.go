package rule

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchReturnsFallbackWhenUnloaded(t *testing.T) {
	m := New(Direct, "")
	if err := m.Load(false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Match("example.com"); got != Direct {
		t.Fatalf("Match = %v, want Direct", got)
	}
}

func TestMatchExactThenSuffixThenFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.txt")
	contents := "# comment\n\nblock ads.example\nforward example\ndirect a.b.c.example\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := New(Block, path)
	if err := m.Load(false); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cases := []struct {
		host string
		want Rule
	}{
		{"a.b.c.example", Direct},  // exact match short-circuits
		{"x.b.c.example", Forward}, // strips to "b.c.example" then "c.example" then "example"
		{"ads.example", Block},
		{"sub.ads.example", Block}, // strips to "ads.example"
		{"unrelated.net", Block},   // fallback
	}
	for _, c := range cases {
		if got := m.Match(c.host); got != c.want {
			t.Errorf("Match(%q) = %v, want %v", c.host, got, c.want)
		}
	}
}

func TestMatchFirstOccurrenceWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.txt")
	contents := "block dup.example\nforward dup.example\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := New(Direct, path)
	if err := m.Load(false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Match("dup.example"); got != Block {
		t.Fatalf("Match = %v, want Block (first occurrence)", got)
	}
}

func TestMatchIsMemoized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.txt")
	if err := os.WriteFile(path, []byte("block evil.example\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := New(Direct, path)
	if err := m.Load(false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Match("evil.example"); got != Block {
		t.Fatalf("Match = %v, want Block", got)
	}

	// Mutate the in-memory table directly (bypassing Load) to prove the
	// second Match call returns the memoized result, not a fresh lookup.
	m.mu.Lock()
	m.rules["evil.example"] = Direct
	m.mu.Unlock()

	if got := m.Match("evil.example"); got != Block {
		t.Fatalf("Match = %v, want memoized Block", got)
	}
}

func TestFromStringRejectsUnknownVerb(t *testing.T) {
	if _, err := FromString("allow"); err == nil {
		t.Fatal("expected error for unknown verb")
	}
}
