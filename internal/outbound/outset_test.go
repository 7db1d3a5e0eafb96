package outbound

import "testing"

func TestCleanRemovesDisabledAndAddsDefaultDirect(t *testing.T) {
	disabled := New("DEAD", SchemeTCP, "example.com", 80)
	disabled.Weight.Disable()
	o := &Outset{Outboxes: []*Outbox{disabled}, Attempts: 3}

	o.Clean()

	if len(o.Outboxes) != 1 {
		t.Fatalf("len(Outboxes) = %d, want 1", len(o.Outboxes))
	}
	if o.Outboxes[0].Scheme != SchemeDirect {
		t.Fatalf("auto-added outbox scheme = %v, want SchemeDirect", o.Outboxes[0].Scheme)
	}
	if o.Attempts != 1 {
		t.Fatalf("Attempts = %d, want clamped to 1", o.Attempts)
	}
}

func TestCleanKeepsEnabledAndClampsAttempts(t *testing.T) {
	a := New("A", SchemeTCP, "a.example", 80)
	b := New("B", SchemeTCP, "b.example", 80)
	o := &Outset{Outboxes: []*Outbox{a, b}, Attempts: 5}

	o.Clean()

	if len(o.Outboxes) != 2 {
		t.Fatalf("len(Outboxes) = %d, want 2", len(o.Outboxes))
	}
	if o.Attempts != 2 {
		t.Fatalf("Attempts = %d, want clamped to 2", o.Attempts)
	}
}

func TestChoicesReturnsAttemptsCount(t *testing.T) {
	a := New("A", SchemeTCP, "a.example", 80)
	b := New("B", SchemeTCP, "b.example", 80)
	o := &Outset{Outboxes: []*Outbox{a, b}, Attempts: 4}

	picks := o.Choices()
	if len(picks) != 4 {
		t.Fatalf("len(picks) = %d, want 4", len(picks))
	}
	for _, p := range picks {
		if p != a && p != b {
			t.Fatalf("pick %v is not one of the configured outboxes", p)
		}
	}
}

func TestChoicesFavorsHigherWeight(t *testing.T) {
	heavy := New("HEAVY", SchemeTCP, "h.example", 80)
	heavy.Weight.Set(WeightMaximal)
	light := New("LIGHT", SchemeTCP, "l.example", 80)
	light.Weight.Set(WeightMinimal)

	o := &Outset{Outboxes: []*Outbox{heavy, light}, Attempts: 2000}
	picks := o.Choices()

	var heavyCount int
	for _, p := range picks {
		if p == heavy {
			heavyCount++
		}
	}
	// With weight 100 vs 1, heavy should dominate the draws overwhelmingly;
	// a loose threshold avoids flakiness while still catching a broken
	// sampler (e.g. one that ignores weight entirely, ~50%).
	if heavyCount < len(picks)*8/10 {
		t.Fatalf("heavy picked %d/%d times, want at least 80%%", heavyCount, len(picks))
	}
}

func TestSelectKeepsOnlyGivenIndexes(t *testing.T) {
	a := New("A", SchemeTCP, "a.example", 80)
	b := New("B", SchemeTCP, "b.example", 80)
	c := New("C", SchemeTCP, "c.example", 80)
	o := &Outset{Outboxes: []*Outbox{a, b, c}}

	o.Select([]int{0, 2}, false)
	if len(o.Outboxes) != 2 || o.Outboxes[0] != a || o.Outboxes[1] != c {
		t.Fatalf("Select kept %v, want [A C]", o.Outboxes)
	}
}

func TestSelectInvertDropsGivenIndexes(t *testing.T) {
	a := New("A", SchemeTCP, "a.example", 80)
	b := New("B", SchemeTCP, "b.example", 80)
	c := New("C", SchemeTCP, "c.example", 80)
	o := &Outset{Outboxes: []*Outbox{a, b, c}}

	o.Select([]int{1}, true)
	if len(o.Outboxes) != 2 || o.Outboxes[0] != a || o.Outboxes[1] != c {
		t.Fatalf("Select(invert) kept %v, want [A C]", o.Outboxes)
	}
}
