package outbound

import (
	"log"
	"math/rand"
)

// Outset is an ordered collection of forward Outboxes plus the desired
// number of retry attempts per request. Grounded on p3/server/outset.py.
type Outset struct {
	Outboxes []*Outbox
	Attempts int
}

// Clean removes disabled outboxes, clamps Attempts to at most
// len(Outboxes), and — if cleaning leaves the set empty — installs a
// single default direct outbox, per Outset.clean / spec.md §3's Outset
// invariants.
func (o *Outset) Clean() {
	kept := o.Outboxes[:0:0]
	for _, ob := range o.Outboxes {
		if ob.Weight.Enabled() {
			kept = append(kept, ob)
		}
	}
	o.Outboxes = kept
	if len(o.Outboxes) == 0 {
		log.Printf("outset: no enabled forward outboxes, auto-adding direct outbox")
		o.Outboxes = append(o.Outboxes, New("FORWARD", SchemeDirect, "", 0))
	}
	if o.Attempts > len(o.Outboxes) {
		o.Attempts = len(o.Outboxes)
	}
}

// Choices draws Attempts outboxes with replacement, weighted by current
// weight — spec.md §4.K's "weighted random, not distinct" selection,
// grounded on Outbox.choices_by_weight's random.choices call.
func (o *Outset) Choices() []*Outbox {
	if len(o.Outboxes) == 0 {
		return nil
	}
	weights := make([]float64, len(o.Outboxes))
	var total float64
	for i, ob := range o.Outboxes {
		weights[i] = ob.Weight.Val()
		total += weights[i]
	}
	picks := make([]*Outbox, o.Attempts)
	for i := range picks {
		picks[i] = weightedPick(o.Outboxes, weights, total)
	}
	return picks
}

func weightedPick(outboxes []*Outbox, weights []float64, total float64) *Outbox {
	if total <= 0 {
		return outboxes[rand.Intn(len(outboxes))]
	}
	r := rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return outboxes[i]
		}
	}
	return outboxes[len(outboxes)-1]
}

// Select keeps only the outboxes at idxes (or, with invert, drops them),
// per the supplemented cull/retain operation named in SPEC_FULL.md §3.
func (o *Outset) Select(idxes []int, invert bool) {
	want := make(map[int]bool, len(idxes))
	for _, i := range idxes {
		want[i] = true
	}
	kept := o.Outboxes[:0:0]
	for i, ob := range o.Outboxes {
		collect := want[i]
		if invert {
			collect = !collect
		}
		if collect {
			kept = append(kept, ob)
		}
	}
	o.Outboxes = kept
}
