// Package outbound implements rule-based outbound dispatch: routing a
// destination to a Block/Direct/Forward verdict, weighted-random
// selection and ordered retry across a forward Outset, and the
// health-probe pings used to set weights offline. Grounded on
// original_source/p3/utils/weightable.py, p3/iobox/outbox.py,
// p3/server/outset.py, p3/server/outdispatcher.py, p3/server/ping.py.
package outbound

import (
	"math"
	"sync/atomic"
)

const (
	WeightInitial  = 10.0
	WeightMinimal  = 1.0
	WeightMaximal  = 100.0
	WeightIncrease = 1.0
	WeightDecrease = 1.0
)

// Weight is an outbox's mutable sampling weight, clamped to
// [WeightMinimal, WeightMaximal] except for the disabled sentinel (<=0).
// The same *Outbox (and its Weight) is shared across every concurrently
// running per-connection goroutine spawned by internal/server, so the
// value is kept in an atomic.Uint64 holding the float64's bits rather
// than a plain float64 field, per spec.md §5's "each outbox weight must
// be an atomic float-equivalent." Grounded on
// Weight.increase/decrease/disable/enabled.
type Weight struct {
	bits atomic.Uint64
}

// NewWeight returns a Weight initialized to WeightInitial.
func NewWeight() *Weight {
	w := &Weight{}
	w.bits.Store(math.Float64bits(WeightInitial))
	return w
}

func (w *Weight) Val() float64 { return math.Float64frombits(w.bits.Load()) }

// update applies f to the current value in a compare-and-swap loop,
// retrying on concurrent writers instead of losing an update.
func (w *Weight) update(f func(cur float64) float64) {
	for {
		old := w.bits.Load()
		next := f(math.Float64frombits(old))
		if w.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

func (w *Weight) Increase() {
	w.update(func(cur float64) float64 {
		if cur+WeightIncrease > WeightMaximal {
			return WeightMaximal
		}
		return cur + WeightIncrease
	})
}

func (w *Weight) Decrease() {
	w.update(func(cur float64) float64 {
		if cur-WeightDecrease < WeightMinimal {
			return WeightMinimal
		}
		return cur - WeightDecrease
	})
}

func (w *Weight) Reset() { w.bits.Store(math.Float64bits(WeightInitial)) }

// Set overrides the weight to v, clamping into [WeightMinimal,
// WeightMaximal] unless v requests the disabled sentinel. Used when
// loading a configured starting weight for an outbox.
func (w *Weight) Set(v float64) {
	switch {
	case v <= 0:
		w.bits.Store(math.Float64bits(-1.0))
	case v < WeightMinimal:
		w.bits.Store(math.Float64bits(WeightMinimal))
	case v > WeightMaximal:
		w.bits.Store(math.Float64bits(WeightMaximal))
	default:
		w.bits.Store(math.Float64bits(v))
	}
}

func (w *Weight) Disable() { w.bits.Store(math.Float64bits(-1.0)) }

func (w *Weight) Disabled() bool { return w.Val() <= 0 }

func (w *Weight) Enabled() bool { return !w.Disabled() }
