package outbound

import (
	"context"
	"errors"
	"log"

	"relaymux/internal/metrics"
	"relaymux/internal/perr"
	"relaymux/internal/proxyreq"
	"relaymux/internal/rule"
	"relaymux/internal/streamio"
)

var errRetryExceeded = errors.New("connect retry exceeded")

// Dispatcher resolves a request's destination to a rule verdict, picks
// the candidate outbox sequence, and retries connect across it with
// weight adjustment. Grounded on p3/server/outdispatcher.py's
// Outdispatcher.
type Dispatcher struct {
	Rules   *rule.Matcher
	Block   *Outbox
	Direct  *Outbox
	Forward *Outset
}

// NewDispatcher builds a Dispatcher with the standard BLOCK/DIRECT
// singleton outboxes, matching Outdispatcher.__init__'s defaults.
func NewDispatcher(rules *rule.Matcher, forward *Outset) *Dispatcher {
	return &Dispatcher{
		Rules:   rules,
		Block:   New("BLOCK", SchemeBlock, "", 0),
		Direct:  New("DIRECT", SchemeDirect, "", 0),
		Forward: forward,
	}
}

// Dispatch returns the ordered candidate sequence for host: a single
// Block or Direct outbox, or Attempts weighted draws from Forward.
func (d *Dispatcher) Dispatch(host string) []*Outbox {
	verdict := d.Rules.Match(host)
	metrics.Dispatches.WithLabelValues(verdict.String()).Inc()
	switch verdict {
	case rule.Block:
		return []*Outbox{d.Block}
	case rule.Direct:
		return []*Outbox{d.Direct}
	default:
		return d.Forward.Choices()
	}
}

// Connect tries each candidate in turn, bumping its weight up on success
// or down on failure, and returns the first connected Stream. Grounded
// on Outdispatcher.connect's retry loop.
func (d *Dispatcher) Connect(ctx context.Context, req *proxyreq.Request) (*streamio.Stream, error) {
	return connectCandidates(ctx, d.Dispatch(req.Dest.Host), req)
}

// connectCandidates runs the retry loop over an already-selected
// sequence, split out from Connect so the loop itself is testable
// without depending on Choices's weighted randomness.
func connectCandidates(ctx context.Context, candidates []*Outbox, req *proxyreq.Request) (*streamio.Stream, error) {
	for i, ob := range candidates {
		stream, err := ob.Connect(ctx, req)
		if err == nil {
			ob.Weight.Increase()
			metrics.Retries.WithLabelValues(ob.Name, "ok").Inc()
			metrics.OutboxWeight.WithLabelValues(ob.Name).Set(ob.Weight.Val())
			return stream, nil
		}
		ob.Weight.Decrease()
		metrics.Retries.WithLabelValues(ob.Name, "fail").Inc()
		metrics.OutboxWeight.WithLabelValues(ob.Name).Set(ob.Weight.Val())
		log.Printf("outbound: connect(%d) to %s via %s: %v", i, req.Dest, ob.Name, err)
	}
	return nil, perr.IO("outbound.connect", errRetryExceeded)
}
