// Package rule implements the destination routing table: an
// exact-then-suffix domain lookup with a configured fallback, loaded from
// a plain-text rules file. Grounded on
// original_source/p3/server/rulematcher.py's Rule/RuleMatcher.
package rule

import (
	"strings"

	"relaymux/internal/perr"
)

// Rule is the routing verdict for a destination.
type Rule int

const (
	Block Rule = iota
	Direct
	Forward
)

// FromString parses a rules-file verb (case-insensitive), per
// Rule.from_str.
func FromString(s string) (Rule, error) {
	switch strings.ToLower(s) {
	case "block":
		return Block, nil
	case "direct":
		return Direct, nil
	case "forward":
		return Forward, nil
	default:
		return 0, perr.Config("rule.from_string", "unknown rule verb "+s)
	}
}

func (r Rule) String() string {
	switch r {
	case Block:
		return "block"
	case Direct:
		return "direct"
	case Forward:
		return "forward"
	default:
		return "unknown"
	}
}
