package rule

import (
	"bufio"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/net/idna"
)

// Matcher is the routing table: an exact map of domain to Rule plus a
// fallback, with lookups memoized for the process lifetime. Grounded on
// RuleMatcher.
type Matcher struct {
	Fallback  Rule
	RulesFile string

	mu    sync.RWMutex
	rules map[string]Rule // nil: unloaded, every lookup returns Fallback
	cache sync.Map        // string -> Rule, per "Rule-match memoization" (spec.md §3 supplement)
}

// New builds an unloaded Matcher; call Load before first use.
func New(fallback Rule, rulesFile string) *Matcher {
	return &Matcher{Fallback: fallback, RulesFile: rulesFile}
}

// Load reads RulesFile into the in-memory table, unless already loaded
// and force is false. A missing or empty path is a logged no-op, matching
// RuleMatcher.load_rules's "skip load rules file" / "cannot find" cases.
func (m *Matcher) Load(force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !force && m.rules != nil {
		return nil
	}
	if m.RulesFile == "" {
		log.Printf("rule: skip load rules file")
		return nil
	}
	f, err := os.Open(m.RulesFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("rule: cannot find rules file: %s", m.RulesFile)
			return nil
		}
		return err
	}
	defer f.Close()

	rules := make(map[string]Rule)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			fields = strings.Fields(line)
			if len(fields) != 2 {
				log.Printf("rule: skipping malformed line %q", line)
				continue
			}
		}
		verb, domain := fields[0], strings.TrimSpace(fields[1])
		r, err := FromString(verb)
		if err != nil {
			log.Printf("rule: skipping line %q: %v", line, err)
			continue
		}
		domain = normalize(domain)
		if _, exists := rules[domain]; !exists {
			rules[domain] = r
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	m.rules = rules
	m.cache = sync.Map{}
	log.Printf("rule: loaded %d rules", len(rules))
	return nil
}

// normalize ASCII-folds a hostname via IDNA so unicode and punycode forms
// of the same domain compare equal; hosts that don't parse as valid IDNA
// (IP literals, already-ASCII garbage) are passed through unchanged.
func normalize(host string) string {
	ascii, err := idna.ToASCII(strings.ToLower(host))
	if err != nil {
		return strings.ToLower(host)
	}
	return ascii
}

// Match resolves host to a Rule: exact lookup, then strip the leftmost
// label and retry, until one label remains, then Fallback. Results are
// memoized per host for the process lifetime.
func (m *Matcher) Match(host string) Rule {
	host = normalize(host)
	if cached, ok := m.cache.Load(host); ok {
		return cached.(Rule)
	}
	r := m.match(host)
	m.cache.Store(host, r)
	return r
}

func (m *Matcher) match(host string) Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rules == nil {
		return m.Fallback
	}
	for {
		if r, ok := m.rules[host]; ok {
			return r
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return m.Fallback
		}
		host = host[idx+1:]
	}
}
