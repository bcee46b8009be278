package keyfilter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Step is one element of a filter sequence: a Predicate or a Transform.
type Step interface {
	step() // Marker method - seals interface to this package
}

// Predicate is a boolean test over a (possibly transformed) key.
type Predicate interface {
	Step
	Match(key string) bool
	predicateNode()
}

// Transform rewrites the value seen by subsequent steps.
type Transform interface {
	Step
	Apply(key string) string
	transformNode()
}

// Seq applies Steps left to right. It matches when every predicate step
// matches the value produced by the transforms before it. An empty Seq
// matches everything.
type Seq struct {
	Steps []Step
}

func (Seq) step() {}
func (Seq) predicateNode() {}

// Match implements Predicate.
func (s Seq) Match(key string) bool {
	v := key
	for _, st := range s.Steps {
		switch x := st.(type) {
		case Transform:
			v = x.Apply(v)
		case Predicate:
			if !x.Match(v) {
				return false
			}
		}
	}
	return true
}

// EndsWith matches keys with the given suffix.
type EndsWith struct{ Suffix string }

func (EndsWith) step() {}
func (EndsWith) predicateNode() {}
func (p EndsWith) Match(key string) bool { return strings.HasSuffix(key, p.Suffix) }

// StartsWith matches keys with the given prefix.
type StartsWith struct{ Prefix string }

func (StartsWith) step() {}
func (StartsWith) predicateNode() {}
func (p StartsWith) Match(key string) bool { return strings.HasPrefix(key, p.Prefix) }

// Eq matches keys equal to Value.
type Eq struct{ Value string }

func (Eq) step() {}
func (Eq) predicateNode() {}
func (p Eq) Match(key string) bool { return key == p.Value }

// Neq matches keys not equal to Value.
type Neq struct{ Value string }

func (Neq) step() {}
func (Neq) predicateNode() {}
func (p Neq) Match(key string) bool { return key != p.Value }

// Between matches keys in the lexical range [Low, High]. The upper bound is
// exclusive when Exclusive is set.
type Between struct {
	Low       string
	High      string
	Exclusive bool
}

func (Between) step() {}
func (Between) predicateNode() {}

// Match implements Predicate.
func (p Between) Match(key string) bool {
	if key < p.Low {
		return false
	}
	if p.Exclusive {
		return key < p.High
	}
	return key <= p.High
}

// Matches matches keys against a regular expression (RE2 syntax).
type Matches struct {
	Pattern string
	re      *regexp.Regexp
}

func (*Matches) step() {}
func (*Matches) predicateNode() {}

// Match implements Predicate.
func (p *Matches) Match(key string) bool { return p.re.MatchString(key) }

// And matches when every nested sequence matches.
type And struct{ Preds []Predicate }

func (And) step() {}
func (And) predicateNode() {}

// Match implements Predicate.
func (p And) Match(key string) bool {
	for _, q := range p.Preds {
		if !q.Match(key) {
			return false
		}
	}
	return true
}

// Or matches when at least one nested sequence matches.
type Or struct{ Preds []Predicate }

func (Or) step() {}
func (Or) predicateNode() {}

// Match implements Predicate.
func (p Or) Match(key string) bool {
	for _, q := range p.Preds {
		if q.Match(key) {
			return true
		}
	}
	return false
}

// Not negates a nested sequence.
type Not struct{ Pred Predicate }

func (Not) step() {}
func (Not) predicateNode() {}
func (p Not) Match(key string) bool { return !p.Pred.Match(key) }

// ToLower lowercases the value using Unicode case mapping.
type ToLower struct{}

func (ToLower) step() {}
func (ToLower) transformNode() {}

// Apply implements Transform.
func (ToLower) Apply(key string) string { return cases.Lower(language.Und).String(key) }

// ToUpper uppercases the value using Unicode case mapping.
type ToUpper struct{}

func (ToUpper) step() {}
func (ToUpper) transformNode() {}

// Apply implements Transform.
func (ToUpper) Apply(key string) string { return cases.Upper(language.Und).String(key) }

// Select returns the keys matched by p, preserving input order.
func Select(p Predicate, keys []string) []string {
	var out []string
	for _, k := range keys {
		if p.Match(k) {
			out = append(out, k)
		}
	}
	return out
}
