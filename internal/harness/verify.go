package harness

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/mrverify/internal/mapred"
	"github.com/roach88/mrverify/internal/oracle"
)

// Verifier decides whether a job result matches the expectation for a
// sub-case. A nil return is a pass; the error text becomes the failure
// reason.
type Verifier interface {
	Verify(kind Kind, res *mapred.Result, exp oracle.Expectation) error
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(kind Kind, res *mapred.Result, exp oracle.Expectation) error

// Verify implements Verifier.
func (f VerifierFunc) Verify(kind Kind, res *mapred.Result, exp oracle.Expectation) error {
	return f(kind, res, exp)
}

// Verifier names accepted in test definitions.
const (
	VerifyReduceCount = "reduce_count"
	VerifyEntryCount  = "entry_count"
	VerifyKeySet      = "key_set"
	VerifyLinkCount   = "link_count"
)

var verifiers = map[string]Verifier{
	VerifyReduceCount: VerifierFunc(verifyReduceCount),
	VerifyEntryCount:  VerifierFunc(verifyEntryCount),
	VerifyKeySet:      VerifierFunc(verifyKeySet),
	VerifyLinkCount:   VerifierFunc(verifyLinkCount),
}

// LookupVerifier resolves a verifier by name.
func LookupVerifier(name string) (Verifier, bool) {
	v, ok := verifiers[name]
	return v, ok
}

// VerifierNames returns the registered verifier names in sorted order.
func VerifierNames() []string {
	names := make([]string, 0, len(verifiers))
	for n := range verifiers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// verifyReduceCount expects the last phase to be a single integer equal to
// the expected count, as produced by a count_inputs reduce.
func verifyReduceCount(kind Kind, res *mapred.Result, exp oracle.Expectation) error {
	last := res.Last()
	if len(last) == 0 && exp.Count == 0 {
		return nil
	}
	if len(last) != 1 || last[0].Kind != mapred.KindInt {
		return fmt.Errorf("%s: expected a single count, got %d values", kind, len(last))
	}
	if last[0].Int != exp.Count {
		return fmt.Errorf("%s: expected count %d, got %d", kind, exp.Count, last[0].Int)
	}
	return nil
}

// verifyEntryCount counts the found values of the last phase.
func verifyEntryCount(kind Kind, res *mapred.Result, exp oracle.Expectation) error {
	if n := len(res.Found()); n != exp.Count {
		return fmt.Errorf("%s: expected %d entries, got %d", kind, exp.Count, n)
	}
	return nil
}

// verifyKeySet compares the keys of the found values against the expected
// key set. Expectations that carry only a count fall back to counting.
func verifyKeySet(kind Kind, res *mapred.Result, exp oracle.Expectation) error {
	found := res.Found()
	if exp.Keys == nil {
		return verifyEntryCount(kind, res, exp)
	}
	got := make([]string, 0, len(found))
	for _, v := range found {
		if v.Kind == mapred.KindInt {
			return fmt.Errorf("%s: expected keys, got integer %d", kind, v.Int)
		}
		got = append(got, v.BKey.Key)
	}
	sort.Strings(got)
	if diff := cmp.Diff(exp.Keys, got); diff != "" {
		return fmt.Errorf("%s: key set mismatch (-want +got):\n%s", kind, diff)
	}
	return nil
}

// verifyLinkCount expects one value per input object, as produced by a link
// phase restricted to a single tag. Dangling links at the ends of the ring
// still count.
func verifyLinkCount(kind Kind, res *mapred.Result, exp oracle.Expectation) error {
	if n := len(res.Last()); n != exp.Count {
		return fmt.Errorf("%s: expected %d links, got %d", kind, exp.Count, n)
	}
	return nil
}
