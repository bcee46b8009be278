// Package oracle computes the expected answer to every verification
// sub-case from the dataset definition alone, without consulting the store
// under test.
//
// The only non-deterministic input is the entries subsample, which draws
// from an injected *rand.Rand so tests can fix the seed.
package oracle

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"

	"github.com/roach88/mrverify/internal/dataset"
	"github.com/roach88/mrverify/internal/keyfilter"
	"github.com/roach88/mrverify/internal/mapred"
)

// DefaultFilter is the key filter used by the filter sub-case when the test
// definition does not supply one: keys ending in "1" or "5".
var DefaultFilter keyfilter.Predicate = keyfilter.Seq{Steps: []keyfilter.Step{
	keyfilter.Or{Preds: []keyfilter.Predicate{
		keyfilter.Seq{Steps: []keyfilter.Step{keyfilter.EndsWith{Suffix: "1"}}},
		keyfilter.Seq{Steps: []keyfilter.Step{keyfilter.EndsWith{Suffix: "5"}}},
	}},
}}

// Expectation is the ground truth for one sub-case. Keys, when non-nil,
// is the exact expected key set in lexical order; Count is always set.
type Expectation struct {
	Count int      `json:"count"`
	Keys  []string `json:"keys,omitempty"`
}

// IndexCase names one of the secondary index sub-cases.
type IndexCase string

const (
	IndexBucketRange IndexCase = "bucket_range"
	IndexKeyRange    IndexCase = "key_range"
	IndexBinEq       IndexCase = "bin_eq"
	IndexIntEq       IndexCase = "int_eq"
	IndexIntRange    IndexCase = "int_range"
)

// IndexCases lists the index sub-cases in battery order.
var IndexCases = []IndexCase{IndexBucketRange, IndexKeyRange, IndexBinEq, IndexIntEq, IndexIntRange}

// Oracle derives inputs and expectations for a populated bucket of
// KeyCount records.
type Oracle struct {
	keyCount int
	bucket   string
	rng      *rand.Rand
}

// New returns an Oracle drawing subsamples from rng. A nil rng is seeded
// with 1.
func New(keyCount int, bucket string, rng *rand.Rand) *Oracle {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Oracle{keyCount: keyCount, bucket: bucket, rng: rng}
}

// KeyCount returns the population size.
func (o *Oracle) KeyCount() int { return o.keyCount }

// BucketName returns the working bucket.
func (o *Oracle) BucketName() string { return o.bucket }

func (o *Oracle) bkey(n int) mapred.BKey {
	return mapred.BKey{Bucket: o.bucket, Key: dataset.KeyFor(n)}
}

// Entries returns a random subsample of the population: each record is
// included with probability 1/2. The caller must use the same slice as job
// input and, via EntriesExpectation, as ground truth.
func (o *Oracle) Entries() []mapred.BKey {
	var out []mapred.BKey
	for n := 1; n <= o.keyCount; n++ {
		if o.rng.Intn(2) == 0 {
			out = append(out, o.bkey(n))
		}
	}
	return out
}

// EntriesExpectation returns the expectation for a sampled input set.
func EntriesExpectation(sample []mapred.BKey) Expectation {
	keys := make([]string, len(sample))
	for i, k := range sample {
		keys[i] = k.Key
	}
	sort.Strings(keys)
	return Expectation{Count: len(sample), Keys: keys}
}

// Bucket returns the expectation for a full-bucket job.
func (o *Oracle) Bucket() Expectation {
	if o.keyCount <= 0 {
		return Expectation{Count: 0}
	}
	keys := dataset.Keys(o.keyCount)
	sort.Strings(keys)
	return Expectation{Count: o.keyCount, Keys: keys}
}

// Filter evaluates pred locally over every populated key.
func (o *Oracle) Filter(pred keyfilter.Predicate) (Expectation, error) {
	if pred == nil {
		return Expectation{}, fmt.Errorf("oracle: nil filter")
	}
	keys := keyfilter.Select(pred, dataset.Keys(o.keyCount))
	sort.Strings(keys)
	return Expectation{Count: len(keys), Keys: keys}, nil
}

// MissingKey returns a key that is never populated: it lies outside the
// mrv-prefixed keyspace entirely.
func (o *Oracle) MissingKey() string {
	return "notfound_" + strconv.Itoa(o.keyCount+1000)
}

// Missing returns refs references (1 or 2) to the same nonexistent key.
// The expected result is always empty.
func (o *Oracle) Missing(refs int) ([]mapred.BKey, Expectation) {
	k := mapred.BKey{Bucket: o.bucket, Key: o.MissingKey()}
	inputs := make([]mapred.BKey, refs)
	for i := range inputs {
		inputs[i] = k
	}
	return inputs, Expectation{Count: 0, Keys: []string{}}
}

// Index returns the query and expectation for an index sub-case. Every
// expectation carries the exact key set, sorted.
func (o *Oracle) Index(c IndexCase) (mapred.IndexInput, Expectation, error) {
	k := o.keyCount
	half := k / 2
	switch c {
	case IndexBucketRange:
		return mapred.BucketIndex(o.bucket), o.selectKeys(func(int) bool { return true }), nil
	case IndexKeyRange:
		q := mapred.IndexRange(o.bucket, mapred.IndexKey, dataset.KeyFor(1), dataset.KeyRangeEnd(k))
		return q, o.lexicalPrefix(half), nil
	case IndexBinEq:
		q := mapred.IndexEq(o.bucket, dataset.BinField, dataset.TokenA)
		return q, o.selectKeys(func(n int) bool { return dataset.IndexesFor(n).Bin == dataset.TokenA }), nil
	case IndexIntEq:
		q := mapred.IndexIntEq(o.bucket, dataset.IntField, 1)
		return q, o.selectKeys(func(n int) bool { return n == 1 }), nil
	case IndexIntRange:
		q := mapred.IndexIntRange(o.bucket, dataset.IntField, 1, half)
		return q, o.selectKeys(func(n int) bool { return n <= half }), nil
	default:
		return mapred.IndexInput{}, Expectation{}, fmt.Errorf("oracle: unknown index case %q", c)
	}
}

// selectKeys collects KeyFor(n) for every populated n accepted by keep.
func (o *Oracle) selectKeys(keep func(n int) bool) Expectation {
	keys := []string{}
	for n := 1; n <= o.keyCount; n++ {
		if keep(n) {
			keys = append(keys, dataset.KeyFor(n))
		}
	}
	sort.Strings(keys)
	return Expectation{Count: len(keys), Keys: keys}
}

// lexicalPrefix returns the n lexically smallest populated keys.
func (o *Oracle) lexicalPrefix(n int) Expectation {
	keys := dataset.Keys(o.keyCount)
	sort.Strings(keys)
	if n <= 0 {
		return Expectation{Count: 0, Keys: []string{}}
	}
	return Expectation{Count: n, Keys: keys[:n]}
}
