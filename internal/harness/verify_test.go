package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/mrverify/internal/mapred"
	"github.com/roach88/mrverify/internal/oracle"
)

func result(values ...mapred.Value) *mapred.Result {
	return &mapred.Result{Phases: []mapred.PhaseOutput{{Phase: 0, Values: values}}}
}

func key(k string) mapred.Value { return mapred.KeyValue(mapred.BKey{Bucket: "b", Key: k}) }

func missing(k string) mapred.Value { return mapred.NotFound(mapred.BKey{Bucket: "b", Key: k}) }

func TestVerifyReduceCount(t *testing.T) {
	v, ok := LookupVerifier(VerifyReduceCount)
	assert.True(t, ok)

	assert.NoError(t, v.Verify(KindBucket, result(mapred.IntValue(1000)), oracle.Expectation{Count: 1000}))
	assert.NoError(t, v.Verify(KindMissing, result(mapred.IntValue(0)), oracle.Expectation{Count: 0}))
	assert.NoError(t, v.Verify(KindMissing, &mapred.Result{}, oracle.Expectation{Count: 0}))

	err := v.Verify(KindBucket, result(mapred.IntValue(999)), oracle.Expectation{Count: 1000})
	assert.ErrorContains(t, err, "expected count 1000, got 999")

	err = v.Verify(KindEntries, result(key("mrv1"), key("mrv2")), oracle.Expectation{Count: 2})
	assert.ErrorContains(t, err, "single count")
}

func TestVerifyEntryCount_IgnoresNotFound(t *testing.T) {
	v, _ := LookupVerifier(VerifyEntryCount)

	assert.NoError(t, v.Verify(KindMissing, result(missing("x"), missing("x")), oracle.Expectation{Count: 0}))
	assert.NoError(t, v.Verify(KindEntries, result(key("mrv1"), missing("x")), oracle.Expectation{Count: 1}))
	assert.Error(t, v.Verify(KindEntries, result(key("mrv1")), oracle.Expectation{Count: 2}))
}

func TestVerifyKeySet(t *testing.T) {
	v, _ := LookupVerifier(VerifyKeySet)
	exp := oracle.Expectation{Count: 2, Keys: []string{"mrv1", "mrv5"}}

	assert.NoError(t, v.Verify(KindFilter, result(key("mrv5"), key("mrv1")), exp))

	err := v.Verify(KindFilter, result(key("mrv5"), key("mrv2")), exp)
	assert.ErrorContains(t, err, "key set mismatch")
	assert.ErrorContains(t, err, "mrv2")

	// Count-only expectations fall back to counting.
	assert.NoError(t, v.Verify(KindIndex, result(key("mrv3")), oracle.Expectation{Count: 1}))

	assert.NoError(t, v.Verify(KindMissing, result(missing("x")), oracle.Expectation{Count: 0, Keys: []string{}}))
	assert.Error(t, v.Verify(KindFilter, result(mapred.IntValue(2)), exp))
}

func TestVerifyLinkCount_CountsDanglingLinks(t *testing.T) {
	v, _ := LookupVerifier(VerifyLinkCount)

	res := result(key("mrv2"), key("mrv3"), missing("mrv4"))
	assert.NoError(t, v.Verify(KindEntries, res, oracle.Expectation{Count: 3}))
	assert.Error(t, v.Verify(KindEntries, res, oracle.Expectation{Count: 2}))
}

func TestVerifierNames(t *testing.T) {
	assert.Equal(t, []string{"entry_count", "key_set", "link_count", "reduce_count"}, VerifierNames())

	_, ok := LookupVerifier("nope")
	assert.False(t, ok)
}
