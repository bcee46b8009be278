package mapred

import (
	"strconv"

	"github.com/roach88/mrverify/internal/keyfilter"
)

// Input selects the objects a job starts from.
//
// This is a sealed interface - only types in this package implement it.
type Input interface {
	inputNode()
	// Describe returns a short human-readable summary for logs.
	Describe() string
}

// KeyInputs is an explicit list of objects. Repeated keys are kept.
type KeyInputs struct {
	Keys []BKey
}

func (KeyInputs) inputNode() {}

// Describe implements Input.
func (in KeyInputs) Describe() string { return strconv.Itoa(len(in.Keys)) + " keys" }

// BucketInput selects every object in Bucket.
type BucketInput struct {
	Bucket string
}

func (BucketInput) inputNode() {}

// Describe implements Input.
func (in BucketInput) Describe() string { return "bucket " + in.Bucket }

// FilterInput selects the keys of Bucket matched by Filter.
type FilterInput struct {
	Bucket string
	Filter keyfilter.Predicate
}

func (FilterInput) inputNode() {}

// Describe implements Input.
func (in FilterInput) Describe() string {
	return "bucket " + in.Bucket + " filter " + keyfilter.Format(in.Filter)
}

// IndexInput is a secondary index query. Start == End is an equality query.
// For the $bucket pseudo index Start and End are ignored. Integer fields
// compare numerically, every other field compares lexically; both bounds
// are inclusive.
type IndexInput struct {
	Bucket string
	Field  string
	Start  string
	End    string
}

func (IndexInput) inputNode() {}

// Describe implements Input.
func (in IndexInput) Describe() string {
	if in.Field == IndexBucket {
		return "index " + in.Bucket + " " + IndexBucket
	}
	if in.IsEquality() {
		return "index " + in.Bucket + " " + in.Field + "=" + in.Start
	}
	return "index " + in.Bucket + " " + in.Field + "[" + in.Start + ".." + in.End + "]"
}

// IsEquality reports whether the query matches a single term.
func (in IndexInput) IsEquality() bool { return in.Start == in.End }

// IndexEq builds an equality query on a binary field or $key.
func IndexEq(bucket, field, value string) IndexInput {
	return IndexInput{Bucket: bucket, Field: field, Start: value, End: value}
}

// IndexIntEq builds an equality query on an integer field.
func IndexIntEq(bucket, field string, value int) IndexInput {
	v := strconv.Itoa(value)
	return IndexInput{Bucket: bucket, Field: field, Start: v, End: v}
}

// IndexRange builds a lexical range query.
func IndexRange(bucket, field, start, end string) IndexInput {
	return IndexInput{Bucket: bucket, Field: field, Start: start, End: end}
}

// IndexIntRange builds a numeric range query on an integer field.
func IndexIntRange(bucket, field string, start, end int) IndexInput {
	return IndexInput{Bucket: bucket, Field: field, Start: strconv.Itoa(start), End: strconv.Itoa(end)}
}

// BucketIndex builds the $bucket pseudo index query.
func BucketIndex(bucket string) IndexInput {
	return IndexInput{Bucket: bucket, Field: IndexBucket}
}

// MatchIndex reports whether an object's index entries satisfy q. The
// $bucket and $key pseudo indexes are evaluated against the object identity.
func MatchIndex(q IndexInput, obj Object) bool {
	switch q.Field {
	case IndexBucket:
		return obj.Bucket == q.Bucket
	case IndexKey:
		return obj.Key >= q.Start && obj.Key <= q.End
	}
	for _, e := range obj.Indexes {
		if e.Field != q.Field {
			continue
		}
		if inIndexRange(q, e.Value) {
			return true
		}
	}
	return false
}

func inIndexRange(q IndexInput, v string) bool {
	if !IsIntField(q.Field) {
		return v >= q.Start && v <= q.End
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false
	}
	lo, err := strconv.Atoi(q.Start)
	if err != nil {
		return false
	}
	hi, err := strconv.Atoi(q.End)
	if err != nil {
		return false
	}
	return n >= lo && n <= hi
}
