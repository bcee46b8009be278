package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// KeyPrefix is prepended to the decimal sequence number of every fixture key.
const KeyPrefix = "mrv"

// Index field names and the two tokens of the binary field.
const (
	BinField = "field_bin"
	IntField = "field_int"

	TokenA = "a" // even n
	TokenB = "b" // odd n
)

// Link tags.
const (
	TagPrev = "prev"
	TagNext = "next"
)

const (
	filler   = 'x'
	sentinel = '$'
)

// ErrBodySize is returned by BodyFor when the requested size cannot hold
// the sentinel byte.
var ErrBodySize = errors.New("body size must be at least 1 byte")

// Indexes holds the secondary index values of a fixture record.
type Indexes struct {
	Bin string
	Int int
}

// Links holds the link targets of a fixture record.
type Links struct {
	Prev string
	Next string
}

// Record is a fully materialized fixture record.
type Record struct {
	N       int
	Bucket  string
	Key     string
	Body    []byte
	Links   Links
	Indexes Indexes
}

// KeyFor returns the key of record n.
func KeyFor(n int) string {
	return KeyPrefix + strconv.Itoa(n)
}

// BodyFor returns a payload of exactly size bytes ending with the sentinel.
func BodyFor(size int) ([]byte, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBodySize, size)
	}
	body := make([]byte, size)
	for i := 0; i < size-1; i++ {
		body[i] = filler
	}
	body[size-1] = sentinel
	return body, nil
}

// HasSentinel reports whether body ends with the sentinel byte.
func HasSentinel(body []byte) bool {
	return len(body) > 0 && body[len(body)-1] == sentinel
}

// IndexesFor returns the secondary index values of record n.
func IndexesFor(n int) Indexes {
	tok := TokenB
	if n%2 == 0 {
		tok = TokenA
	}
	return Indexes{Bin: tok, Int: n}
}

// LinksFor returns the prev/next link targets of record n.
func LinksFor(n int) Links {
	return Links{Prev: KeyFor(n - 1), Next: KeyFor(n + 1)}
}

// RecordFor materializes record n for bucket with a body of bodySize bytes.
func RecordFor(bucket string, n, bodySize int) (Record, error) {
	body, err := BodyFor(bodySize)
	if err != nil {
		return Record{}, err
	}
	return Record{
		N:       n,
		Bucket:  bucket,
		Key:     KeyFor(n),
		Body:    body,
		Links:   LinksFor(n),
		Indexes: IndexesFor(n),
	}, nil
}

// Keys returns KeyFor(1..count) in sequence order.
func Keys(count int) []string {
	if count <= 0 {
		return nil
	}
	keys := make([]string, count)
	for n := 1; n <= count; n++ {
		keys[n-1] = KeyFor(n)
	}
	return keys
}

// KeyRangeEnd returns the (count/2)-th lexically smallest key among
// KeyFor(1..count), or "" when count/2 is zero.
//
// The key range [KeyFor(1), KeyRangeEnd(count)] therefore covers exactly
// count/2 keys under lexical comparison. This sorts all keys, which is
// O(count log count) per call.
func KeyRangeEnd(count int) string {
	half := count / 2
	if half == 0 {
		return ""
	}
	keys := Keys(count)
	sort.Strings(keys)
	return keys[half-1]
}
