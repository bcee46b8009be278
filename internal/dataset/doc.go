// Package dataset defines the deterministic fixture records used by the
// map/reduce verification harness.
//
// Every record is identified by a 1-based sequence number n. All record
// properties are pure functions of n (and of the configured body size), so
// the expected answer to any query can be computed without reading the store:
//
//	key      "mrv" + decimal(n)
//	body     size-1 filler bytes followed by a sentinel byte
//	links    prev -> KeyFor(n-1), next -> KeyFor(n+1)
//	indexes  field_bin = "a" (even n) | "b" (odd n), field_int = n
//
// # Key Ordering
//
// Keys are plain string concatenations, so lexical order is NOT numeric
// order: "mrv10" sorts before "mrv2". Range queries over the $key pseudo
// index are evaluated lexically by the store, and KeyRangeEnd reproduces
// that ordering.
//
// # Links At The Boundary
//
// Records 1 and K link to "mrv0" and "mrv{K+1}" which never exist. Link
// traversal must resolve them as missing without error.
package dataset
