package mapred

import (
	"fmt"
	"strconv"
)

// BKey identifies an object.
type BKey struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (k BKey) String() string { return k.Bucket + "/" + k.Key }

// Link is a tagged reference from one object to another.
type Link struct {
	Bucket string `json:"bucket" msgpack:"b"`
	Key    string `json:"key" msgpack:"k"`
	Tag    string `json:"tag" msgpack:"t"`
}

// IndexEntry is a secondary index term attached to an object. Field names
// ending in "_int" hold decimal integers; "_bin" fields hold opaque strings.
type IndexEntry struct {
	Field string `json:"field" msgpack:"f"`
	Value string `json:"value" msgpack:"v"`
}

// Object is a stored value with its metadata.
type Object struct {
	Bucket      string       `json:"bucket" msgpack:"-"`
	Key         string       `json:"key" msgpack:"-"`
	Value       []byte       `json:"value" msgpack:"d"`
	ContentType string       `json:"content_type,omitempty" msgpack:"ct"`
	Links       []Link       `json:"links,omitempty" msgpack:"l"`
	Indexes     []IndexEntry `json:"indexes,omitempty" msgpack:"i"`
}

// BKey returns the object's identity.
func (o Object) BKey() BKey { return BKey{Bucket: o.Bucket, Key: o.Key} }

// Pseudo index fields understood by every index-capable backend.
const (
	IndexBucket = "$bucket"
	IndexKey    = "$key"
)

// IsIntField reports whether an index field holds integers.
func IsIntField(field string) bool {
	return len(field) > 4 && field[len(field)-4:] == "_int"
}

// ValueKind tags a result value.
type ValueKind string

const (
	KindKey      ValueKind = "key"
	KindObject   ValueKind = "object"
	KindInt      ValueKind = "int"
	KindNotFound ValueKind = "notfound"
)

// Value is one element of a phase output.
type Value struct {
	Kind ValueKind `json:"kind"`
	BKey BKey      `json:"bkey"`
	Data []byte    `json:"data,omitempty"`
	Int  int       `json:"int,omitempty"`
}

// KeyValue returns a key-valued result element.
func KeyValue(k BKey) Value { return Value{Kind: KindKey, BKey: k} }

// NotFound returns a missing-object marker for k.
func NotFound(k BKey) Value { return Value{Kind: KindNotFound, BKey: k} }

// IntValue returns an integer result element.
func IntValue(n int) Value { return Value{Kind: KindInt, Int: n} }

// IsNotFound reports whether v marks a missing object.
func (v Value) IsNotFound() bool { return v.Kind == KindNotFound }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindNotFound:
		return "{error,notfound," + v.BKey.String() + "}"
	case KindObject:
		return fmt.Sprintf("%s=%dB", v.BKey, len(v.Data))
	default:
		return v.BKey.String()
	}
}

// PhaseOutput holds the values produced by one kept phase.
type PhaseOutput struct {
	Phase  int     `json:"phase"`
	Values []Value `json:"values"`
}

// Result is the response to a job.
type Result struct {
	Phases []PhaseOutput `json:"phases"`
}

// Last returns the values of the last kept phase, or nil for an empty result.
func (r *Result) Last() []Value {
	if r == nil || len(r.Phases) == 0 {
		return nil
	}
	return r.Phases[len(r.Phases)-1].Values
}

// Found returns the values of the last kept phase, excluding not-found markers.
func (r *Result) Found() []Value {
	var out []Value
	for _, v := range r.Last() {
		if !v.IsNotFound() {
			out = append(out, v)
		}
	}
	return out
}
