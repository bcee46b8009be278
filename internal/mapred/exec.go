package mapred

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrBadInput is returned when a phase receives a value it cannot process,
// for example a map phase fed the integer output of a reduce.
var ErrBadInput = errors.New("mapred: bad phase input")

// Source fetches objects for the executor. Get returns found == false for
// missing objects; err is reserved for storage failures.
type Source interface {
	Get(ctx context.Context, bucket, key string) (obj Object, found bool, err error)
}

// Execute runs job over inputs against src.
//
// Execution is sequential and single-threaded. ctx is checked between
// values so a deadline bounds long full-bucket jobs.
func Execute(ctx context.Context, src Source, inputs []BKey, job Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	current := make([]Value, 0, len(inputs))
	for _, k := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, found, err := src.Get(ctx, k.Bucket, k.Key)
		if err != nil {
			return nil, fmt.Errorf("resolve input %s: %w", k, err)
		}
		if found {
			current = append(current, KeyValue(k))
		} else {
			current = append(current, NotFound(k))
		}
	}

	res := &Result{}
	for i, phase := range job {
		var (
			next []Value
			err  error
		)
		switch phase.Kind() {
		case "map":
			next, err = runMap(ctx, src, phase.Map.Fun, current)
		case "link":
			next, err = runLink(ctx, src, *phase.Link, current)
		case "reduce":
			next, err = runReduce(phase.Reduce.Fun, current)
		}
		if err != nil {
			return nil, fmt.Errorf("phase %d (%s): %w", i, phase, err)
		}
		if phase.keep() || i == len(job)-1 {
			res.Phases = append(res.Phases, PhaseOutput{Phase: i, Values: next})
		}
		current = next
	}
	return res, nil
}

func runMap(ctx context.Context, src Source, fun string, in []Value) ([]Value, error) {
	out := make([]Value, 0, len(in))
	for _, v := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch v.Kind {
		case KindNotFound:
			out = append(out, v)
			continue
		case KindKey, KindObject:
		default:
			return nil, fmt.Errorf("%w: map over %s value", ErrBadInput, v.Kind)
		}

		obj, found, err := src.Get(ctx, v.BKey.Bucket, v.BKey.Key)
		if err != nil {
			return nil, err
		}
		if !found {
			out = append(out, NotFound(v.BKey))
			continue
		}
		switch fun {
		case MapKey:
			out = append(out, KeyValue(obj.BKey()))
		case MapIdentity:
			out = append(out, v)
		default:
			out = append(out, Value{Kind: KindObject, BKey: obj.BKey(), Data: obj.Value})
		}
	}
	return out, nil
}

func runLink(ctx context.Context, src Source, spec LinkSpec, in []Value) ([]Value, error) {
	var out []Value
	for _, v := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch v.Kind {
		case KindNotFound:
			continue
		case KindKey, KindObject:
		default:
			return nil, fmt.Errorf("%w: link over %s value", ErrBadInput, v.Kind)
		}

		obj, found, err := src.Get(ctx, v.BKey.Bucket, v.BKey.Key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		for _, l := range obj.Links {
			if !wildMatch(spec.Bucket, l.Bucket) || !wildMatch(spec.Tag, l.Tag) {
				continue
			}
			out = append(out, KeyValue(BKey{Bucket: l.Bucket, Key: l.Key}))
		}
	}
	return out, nil
}

func wildMatch(pattern, v string) bool {
	return pattern == "" || pattern == Wildcard || pattern == v
}

func runReduce(fun string, in []Value) ([]Value, error) {
	switch fun {
	case ReduceCountInputs:
		n := 0
		for _, v := range in {
			switch v.Kind {
			case KindNotFound:
			case KindInt:
				n += v.Int
			default:
				n++
			}
		}
		return []Value{IntValue(n)}, nil

	case ReduceSetUnion:
		seen := make(map[string]bool, len(in))
		out := make([]Value, 0, len(in))
		for _, v := range in {
			id := string(v.Kind) + "\x00" + v.String() + "\x00" + string(v.Data)
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, v)
		}
		return out, nil

	case ReduceSort:
		out := append([]Value(nil), in...)
		sort.SliceStable(out, func(i, j int) bool { return lessValue(out[i], out[j]) })
		return out, nil

	default:
		return append([]Value(nil), in...), nil
	}
}

func lessValue(a, b Value) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Kind == KindInt {
		return a.Int < b.Int
	}
	if a.BKey.Bucket != b.BKey.Bucket {
		return a.BKey.Bucket < b.BKey.Bucket
	}
	if a.BKey.Key != b.BKey.Key {
		return a.BKey.Key < b.BKey.Key
	}
	return bytes.Compare(a.Data, b.Data) < 0
}

// ErrIndexUnsupported is returned by Resolve for index inputs when the
// backend has no secondary index support.
var ErrIndexUnsupported = errors.New("secondary indexes not supported by backend")

// Lister is a Source that can enumerate the keys of a bucket.
type Lister interface {
	Source
	Keys(ctx context.Context, bucket string) ([]string, error)
}

// Resolve expands in into the ordered list of job inputs by scanning l.
// Stores that can answer filters or index queries natively should do so
// instead; Resolve is the reference behavior they are tested against.
func Resolve(ctx context.Context, l Lister, in Input, indexes bool) ([]BKey, error) {
	switch q := in.(type) {
	case KeyInputs:
		return append([]BKey(nil), q.Keys...), nil

	case BucketInput:
		keys, err := l.Keys(ctx, q.Bucket)
		if err != nil {
			return nil, err
		}
		return toBKeys(q.Bucket, keys), nil

	case FilterInput:
		keys, err := l.Keys(ctx, q.Bucket)
		if err != nil {
			return nil, err
		}
		var out []BKey
		for _, k := range keys {
			if q.Filter == nil || q.Filter.Match(k) {
				out = append(out, BKey{Bucket: q.Bucket, Key: k})
			}
		}
		return out, nil

	case IndexInput:
		if !indexes {
			return nil, ErrIndexUnsupported
		}
		keys, err := l.Keys(ctx, q.Bucket)
		if err != nil {
			return nil, err
		}
		var out []BKey
		for _, k := range keys {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			obj, found, err := l.Get(ctx, q.Bucket, k)
			if err != nil {
				return nil, err
			}
			if found && MatchIndex(q, obj) {
				out = append(out, obj.BKey())
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported input type %T", in)
	}
}

func toBKeys(bucket string, keys []string) []BKey {
	out := make([]BKey, len(keys))
	for i, k := range keys {
		out[i] = BKey{Bucket: bucket, Key: k}
	}
	return out
}
