package sqlitekv

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/mapred"
)

// RunJob implements client.Client. Inputs are resolved in SQL, then the
// phases run through mapred.Execute with the store as object source.
func (s *Store) RunJob(ctx context.Context, in mapred.Input, job mapred.Job) (*mapred.Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	inputs, err := s.resolve(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", in.Describe(), err)
	}
	return mapred.Execute(ctx, s, inputs, job)
}

func (s *Store) resolve(ctx context.Context, in mapred.Input) ([]mapred.BKey, error) {
	switch q := in.(type) {
	case mapred.KeyInputs:
		return append([]mapred.BKey(nil), q.Keys...), nil

	case mapred.BucketInput:
		keys, err := s.Keys(ctx, q.Bucket)
		return bkeys(q.Bucket, keys), err

	case mapred.FilterInput:
		if q.Filter == nil {
			keys, err := s.Keys(ctx, q.Bucket)
			return bkeys(q.Bucket, keys), err
		}
		f, err := compileFilter(q.Filter, "key")
		if err != nil {
			return nil, err
		}
		args := append([]any{q.Bucket}, f.args...)
		keys, err := s.queryKeys(ctx, `
			SELECT key FROM objects WHERE bucket = ? AND `+f.expr+`
			ORDER BY key ASC
		`, args...)
		return bkeys(q.Bucket, keys), err

	case mapred.IndexInput:
		if !client.SupportsIndexes(ctx, s, q.Bucket, s.logger) {
			return nil, client.ErrIndexUnsupported
		}
		keys, err := s.indexKeys(ctx, q)
		return bkeys(q.Bucket, keys), err

	default:
		return nil, fmt.Errorf("unsupported input type %T", in)
	}
}

func (s *Store) indexKeys(ctx context.Context, q mapred.IndexInput) ([]string, error) {
	switch {
	case q.Field == mapred.IndexBucket:
		return s.Keys(ctx, q.Bucket)

	case q.Field == mapred.IndexKey:
		return s.queryKeys(ctx, `
			SELECT key FROM objects
			WHERE bucket = ? AND key >= ? AND key <= ?
			ORDER BY key ASC
		`, q.Bucket, q.Start, q.End)

	case mapred.IsIntField(q.Field):
		lo, err := strconv.Atoi(q.Start)
		if err != nil {
			return nil, fmt.Errorf("index %s: bad start %q", q.Field, q.Start)
		}
		hi, err := strconv.Atoi(q.End)
		if err != nil {
			return nil, fmt.Errorf("index %s: bad end %q", q.Field, q.End)
		}
		return s.queryKeys(ctx, `
			SELECT DISTINCT key FROM indexes
			WHERE bucket = ? AND field = ? AND int_value >= ? AND int_value <= ?
			ORDER BY key ASC
		`, q.Bucket, q.Field, lo, hi)

	default:
		return s.queryKeys(ctx, `
			SELECT DISTINCT key FROM indexes
			WHERE bucket = ? AND field = ? AND value >= ? AND value <= ?
			ORDER BY key ASC
		`, q.Bucket, q.Field, q.Start, q.End)
	}
}

func bkeys(bucket string, keys []string) []mapred.BKey {
	out := make([]mapred.BKey, len(keys))
	for i, k := range keys {
		out[i] = mapred.BKey{Bucket: bucket, Key: k}
	}
	return out
}
