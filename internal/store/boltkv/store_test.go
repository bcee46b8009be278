package boltkv

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/fixture"
	"github.com/roach88/mrverify/internal/harness"
	"github.com/roach88/mrverify/internal/mapred"
	"github.com/roach88/mrverify/internal/oracle"
)

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestPutGet_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	want := mapred.Object{
		Bucket:      "b",
		Key:         "mrv2",
		Value:       []byte("xxx$"),
		ContentType: fixture.ContentType,
		Links:       []mapred.Link{{Bucket: "b", Key: "mrv1", Tag: "prev"}, {Bucket: "b", Key: "mrv3", Tag: "next"}},
		Indexes:     []mapred.IndexEntry{{Field: "field_bin", Value: "a"}, {Field: "field_int", Value: "2"}},
	}

	require.NoError(t, s.Put(ctx, want, client.DefaultQuorum))

	got, found, err := s.Get(ctx, "b", "mrv2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestGet_MissingBucketAndKey(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.Get(ctx, "nobucket", "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, mapred.Object{Bucket: "b", Key: "k", Value: []byte("v")}, client.DefaultQuorum))
	_, found, err = s.Get(ctx, "b", "other")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.True(t, errors.Is(s.Delete(ctx, "b", "k", client.DefaultQuorum), client.ErrNotFound))

	require.NoError(t, s.Put(ctx, mapred.Object{Bucket: "b", Key: "k", Value: []byte("v")}, client.DefaultQuorum))
	require.NoError(t, s.Delete(ctx, "b", "k", client.DefaultQuorum))
	assert.True(t, errors.Is(s.Delete(ctx, "b", "k", client.DefaultQuorum), client.ErrNotFound))
}

func TestReopen_Persists(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, mapred.Object{Bucket: "b", Key: "k", Value: []byte("v")}, client.DefaultQuorum))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	keys, err := s2.Keys(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestRunJob_IndexUnsupported(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.RunJob(context.Background(), mapred.BucketIndex("b"), mapred.Job{{Map: &mapred.FunSpec{Fun: mapred.MapKey}}})
	assert.True(t, errors.Is(err, client.ErrIndexUnsupported))
}

func TestRunJob_IndexesThroughMultiBackend(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.SetBackend(
		client.BackendInfo{Name: "mux", Kind: client.BackendMulti, Target: "mem"},
		client.BackendInfo{Name: "mem", Kind: client.BackendMemory},
	)
	require.NoError(t, fixture.New(s, "b", nil).Setup(ctx, 4, 10))

	res, err := s.RunJob(ctx, mapred.IndexIntEq("b", "field_int", 1), mapred.Job{{Reduce: &mapred.FunSpec{Fun: mapred.ReduceCountInputs}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Last()[0].Int)
}

func TestConnect_BoltScheme(t *testing.T) {
	c, err := client.Connect(context.Background(), "bolt:"+filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	defer c.Close()
	_, ok := c.(*Store)
	assert.True(t, ok)
}

// Non-indexed stores pass every non-index sub-case and skip the rest.
func TestRunner_AgreesWithOracle(t *testing.T) {
	cat, err := harness.LoadCatalog("../../../priv/tests.def")
	require.NoError(t, err)

	for _, k := range []int{20, 100} {
		s, _ := newTestStore(t)
		require.NoError(t, fixture.New(s, "mrbucket", nil).Setup(context.Background(), 8, k))

		r := &harness.Runner{Client: s, Oracle: oracle.New(k, "mrbucket", rand.New(rand.NewSource(1)))}
		report, err := r.Run(context.Background(), cat)
		require.NoError(t, err)
		assert.Zero(t, report.Failed)
		for _, sc := range report.Scenarios {
			for _, o := range sc.Outcomes {
				assert.True(t, o.Passed, "k=%d %s/%s: %s", k, o.Label, o.SubCase, o.Reason)
				assert.Equal(t, o.SubCase.IsIndex(), o.Skipped)
			}
		}
	}
}
