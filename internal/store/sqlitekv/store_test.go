package sqlitekv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/mapred"
)

// setupTestStore creates a store in a temp directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleObject(key string) mapred.Object {
	return mapred.Object{
		Bucket:      "b",
		Key:         key,
		Value:       []byte("xx$"),
		ContentType: "application/octet-stream",
		Links: []mapred.Link{
			{Bucket: "b", Key: "prev-" + key, Tag: "prev"},
			{Bucket: "b", Key: "next-" + key, Tag: "next"},
		},
		Indexes: []mapred.IndexEntry{
			{Field: "field_bin", Value: "a"},
			{Field: "field_int", Value: "7"},
		},
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := setupTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, sampleObject("k"), client.DefaultQuorum))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	_, found, err := s2.Get(ctx, "b", "k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	want := sampleObject("mrv1")

	require.NoError(t, s.Put(ctx, want, client.DefaultQuorum))

	got, found, err := s.Get(ctx, "b", "mrv1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestGet_Missing(t *testing.T) {
	s := setupTestStore(t)
	_, found, err := s.Get(context.Background(), "b", "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPut_ReplacesLinksAndIndexes(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleObject("k"), client.DefaultQuorum))
	replacement := mapred.Object{Bucket: "b", Key: "k", Value: []byte("v")}
	require.NoError(t, s.Put(ctx, replacement, client.DefaultQuorum))

	got, _, err := s.Get(ctx, "b", "k")
	require.NoError(t, err)
	assert.Empty(t, got.Links)
	assert.Empty(t, got.Indexes)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM indexes`).Scan(&n))
	assert.Zero(t, n)
}

func TestPut_RejectsNonIntegerIntIndex(t *testing.T) {
	s := setupTestStore(t)
	obj := mapred.Object{Bucket: "b", Key: "k", Indexes: []mapred.IndexEntry{{Field: "n_int", Value: "seven"}}}

	err := s.Put(context.Background(), obj, client.DefaultQuorum)
	assert.ErrorContains(t, err, "not an integer")

	_, found, _ := s.Get(context.Background(), "b", "k")
	assert.False(t, found, "failed put must not leave a partial object")
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleObject("k"), client.DefaultQuorum))

	require.NoError(t, s.Delete(ctx, "b", "k", client.DefaultQuorum))

	err := s.Delete(ctx, "b", "k", client.DefaultQuorum)
	assert.True(t, errors.Is(err, client.ErrNotFound))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM links`).Scan(&n))
	assert.Zero(t, n, "links cascade with their object")
}

func TestKeys_BinaryOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, k := range []string{"mrv2", "mrv10", "mrv1"} {
		require.NoError(t, s.Put(ctx, mapred.Object{Bucket: "b", Key: k}, client.DefaultQuorum))
	}
	require.NoError(t, s.Put(ctx, mapred.Object{Bucket: "other", Key: "z"}, client.DefaultQuorum))

	keys, err := s.Keys(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"mrv1", "mrv10", "mrv2"}, keys)
}

func TestBackends(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	info, err := s.Backend(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, client.BackendLevelDB, info.Kind)
	assert.True(t, client.SupportsIndexes(ctx, s, "b", nil))

	require.NoError(t, s.DefineBackend(ctx, client.BackendInfo{Name: "mux", Kind: client.BackendMulti, Target: "bc"}))
	require.NoError(t, s.DefineBackend(ctx, client.BackendInfo{Name: "bc", Kind: client.BackendBitcask}))
	require.NoError(t, s.AssignBucket(ctx, "b", "mux"))

	info, err = s.Backend(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, client.BackendInfo{Name: "mux", Kind: client.BackendMulti, Target: "bc"}, info)
	assert.False(t, client.SupportsIndexes(ctx, s, "b", nil))

	_, err = s.NamedBackend(ctx, "ghost")
	assert.Error(t, err)
}

func TestConnect_SQLiteScheme(t *testing.T) {
	c, err := client.Connect(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	defer c.Close()
	_, ok := c.(*Store)
	assert.True(t, ok)
}

func TestDelete_CascadesOnFreshConnections(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	// Every statement now runs on a newly opened connection.
	s.db.SetMaxIdleConns(0)

	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))

	require.NoError(t, s.Put(ctx, sampleObject("k"), client.DefaultQuorum))
	require.NoError(t, s.Delete(ctx, "b", "k", client.DefaultQuorum))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM indexes`).Scan(&n))
	assert.Zero(t, n, "index terms cascade with their object")

	res, err := s.RunJob(ctx, mapred.IndexEq("b", "field_bin", "a"), mapred.Job{{Map: &mapred.FunSpec{Fun: mapred.MapKey}}})
	require.NoError(t, err)
	assert.Empty(t, res.Last())
}
