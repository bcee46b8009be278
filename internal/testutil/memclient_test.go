package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/mapred"
)

func TestMemClient_PutDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemClient()

	require.NoError(t, m.Put(ctx, mapred.Object{Bucket: "b", Key: "k"}, client.DefaultQuorum))
	assert.Equal(t, 1, m.Len("b"))

	require.NoError(t, m.Delete(ctx, "b", "k", client.DefaultQuorum))
	assert.ErrorIs(t, m.Delete(ctx, "b", "k", client.DefaultQuorum), client.ErrNotFound)
	assert.Equal(t, 0, m.Len("b"))
	assert.Len(t, m.Deletes, 2)
}

func TestMemClient_RunJobRecordsCalls(t *testing.T) {
	ctx := context.Background()
	m := NewMemClient()
	require.NoError(t, m.Put(ctx, mapred.Object{Bucket: "b", Key: "k1"}, client.DefaultQuorum))
	require.NoError(t, m.Put(ctx, mapred.Object{Bucket: "b", Key: "k2"}, client.DefaultQuorum))

	job := mapred.Job{{Reduce: &mapred.FunSpec{Fun: mapred.ReduceCountInputs}}}
	res, err := m.RunJob(ctx, mapred.BucketInput{Bucket: "b"}, job)
	require.NoError(t, err)
	assert.Equal(t, []mapred.Value{mapred.IntValue(2)}, res.Last())
	require.Len(t, m.Jobs, 1)
	assert.Equal(t, mapred.BucketInput{Bucket: "b"}, m.Jobs[0].Input)
}

func TestMemClient_DefaultBackendSupportsIndexes(t *testing.T) {
	m := NewMemClient()
	assert.True(t, client.SupportsIndexes(context.Background(), m, "b", nil))

	m.Backends["b"] = client.BackendInfo{Name: "bc", Kind: client.BackendBitcask}
	assert.False(t, client.SupportsIndexes(context.Background(), m, "b", nil))
}
