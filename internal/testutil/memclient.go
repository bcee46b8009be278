package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/mapred"
)

// JobCall records one RunJob invocation.
type JobCall struct {
	Input mapred.Input
	Job   mapred.Job
}

// MemClient is an in-memory client.Client for tests.
//
// It evaluates jobs with the reference executor, records every call, and
// lets tests inject failures through the *Err hooks.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemClient struct {
	mu      sync.Mutex
	objects map[mapred.BKey]mapred.Object

	// Backends maps bucket name to its backend. Buckets without an entry
	// are served by a leveldb backend named "default".
	Backends map[string]client.BackendInfo
	// Named holds backends reachable through multi-backend targets.
	Named map[string]client.BackendInfo

	// PutErr, DeleteErr and JobErr, when non-nil, are consulted before the
	// operation; a non-nil return fails the call.
	PutErr    func(obj mapred.Object) error
	DeleteErr func(bucket, key string) error
	JobErr    func(in mapred.Input) error

	Puts    []mapred.BKey
	Deletes []mapred.BKey
	Jobs    []JobCall
	Probes  int
	Closed  bool
}

var _ client.Client = (*MemClient)(nil)

// NewMemClient returns an empty in-memory client.
func NewMemClient() *MemClient {
	return &MemClient{
		objects:  make(map[mapred.BKey]mapred.Object),
		Backends: make(map[string]client.BackendInfo),
		Named:    make(map[string]client.BackendInfo),
	}
}

// Put implements client.Client.
func (m *MemClient) Put(_ context.Context, obj mapred.Object, _ client.Quorum) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		if err := m.PutErr(obj); err != nil {
			return err
		}
	}
	m.Puts = append(m.Puts, obj.BKey())
	m.objects[obj.BKey()] = obj
	return nil
}

// Delete implements client.Client.
func (m *MemClient) Delete(_ context.Context, bucket, key string, _ client.Quorum) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		if err := m.DeleteErr(bucket, key); err != nil {
			return err
		}
	}
	k := mapred.BKey{Bucket: bucket, Key: key}
	m.Deletes = append(m.Deletes, k)
	if _, ok := m.objects[k]; !ok {
		return client.ErrNotFound
	}
	delete(m.objects, k)
	return nil
}

// RunJob implements client.Client.
func (m *MemClient) RunJob(ctx context.Context, in mapred.Input, job mapred.Job) (*mapred.Result, error) {
	m.mu.Lock()
	m.Jobs = append(m.Jobs, JobCall{Input: in, Job: job})
	hook := m.JobErr
	m.mu.Unlock()

	if hook != nil {
		if err := hook(in); err != nil {
			return nil, err
		}
	}
	inputs, err := mapred.Resolve(ctx, m, in, true)
	if err != nil {
		return nil, err
	}
	return mapred.Execute(ctx, m, inputs, job)
}

// Backend implements client.CapabilityProber.
func (m *MemClient) Backend(_ context.Context, bucket string) (client.BackendInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Probes++
	if info, ok := m.Backends[bucket]; ok {
		return info, nil
	}
	return client.BackendInfo{Name: "default", Kind: client.BackendLevelDB}, nil
}

// NamedBackend implements client.CapabilityProber.
func (m *MemClient) NamedBackend(_ context.Context, name string) (client.BackendInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Probes++
	info, ok := m.Named[name]
	if !ok {
		return client.BackendInfo{}, fmt.Errorf("unknown backend %q", name)
	}
	return info, nil
}

// Close implements client.Client.
func (m *MemClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Get implements mapred.Source.
func (m *MemClient) Get(_ context.Context, bucket, key string) (mapred.Object, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[mapred.BKey{Bucket: bucket, Key: key}]
	return obj, ok, nil
}

// Keys implements mapred.Lister. Keys are returned in lexical order.
func (m *MemClient) Keys(_ context.Context, bucket string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if k.Bucket == bucket {
			keys = append(keys, k.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored objects in bucket.
func (m *MemClient) Len(bucket string) int {
	keys, _ := m.Keys(context.Background(), bucket)
	return len(keys)
}
