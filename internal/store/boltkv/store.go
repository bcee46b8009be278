// Package boltkv is a reference Store Client on bbolt.
//
// Each store bucket maps to a top-level bbolt bucket. Objects are msgpack
// encoded together with their links and index terms. The store has no
// secondary indexes: its buckets report a bitcask backend, so index inputs
// fail with client.ErrIndexUnsupported and the harness skips them.
package boltkv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/mapred"
)

func init() {
	client.Register("bolt", func(_ context.Context, addr string) (client.Client, error) {
		return Open(addr)
	})
}

// DefaultBackend is reported for every bucket unless replaced with
// SetBackend.
var DefaultBackend = client.BackendInfo{Name: "bitcask", Kind: client.BackendBitcask}

// Store implements client.Client backed by bbolt.
type Store struct {
	db      *bolt.DB
	backend client.BackendInfo
	named   map[string]client.BackendInfo
	logger  *slog.Logger
}

var _ client.Client = (*Store)(nil)

// Open opens (or creates) a bbolt database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{
		db:      db,
		backend: DefaultBackend,
		named:   map[string]client.BackendInfo{DefaultBackend.Name: DefaultBackend},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetBackend replaces the backend reported for every bucket. Named holds
// the backends reachable from a multi backend's target.
func (s *Store) SetBackend(info client.BackendInfo, named ...client.BackendInfo) {
	s.backend = info
	s.named = map[string]client.BackendInfo{info.Name: info}
	for _, n := range named {
		s.named[n.Name] = n
	}
}

// SetLogger replaces the logger used for capability warnings.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Put implements client.Client.
func (s *Store) Put(_ context.Context, obj mapred.Object, _ client.Quorum) error {
	data, err := encodeObject(obj)
	if err != nil {
		return fmt.Errorf("put %s: %w", obj.BKey(), err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(obj.Bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(obj.Key), data)
	})
}

// Delete implements client.Client. A missing bucket or key is
// client.ErrNotFound.
func (s *Store) Delete(_ context.Context, bucket, key string, _ client.Quorum) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil || b.Get([]byte(key)) == nil {
			return client.ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

// Get implements mapred.Source.
func (s *Store) Get(_ context.Context, bucket, key string) (mapred.Object, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return mapred.Object{}, false, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	if data == nil {
		return mapred.Object{}, false, nil
	}
	obj, err := decodeObject(data)
	if err != nil {
		return mapred.Object{}, false, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	obj.Bucket, obj.Key = bucket, key
	return obj, true, nil
}

// Keys implements mapred.Lister. Keys come back in byte order.
func (s *Store) Keys(_ context.Context, bucket string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// RunJob implements client.Client. Inputs are resolved by scanning.
func (s *Store) RunJob(ctx context.Context, in mapred.Input, job mapred.Job) (*mapred.Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	indexes := false
	if q, ok := in.(mapred.IndexInput); ok {
		indexes = client.SupportsIndexes(ctx, s, q.Bucket, s.logger)
	}
	inputs, err := mapred.Resolve(ctx, s, in, indexes)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", in.Describe(), err)
	}
	return mapred.Execute(ctx, s, inputs, job)
}

// Backend implements client.CapabilityProber.
func (s *Store) Backend(context.Context, string) (client.BackendInfo, error) {
	return s.backend, nil
}

// NamedBackend implements client.CapabilityProber.
func (s *Store) NamedBackend(_ context.Context, name string) (client.BackendInfo, error) {
	info, ok := s.named[name]
	if !ok {
		return client.BackendInfo{}, fmt.Errorf("unknown backend %q", name)
	}
	return info, nil
}
