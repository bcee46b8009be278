// Package client defines the Store Client collaborator: the operations the
// verification harness needs from the key/value store under test.
//
// The harness never talks to a store directly. It depends on the Client
// interface and on the capability probe, so any transport (a cluster
// protocol, an HTTP gateway, an embedded reference store) can be plugged in
// through Register/Connect.
package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/mrverify/internal/mapred"
)

// ErrNotFound is returned by Delete when the key does not exist.
var ErrNotFound = errors.New("not found")

// ErrIndexUnsupported is returned by RunJob for index inputs on a backend
// without secondary index support.
var ErrIndexUnsupported = mapred.ErrIndexUnsupported

// Quorum is the number of replicas that must acknowledge a write or delete.
// Embedded stores have one replica and accept any positive quorum.
type Quorum int

// DefaultQuorum matches the write quorum used for fixture population.
const DefaultQuorum Quorum = 1

// Client is the Store Client capability.
type Client interface {
	// Put stores obj, replacing any previous value, links and indexes.
	Put(ctx context.Context, obj mapred.Object, w Quorum) error

	// Delete removes bucket/key. Returns ErrNotFound for a missing key.
	Delete(ctx context.Context, bucket, key string, rw Quorum) error

	// RunJob executes an aggregation job and returns its result. Transport,
	// timeout and shape errors are returned as-is.
	RunJob(ctx context.Context, in mapred.Input, job mapred.Job) (*mapred.Result, error)

	CapabilityProber

	// Close releases the connection.
	Close() error
}

// Connector opens a Client for a node address (the part after "scheme:").
type Connector func(ctx context.Context, addr string) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Connector{}
)

// Register makes a connector available under scheme. It panics if the
// scheme is registered twice.
func Register(scheme string, c Connector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[scheme]; dup {
		panic("client: Register called twice for scheme " + scheme)
	}
	registry[scheme] = c
}

// Schemes returns the registered schemes in sorted order.
func Schemes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Connect opens a Client for nodeRef of the form "scheme:address".
func Connect(ctx context.Context, nodeRef string) (Client, error) {
	scheme, addr, ok := strings.Cut(nodeRef, ":")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("invalid node reference %q: expected scheme:address", nodeRef)
	}
	registryMu.RLock()
	conn, found := registry[scheme]
	registryMu.RUnlock()
	if !found {
		return nil, fmt.Errorf("unknown node scheme %q (known: %s)", scheme, strings.Join(Schemes(), ", "))
	}
	c, err := conn(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", nodeRef, err)
	}
	return c, nil
}
