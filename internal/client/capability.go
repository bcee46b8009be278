package client

import (
	"context"
	"log/slog"
)

// BackendKind names a storage backend implementation.
type BackendKind string

// Known backend kinds. Multi is a compound backend that defers to a named
// sub-backend per bucket.
const (
	BackendLevelDB BackendKind = "eleveldb"
	BackendMemory  BackendKind = "memory"
	BackendBitcask BackendKind = "bitcask"
	BackendMulti   BackendKind = "multi"
)

// MaxBackendDepth bounds how many multi-backend indirections are followed
// while resolving index support.
const MaxBackendDepth = 2

// BackendInfo describes a backend. For BackendMulti, Target names the
// sub-backend used for the bucket being probed.
type BackendInfo struct {
	Name   string      `json:"name"`
	Kind   BackendKind `json:"kind"`
	Target string      `json:"target,omitempty"`
}

// CapabilityProber reports backend configuration.
type CapabilityProber interface {
	// Backend returns the backend serving bucket.
	Backend(ctx context.Context, bucket string) (BackendInfo, error)

	// NamedBackend returns a backend by name, as referenced from a multi
	// backend's Target.
	NamedBackend(ctx context.Context, name string) (BackendInfo, error)
}

// SupportsIndexes reports whether the backend serving bucket supports
// secondary indexes.
//
// Multi backends are followed through their Target at most MaxBackendDepth
// times. Probe errors, unknown kinds, cycles and deeper chains all resolve
// to false.
func SupportsIndexes(ctx context.Context, p CapabilityProber, bucket string, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := p.Backend(ctx, bucket)
	if err != nil {
		logger.Warn("backend probe failed", "bucket", bucket, "error", err)
		return false
	}

	seen := map[string]bool{info.Name: true}
	for depth := 0; ; depth++ {
		switch info.Kind {
		case BackendLevelDB, BackendMemory:
			return true
		case BackendMulti:
		default:
			return false
		}

		if depth >= MaxBackendDepth {
			logger.Warn("backend indirection too deep", "bucket", bucket, "backend", info.Name, "max_depth", MaxBackendDepth)
			return false
		}
		if info.Target == "" || seen[info.Target] {
			logger.Warn("unresolvable multi backend", "bucket", bucket, "backend", info.Name, "target", info.Target)
			return false
		}
		seen[info.Target] = true

		info, err = p.NamedBackend(ctx, info.Target)
		if err != nil {
			logger.Warn("backend probe failed", "bucket", bucket, "error", err)
			return false
		}
	}
}
