package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/mapred"
)

// defaultBackend serves buckets without an assignment.
var defaultBackend = client.BackendInfo{Name: "default", Kind: client.BackendLevelDB}

// Get implements mapred.Source. Links come back in insertion order and
// index terms ordered by field then value.
func (s *Store) Get(ctx context.Context, bucket, key string) (mapred.Object, bool, error) {
	obj := mapred.Object{Bucket: bucket, Key: key}
	err := s.db.QueryRowContext(ctx, `
		SELECT value, content_type FROM objects WHERE bucket = ? AND key = ?
	`, bucket, key).Scan(&obj.Value, &obj.ContentType)
	if errors.Is(err, sql.ErrNoRows) {
		return mapred.Object{}, false, nil
	}
	if err != nil {
		return mapred.Object{}, false, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}

	links, err := s.db.QueryContext(ctx, `
		SELECT target_bucket, target_key, tag FROM links
		WHERE bucket = ? AND key = ?
		ORDER BY seq ASC
	`, bucket, key)
	if err != nil {
		return mapred.Object{}, false, fmt.Errorf("get %s/%s links: %w", bucket, key, err)
	}
	defer links.Close()
	for links.Next() {
		var l mapred.Link
		if err := links.Scan(&l.Bucket, &l.Key, &l.Tag); err != nil {
			return mapred.Object{}, false, fmt.Errorf("scan link: %w", err)
		}
		obj.Links = append(obj.Links, l)
	}
	if err := links.Err(); err != nil {
		return mapred.Object{}, false, err
	}

	idx, err := s.db.QueryContext(ctx, `
		SELECT field, value FROM indexes
		WHERE bucket = ? AND key = ?
		ORDER BY field ASC, value ASC
	`, bucket, key)
	if err != nil {
		return mapred.Object{}, false, fmt.Errorf("get %s/%s indexes: %w", bucket, key, err)
	}
	defer idx.Close()
	for idx.Next() {
		var e mapred.IndexEntry
		if err := idx.Scan(&e.Field, &e.Value); err != nil {
			return mapred.Object{}, false, fmt.Errorf("scan index: %w", err)
		}
		obj.Indexes = append(obj.Indexes, e)
	}
	if err := idx.Err(); err != nil {
		return mapred.Object{}, false, err
	}
	return obj, true, nil
}

// Keys implements mapred.Lister. Keys are returned in binary order.
func (s *Store) Keys(ctx context.Context, bucket string) ([]string, error) {
	return s.queryKeys(ctx, `
		SELECT key FROM objects WHERE bucket = ?
		ORDER BY key ASC
	`, bucket)
}

func (s *Store) queryKeys(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Backend implements client.CapabilityProber.
func (s *Store) Backend(ctx context.Context, bucket string) (client.BackendInfo, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT backend FROM bucket_backends WHERE bucket = ?
	`, bucket).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultBackend, nil
	}
	if err != nil {
		return client.BackendInfo{}, fmt.Errorf("backend for %s: %w", bucket, err)
	}
	return s.NamedBackend(ctx, name)
}

// NamedBackend implements client.CapabilityProber.
func (s *Store) NamedBackend(ctx context.Context, name string) (client.BackendInfo, error) {
	info := client.BackendInfo{Name: name}
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, target FROM backends WHERE name = ?
	`, name).Scan(&kind, &info.Target)
	if errors.Is(err, sql.ErrNoRows) {
		if name == defaultBackend.Name {
			return defaultBackend, nil
		}
		return client.BackendInfo{}, fmt.Errorf("unknown backend %q", name)
	}
	if err != nil {
		return client.BackendInfo{}, fmt.Errorf("backend %s: %w", name, err)
	}
	info.Kind = client.BackendKind(kind)
	return info, nil
}
