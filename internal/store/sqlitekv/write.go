package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/mapred"
)

// Put stores obj, replacing any previous value together with its links and
// index terms. The quorum is accepted for interface compatibility; a single
// SQLite file has one replica.
func (s *Store) Put(ctx context.Context, obj mapred.Object, _ client.Quorum) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put %s: %w", obj.BKey(), err)
	}
	defer tx.Rollback()

	if err := putTx(ctx, tx, obj); err != nil {
		return fmt.Errorf("put %s: %w", obj.BKey(), err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put %s: %w", obj.BKey(), err)
	}
	return nil
}

func putTx(ctx context.Context, tx *sql.Tx, obj mapred.Object) error {
	value := obj.Value
	if value == nil {
		value = []byte{}
	}
	// Replacing the row cascades to the old links and index terms.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM objects WHERE bucket = ? AND key = ?
	`, obj.Bucket, obj.Key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO objects (bucket, key, value, content_type)
		VALUES (?, ?, ?, ?)
	`, obj.Bucket, obj.Key, value, obj.ContentType); err != nil {
		return err
	}

	for i, l := range obj.Links {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO links (bucket, key, seq, target_bucket, target_key, tag)
			VALUES (?, ?, ?, ?, ?, ?)
		`, obj.Bucket, obj.Key, i, l.Bucket, l.Key, l.Tag); err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}
	}

	for _, e := range obj.Indexes {
		var intValue any
		if mapred.IsIntField(e.Field) {
			n, err := strconv.Atoi(e.Value)
			if err != nil {
				return fmt.Errorf("index %s: %q is not an integer", e.Field, e.Value)
			}
			intValue = n
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO indexes (bucket, key, field, value, int_value)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, obj.Bucket, obj.Key, e.Field, e.Value, intValue); err != nil {
			return fmt.Errorf("index %s: %w", e.Field, err)
		}
	}
	return nil
}

// Delete removes an object. It returns client.ErrNotFound when no object
// was stored under the key.
func (s *Store) Delete(ctx context.Context, bucket, key string, _ client.Quorum) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM objects WHERE bucket = ? AND key = ?
	`, bucket, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	if n == 0 {
		return client.ErrNotFound
	}
	return nil
}

// DefineBackend creates or replaces a named backend.
func (s *Store) DefineBackend(ctx context.Context, info client.BackendInfo) error {
	if info.Name == "" {
		return fmt.Errorf("define backend: name is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backends (name, kind, target) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, target = excluded.target
	`, info.Name, string(info.Kind), info.Target)
	if err != nil {
		return fmt.Errorf("define backend %s: %w", info.Name, err)
	}
	return nil
}

// AssignBucket routes bucket to a named backend.
func (s *Store) AssignBucket(ctx context.Context, bucket, backend string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bucket_backends (bucket, backend) VALUES (?, ?)
		ON CONFLICT(bucket) DO UPDATE SET backend = excluded.backend
	`, bucket, backend)
	if err != nil {
		return fmt.Errorf("assign bucket %s: %w", bucket, err)
	}
	return nil
}
