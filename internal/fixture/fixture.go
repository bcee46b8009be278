// Package fixture creates and destroys the deterministic dataset in the
// store under test.
//
// All operations are sequential and unretried. "Not found" while clearing
// is success; every other error aborts with a *FixtureError.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/dataset"
	"github.com/roach88/mrverify/internal/mapred"
)

// ContentType of fixture bodies.
const ContentType = "application/octet-stream"

// FixtureError reports a write or delete failure during population.
type FixtureError struct {
	Op     string // "put" or "delete"
	Bucket string
	Key    string
	Err    error
}

func (e *FixtureError) Error() string {
	return fmt.Sprintf("fixture %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *FixtureError) Unwrap() error { return e.Err }

// ClearBound returns the number of candidate keys cleared before populating
// count records: floor(1.25 * count).
func ClearBound(count int) int {
	return count + count/4
}

// Populator writes fixtures through a Store Client.
type Populator struct {
	Client client.Client
	Bucket string
	Quorum client.Quorum
	Logger *slog.Logger
}

// New returns a Populator with the default quorum.
func New(c client.Client, bucket string, logger *slog.Logger) *Populator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Populator{Client: c, Bucket: bucket, Quorum: client.DefaultQuorum, Logger: logger}
}

// Clear deletes KeyFor(upperBound) down to KeyFor(1).
func (p *Populator) Clear(ctx context.Context, upperBound int) error {
	p.Logger.Info("clearing fixtures", "bucket", p.Bucket, "upper_bound", upperBound)
	deleted := 0
	for n := upperBound; n >= 1; n-- {
		key := dataset.KeyFor(n)
		err := p.Client.Delete(ctx, p.Bucket, key, p.Quorum)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, client.ErrNotFound):
		default:
			return &FixtureError{Op: "delete", Bucket: p.Bucket, Key: key, Err: err}
		}
	}
	p.Logger.Info("fixtures cleared", "bucket", p.Bucket, "deleted", deleted)
	return nil
}

// Populate writes records KeyFor(count) down to KeyFor(1), each with a body
// of bodySize bytes, prev/next links and both index fields.
func (p *Populator) Populate(ctx context.Context, bodySize, count int) error {
	p.Logger.Info("populating fixtures", "bucket", p.Bucket, "count", count, "body_size", bodySize)
	for n := count; n >= 1; n-- {
		rec, err := dataset.RecordFor(p.Bucket, n, bodySize)
		if err != nil {
			return &FixtureError{Op: "put", Bucket: p.Bucket, Key: dataset.KeyFor(n), Err: err}
		}
		if err := p.Client.Put(ctx, ObjectFor(rec), p.Quorum); err != nil {
			return &FixtureError{Op: "put", Bucket: p.Bucket, Key: rec.Key, Err: err}
		}
	}
	p.Logger.Info("fixtures populated", "bucket", p.Bucket, "count", count)
	return nil
}

// Setup clears ClearBound(count) candidate keys and then populates count
// records, leaving exactly KeyFor(1..count) in the bucket.
func (p *Populator) Setup(ctx context.Context, bodySize, count int) error {
	if err := p.Clear(ctx, ClearBound(count)); err != nil {
		return err
	}
	return p.Populate(ctx, bodySize, count)
}

// ObjectFor converts a fixture record to a storable object.
func ObjectFor(rec dataset.Record) mapred.Object {
	return mapred.Object{
		Bucket:      rec.Bucket,
		Key:         rec.Key,
		Value:       rec.Body,
		ContentType: ContentType,
		Links: []mapred.Link{
			{Bucket: rec.Bucket, Key: rec.Links.Prev, Tag: dataset.TagPrev},
			{Bucket: rec.Bucket, Key: rec.Links.Next, Tag: dataset.TagNext},
		},
		Indexes: []mapred.IndexEntry{
			{Field: dataset.BinField, Value: rec.Indexes.Bin},
			{Field: dataset.IntField, Value: strconv.Itoa(rec.Indexes.Int)},
		},
	}
}
