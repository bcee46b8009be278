// Package sqlitekv is a reference Store Client on SQLite.
//
// Objects, their links and their secondary index terms live in three
// tables keyed by (bucket, key). Bulk inputs are resolved in SQL: key
// filters compile to WHERE clauses and index queries read the indexes
// table directly. Phase execution is shared with every other client
// through mapred.Execute.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Links and index terms are removed with their object
//
// The connection registers two SQL functions, regexp(pattern, s) and
// fold_lower/fold_upper, so compiled filters evaluate exactly like the
// keyfilter package does in memory.
//
// Buckets are served by an indexed "eleveldb" backend unless a backend is
// assigned with AssignBucket.
package sqlitekv
