// Package table implements an in-memory, schema-light record store.
//
// # Overview
//
// A [Table] holds sparse records: each [Record] maps field names to a [Value],
// which is either a Number or a Text. A field has no declared type; its kind is
// fixed by the first value ever stored under that name, and later values are
// coerced to it or rejected with [ErrTypeMismatch].
//
// # Row Identity
//
// Every row gets a [RowID] from a per-table monotonic counter when inserted.
// IDs never change. Deleting rows leaves tombstones in the slot array, which is
// compacted once tombstones dominate; indexes only ever reference IDs.
//
// # Indexes
//
// Number fields are indexed by an ordered tree keyed by value, so range
// conditions walk only the matching keys. Text fields are indexed by a hash map
// and support equality only. Both map a key to a roaring bitmap of row IDs, so
// query results come out deduplicated and in ascending ID order.
//
// # Conditions
//
// Queries, updates and deletes take a single comparison such as `age >= 10` or
// `name == "bob"`. See [ParseCondition].
//
// A Table is not safe for concurrent use. Callers that share one between
// goroutines must serialize mutations and must not iterate a [Table.Query]
// sequence while mutating the table.
package table
