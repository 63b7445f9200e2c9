// Package syncer implements directory-to-database reconciliation: it walks a
// remote entry set once, maps entry attributes onto local record fields,
// creates, updates or removes local records to match, and maintains a durable
// cross-reference between each local record identity and the distinguished
// name that produced it.
//
// A Synchronizer performs a single sequential pass with no internal
// parallelism; callers are expected to serialize concurrent runs against the
// same entity type externally.
package syncer
