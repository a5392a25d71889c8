// Package collection owns the on-disk state of a galman collection.
//
// A collection root holds three partitions: the airlock (files awaiting a
// decision), the gallery (accepted files named by content identity), and the
// decision record, a SQLite database under the state directory that remembers
// every accepted and rejected identity. Store moves files between partitions
// so that an identity is only ever in one of them and a file is never lost:
// every transition either completes or leaves the file in the airlock.
//
// Only one Store may be open per collection; Open takes an exclusive flock on
// the state directory and fails with faults.ErrCollectionBusy otherwise.
package collection
