// Package importer copies new media files from a source tree into a
// collection's airlock.
//
// An import walks the source recursively, drops files matching the ignore
// patterns, hashes every remaining regular file, and admits only identities
// the collection has never decided and the current batch has not already
// admitted. Directory structure is not preserved. Per-file failures are
// logged and counted; only an unusable source root aborts the import.
package importer
