// Package fileutil holds the durable file operations galman's partitions rely
// on: verified copies, moves that survive cross-device boundaries, and
// directory fsyncs.
package fileutil
