// Package faults defines the error taxonomy shared by galman components.
//
// Sentinel markers classify failures (hashing, store transitions, import
// sources, viewer signals, lock contention) and FileError carries the file and
// operation a per-file failure belongs to. Callers classify with errors.Is and
// extract the path with errors.As.
package faults
