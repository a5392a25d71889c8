// Package identity computes content identities for media files.
//
// An Identity pairs the lowercase hex SHA-256 of a file's bytes with its size.
// Its canonical string form "<hash>_<size>" names accepted files in the
// gallery and keys the decision record, so two files with the same bytes are
// the same item regardless of their names or timestamps.
package identity
