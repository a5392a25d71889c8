package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"galman/internal/identity"
)

// Verdict is the recorded outcome for an identity.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// Decision is one row of the decision record.
type Decision struct {
	Identity  identity.Identity
	Verdict   Verdict
	Name      string
	DecidedAt time.Time
}

func (s *Store) lookupVerdict(ctx context.Context, id identity.Identity) (Verdict, bool, error) {
	var verdict string
	err := s.db.QueryRowContext(ctx, "SELECT verdict FROM decisions WHERE identity = ?", id.String()).Scan(&verdict)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup decision %s: %w", id, err)
	}
	return Verdict(verdict), true, nil
}

// recordDecision inserts a row unless the identity already has one. It reports
// whether a row was written.
func (s *Store) recordDecision(ctx context.Context, id identity.Identity, verdict Verdict, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO decisions (identity, sha256, size, verdict, name, decided_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(),
		id.Hash,
		id.Size,
		string(verdict),
		nullableString(name),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("record %s decision for %s: %w", verdict, id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// Lookup returns the recorded decision for id, if any.
func (s *Store) Lookup(ctx context.Context, id identity.Identity) (*Decision, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT sha256, size, verdict, name, decided_at FROM decisions WHERE identity = ?", id.String())
	var (
		decision  Decision
		name      sql.NullString
		decidedAt string
		verdict   string
	)
	err := row.Scan(&decision.Identity.Hash, &decision.Identity.Size, &verdict, &name, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup decision %s: %w", id, err)
	}
	decision.Verdict = Verdict(verdict)
	decision.Name = name.String
	if ts, parseErr := time.Parse(time.RFC3339Nano, decidedAt); parseErr == nil {
		decision.DecidedAt = ts
	}
	return &decision, nil
}

// IsKnown reports whether id has been decided before: it has a decision row or
// a gallery file carries its canonical name.
func (s *Store) IsKnown(ctx context.Context, id identity.Identity) (bool, error) {
	if _, found, err := s.lookupVerdict(ctx, id); err != nil || found {
		return found, err
	}
	_, inGallery, err := s.galleryFile(id)
	return inGallery, err
}

// galleryFile finds the gallery file named after id, whatever its extension.
// The collection root may contain glob metacharacters, so names are compared
// directly instead of through a pattern.
func (s *Store) galleryFile(id identity.Identity) (string, bool, error) {
	entries, err := os.ReadDir(s.layout.Gallery)
	if err != nil {
		return "", false, fmt.Errorf("scan gallery: %w", err)
	}
	prefix := id.String()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if got, ok := identity.FromFileName(name); ok && got == id {
			return filepath.Join(s.layout.Gallery, name), true, nil
		}
	}
	return "", false, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
