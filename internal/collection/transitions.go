package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"galman/internal/faults"
	"galman/internal/fileutil"
	"galman/internal/identity"
	"galman/internal/logging"
)

// AcceptIntoGallery moves an airlock file into the gallery under its identity
// name and records the acceptance.
//
// If the gallery already holds the identity, the incoming copy is discarded.
// If the identity was previously rejected, the copy is deleted to complete the
// rejection and the returned error wraps faults.ErrAlreadyRejected. Any other
// failure leaves the file in the airlock.
func (s *Store) AcceptIntoGallery(ctx context.Context, airlockPath string) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "accept"
	if err := s.checkAirlockPath(op, airlockPath); err != nil {
		return identity.Identity{}, err
	}

	id, err := s.hasher.Identify(ctx, airlockPath)
	if err != nil {
		return identity.Identity{}, err
	}
	logger := s.logger.With(logging.Identity(id.String()), logging.Path(airlockPath))

	verdict, found, err := s.lookupVerdict(ctx, id)
	if err != nil {
		return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
	}
	if found && verdict == VerdictRejected {
		if err := fileutil.RemoveDurably(airlockPath); err != nil {
			return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
		}
		logging.WarnWithContext(logger, "accept refused; identity was rejected earlier", "accept_already_rejected",
			logging.String(logging.FieldImpact, "airlock copy deleted"),
			logging.String(logging.FieldErrorHint, faults.Hint(faults.ErrAlreadyRejected)),
		)
		return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, faults.ErrAlreadyRejected)
	}

	if existing, inGallery, err := s.galleryFile(id); err != nil {
		return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
	} else if inGallery {
		if err := fileutil.RemoveDurably(airlockPath); err != nil {
			return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
		}
		s.recordAccepted(ctx, id, filepath.Base(existing))
		logger.Info("duplicate discarded; identity already in gallery",
			logging.String(logging.FieldEventType, "accept_duplicate"),
			logging.String("gallery_file", existing),
		)
		return id, nil
	}

	dest := filepath.Join(s.layout.Gallery, id.FileName(filepath.Ext(airlockPath)))
	if err := fileutil.Move(ctx, airlockPath, dest); err != nil {
		return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, fmt.Errorf("move to gallery: %w", err))
	}
	s.recordAccepted(ctx, id, filepath.Base(airlockPath))

	logger.Info("file accepted",
		logging.String(logging.FieldEventType, "file_accepted"),
		logging.String(logging.FieldVerdict, string(VerdictAccepted)),
		logging.String("gallery_file", dest),
	)
	return id, nil
}

// recordAccepted writes the accepted row once the gallery file is in place. A
// failure here is not fatal: the gallery file already makes the identity known
// and Reconcile records it on the next Open.
func (s *Store) recordAccepted(ctx context.Context, id identity.Identity, name string) {
	if _, err := s.recordDecision(ctx, id, VerdictAccepted, name); err != nil {
		logging.WarnWithContext(s.logger, "accepted decision not recorded", "decision_record_deferred",
			logging.Identity(id.String()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "decision will be recorded from the gallery on next start"),
		)
	}
}

// RejectFromAirlock records id as rejected and deletes the airlock file. The
// rejection is committed before the bytes are removed, so a crash in between
// leaves a file whose next accept or reject completes the deletion.
//
// If the identity is already accepted the airlock file is a redundant copy: it
// is deleted and no rejection is recorded.
func (s *Store) RejectFromAirlock(ctx context.Context, airlockPath string) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "reject"
	if err := s.checkAirlockPath(op, airlockPath); err != nil {
		return identity.Identity{}, err
	}

	id, err := s.hasher.Identify(ctx, airlockPath)
	if err != nil {
		return identity.Identity{}, err
	}
	logger := s.logger.With(logging.Identity(id.String()), logging.Path(airlockPath))

	verdict, found, err := s.lookupVerdict(ctx, id)
	if err != nil {
		return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
	}
	accepted := found && verdict == VerdictAccepted
	if !found {
		existing, inGallery, err := s.galleryFile(id)
		if err != nil {
			return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
		}
		if inGallery {
			s.recordAccepted(ctx, id, filepath.Base(existing))
			accepted = true
		}
	}

	if accepted {
		if err := fileutil.RemoveDurably(airlockPath); err != nil {
			return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
		}
		logger.Info("duplicate of accepted file discarded; no rejection recorded",
			logging.String(logging.FieldEventType, "reject_duplicate_of_accepted"),
		)
		return id, nil
	}

	if _, err := s.recordDecision(ctx, id, VerdictRejected, filepath.Base(airlockPath)); err != nil {
		return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, err)
	}
	if err := fileutil.RemoveDurably(airlockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return id, faults.Wrap(faults.ErrStoreTransition, op, airlockPath, fmt.Errorf("delete rejected file: %w", err))
	}

	logger.Info("file rejected",
		logging.String(logging.FieldEventType, "file_rejected"),
		logging.String(logging.FieldVerdict, string(VerdictRejected)),
	)
	return id, nil
}

func (s *Store) checkAirlockPath(op, path string) error {
	if !s.layout.InAirlock(path) {
		return faults.Wrap(faults.ErrStoreTransition, op, path, fmt.Errorf("not in airlock %s", s.layout.Airlock))
	}
	return nil
}
