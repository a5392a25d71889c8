package collection

import (
	"context"
	"fmt"
	"iter"
	"os"
)

// PartitionStats counts files and bytes in one partition.
type PartitionStats struct {
	Files int64
	Bytes int64
}

// Stats summarizes a collection.
type Stats struct {
	Airlock PartitionStats
	Gallery PartitionStats
	// Accepted and Rejected count decision rows; Bytes sums the recorded sizes.
	Accepted PartitionStats
	Rejected PartitionStats
}

// Stats counts the files waiting in the airlock, the files in the gallery, and
// the recorded decisions.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error
	if stats.Airlock, stats.Gallery, err = s.layout.CountFiles(ctx); err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT verdict, COUNT(1), COALESCE(SUM(size), 0) FROM decisions GROUP BY verdict")
	if err != nil {
		return stats, fmt.Errorf("count decisions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			verdict string
			part    PartitionStats
		)
		if err := rows.Scan(&verdict, &part.Files, &part.Bytes); err != nil {
			return stats, fmt.Errorf("scan decision counts: %w", err)
		}
		switch Verdict(verdict) {
		case VerdictAccepted:
			stats.Accepted = part
		case VerdictRejected:
			stats.Rejected = part
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate decision counts: %w", err)
	}
	return stats, nil
}

// CountFiles counts the visible files in the airlock and the gallery
// without touching the decision record, so it works while another session
// holds the collection lock.
func (l Layout) CountFiles(ctx context.Context) (airlock, gallery PartitionStats, err error) {
	if airlock, err = sumFiles(listVisible(ctx, l.Airlock)); err != nil {
		return airlock, gallery, err
	}
	gallery, err = sumFiles(listVisible(ctx, l.Gallery))
	return airlock, gallery, err
}

func sumFiles(seq iter.Seq2[string, error]) (PartitionStats, error) {
	var part PartitionStats
	for path, err := range seq {
		if err != nil {
			return part, err
		}
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return part, fmt.Errorf("stat %s: %w", path, err)
		}
		part.Files++
		part.Bytes += info.Size()
	}
	return part, nil
}
