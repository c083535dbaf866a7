package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coinarena/arenad/internal/domain"
)

// batchSize is the page size used when walking finalized battles.
const batchSize = 500

// battleSnapshot is the archived record for one settled battle: its metadata
// plus the full ledger at archive time.
type battleSnapshot struct {
	Battle domain.Battle       `json:"battle"`
	Stakes []domain.StakeEntry `json:"stakes"`
}

// ArchiveImpl implements domain.Archiver by snapshotting finalized battles
// and their ledgers to JSONL in object storage.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here; settlement history stays queryable and the archive is a
// cold copy.
type ArchiveImpl struct {
	writer  domain.BlobWriter
	battles domain.BattleStore
	stakes  domain.StakeStore
	audit   domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	battles domain.BattleStore,
	stakes domain.StakeStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:  writer,
		battles: battles,
		stakes:  stakes,
		audit:   audit,
	}
}

// ArchiveSettled walks every finalized battle whose close time falls before
// the cutoff, serializes each battle with its ledger entries to JSONL, and
// uploads the file to archive/battles/YYYY-MM.jsonl. The archival event is
// recorded in the audit log and the count of archived battles is returned.
func (a *ArchiveImpl) ArchiveSettled(ctx context.Context, before time.Time) (int64, error) {
	var snapshots []battleSnapshot

	for offset := 0; ; offset += batchSize {
		page, err := a.battles.ListFinalized(ctx, domain.ListOpts{Limit: batchSize, Offset: offset})
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive settled query: %w", err)
		}

		for _, b := range page {
			if !b.CloseTime.Before(before) {
				continue
			}
			entries, err := a.stakes.ListByBattle(ctx, b.ID)
			if err != nil {
				return 0, fmt.Errorf("s3blob: archive settled ledger for battle %d: %w", b.ID, err)
			}
			snapshots = append(snapshots, battleSnapshot{Battle: b, Stakes: entries})
		}

		if len(page) < batchSize {
			break
		}
	}

	if len(snapshots) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(snapshots)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settled marshal: %w", err)
	}

	path := archivePath("battles", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive settled upload: %w", err)
	}

	count := int64(len(snapshots))

	if err := a.audit.Log(ctx, "archive.battles", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive settled audit log: %w", err)
	}

	return count, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/battles/2026-03.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
