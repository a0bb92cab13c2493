package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"biblioteca/pkg/domain"
	"biblioteca/pkg/queue"
)

// HandleBackupJob archives a JSON snapshot of the referenced record to
// object storage and writes a backup audit row. A record deleted before
// the job ran is treated as done, not as a failure.
func (a *App) HandleBackupJob(ctx context.Context, job queue.Job) error {
	snapshot, found, err := a.snapshotRecord(job.Kind, job.RecordID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if a.objects != nil {
		key := fmt.Sprintf("backups/%s/%d/%s.json", job.Kind, job.RecordID, job.ID)
		if err := a.objects.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "application/json"); err != nil {
			return fmt.Errorf("archive snapshot: %w", err)
		}
	}
	return a.store.RecordBackup(domain.BackupRecord{
		ID:        job.ID,
		Kind:      job.Kind,
		RecordID:  job.RecordID,
		Snapshot:  payload,
		CreatedAt: time.Now().UTC(),
	})
}

func (a *App) snapshotRecord(kind string, id int64) (any, bool, error) {
	switch kind {
	case "book":
		book, ok, err := a.store.GetBook(id)
		return book, ok, err
	case "product":
		product, ok, err := a.store.GetProduct(id)
		return product, ok, err
	case "category":
		category, ok, err := a.store.GetCategory(id)
		return category, ok, err
	default:
		return nil, false, fmt.Errorf("unknown backup kind %q", kind)
	}
}
