package service

import (
	"context"

	"webrecorder/api/internal/models"
)

type usageStore interface {
	AddUsage(ctx context.Context, owner string, collectionID string, delta int64) (int64, error)
}

// QuotaLedger reports space utilization and records usage changes coming
// from content ingestion.
type QuotaLedger struct {
	store usageStore
}

func NewQuotaLedger(store usageStore) *QuotaLedger {
	return &QuotaLedger{store: store}
}

// Utilization never reports negative values, even when used exceeds the
// quota; the quota is advisory at this layer.
func (q *QuotaLedger) Utilization(account models.Account) models.SpaceUtilization {
	total := max(account.MaxSize, 0)
	used := max(account.UsedSize, 0)
	return models.SpaceUtilization{
		Used:      used,
		Available: max(total-used, 0),
		Total:     total,
	}
}

func (q *QuotaLedger) RecordUsage(ctx context.Context, owner string, collectionID string, delta int64) (int64, error) {
	return q.store.AddUsage(ctx, owner, collectionID, delta)
}
