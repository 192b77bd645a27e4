package outbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrClaimLost is returned when a mark operation finds the row no longer
// claimed by the calling worker, typically because the lease expired and
// another worker took it over.
var ErrClaimLost = errors.New("outbox: claim lost")

// Store owns all access to the outbox_messages table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Append inserts messages inside the caller's transaction. It is the only
// write path used by the unit of work.
func Append(tx *gorm.DB, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return tx.Create(&msgs).Error
}

// ClaimBatch atomically leases up to limit deliverable rows for workerID.
// A row is deliverable when it is pending, its backoff window has elapsed,
// it carries no live lease, and no earlier undelivered row exists for the
// same aggregate. The last condition keeps per-aggregate FIFO and
// guarantees a batch never holds two rows of one aggregate, so rows in a
// batch can be dispatched concurrently.
func (s *Store) ClaimBatch(ctx context.Context, workerID string, limit int, lease time.Duration) ([]Message, error) {
	var claimed []Message
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []Message
		if err := tx.Raw(
			`SELECT m.* FROM outbox_messages m
			 WHERE m.processed_at IS NULL
			   AND m.dead_lettered = false
			   AND m.available_at <= ?
			   AND (m.claimed_until IS NULL OR m.claimed_until <= ?)
			   AND NOT EXISTS (
			         SELECT 1 FROM outbox_messages prev
			         WHERE prev.aggregate_id = m.aggregate_id
			           AND prev.id < m.id
			           AND prev.processed_at IS NULL
			           AND prev.dead_lettered = false
			   )
			 ORDER BY m.id ASC
			 LIMIT ?
			 FOR UPDATE OF m SKIP LOCKED`,
			now, now, limit,
		).Scan(&rows).Error; err != nil {
			return err
		}

		if len(rows) == 0 {
			return nil
		}

		until := now.Add(lease)
		ids := make([]int64, 0, len(rows))
		for i := range rows {
			ids = append(ids, rows[i].ID)
			rows[i].ClaimedBy = &workerID
			rows[i].ClaimedUntil = &until
		}

		if err := tx.Model(&Message{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"claimed_by":    workerID,
				"claimed_until": until,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		claimed = rows
		return nil
	})

	return claimed, err
}

// MarkProcessed records a successful delivery and releases the lease. The
// update is guarded by the worker's claim so a late worker whose lease
// expired cannot overwrite another worker's outcome; processed_at is set at
// most once.
func (s *Store) MarkProcessed(ctx context.Context, id int64, workerID string) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND claimed_by = ? AND processed_at IS NULL", id, workerID).
		Updates(map[string]any{
			"processed_at":  now,
			"claimed_by":    nil,
			"claimed_until": nil,
			"last_error":    nil,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// MarkFailed records a failed delivery attempt: the retry counter is
// incremented, the failure is kept for operators, the row is rescheduled
// for availableAt (or parked as dead-lettered) and the lease is released.
func (s *Store) MarkFailed(ctx context.Context, id int64, workerID string, cause error, availableAt time.Time, deadLetter bool) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND claimed_by = ? AND processed_at IS NULL", id, workerID).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    cause.Error(),
			"available_at":  availableAt,
			"dead_lettered": deadLetter,
			"claimed_by":    nil,
			"claimed_until": nil,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// ReleaseLease clears the claim on rows without touching retry bookkeeping.
// Used on shutdown for claimed rows that were never dispatched.
func (s *Store) ReleaseLease(ctx context.Context, ids []int64, workerID string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Message{}).
		Where("id IN ? AND claimed_by = ? AND processed_at IS NULL", ids, workerID).
		Updates(map[string]any{
			"claimed_by":    nil,
			"claimed_until": nil,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// DeadLetterFilter narrows ListDeadLettered results. Zero values mean no
// constraint.
type DeadLetterFilter struct {
	EventType     string
	From          time.Time
	To            time.Time
	ErrorContains string
	Limit         int
}

// ListDeadLettered returns parked rows for operator inspection, oldest
// first.
func (s *Store) ListDeadLettered(ctx context.Context, filter DeadLetterFilter) ([]Message, error) {
	q := s.db.WithContext(ctx).Where("dead_lettered = true")
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if !filter.From.IsZero() {
		q = q.Where("occurred_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("occurred_at < ?", filter.To)
	}
	if filter.ErrorContains != "" {
		q = q.Where("last_error ILIKE ?", "%"+filter.ErrorContains+"%")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []Message
	if err := q.Order("id asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Replay resets retry bookkeeping on dead-lettered rows so they re-enter
// the claim cycle. Returns how many rows were reset.
func (s *Store) Replay(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&Message{}).
		Where("id IN ? AND dead_lettered = true", ids).
		Updates(map[string]any{
			"dead_lettered": false,
			"retry_count":   0,
			"last_error":    nil,
			"available_at":  now,
			"claimed_by":    nil,
			"claimed_until": nil,
			"updated_at":    now,
		})
	return res.RowsAffected, res.Error
}

// DeleteProcessedBefore prunes delivered rows older than cutoff. Pending and
// dead-lettered rows are never touched.
func (s *Store) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ?", cutoff).
		Delete(&Message{})
	return res.RowsAffected, res.Error
}
