package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/harborlabs/harbor-backoffice/internal/outbox"
	"github.com/harborlabs/harbor-backoffice/pkg/testhelper"
)

func message(id int64, aggregateID string) outbox.Message {
	now := time.Now().UTC()
	return outbox.Message{
		ID:            id,
		EventID:       uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: "order",
		EventType:     "order.confirmed",
		Payload:       []byte(`{"order_id":1}`),
		OccurredAt:    now,
		AvailableAt:   now,
	}
}

func ids(msgs []outbox.Message) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	pg, err := testhelper.SetupPostgres(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pg.Teardown(ctx); err != nil {
			t.Logf("failed to teardown container: %v", err)
		}
	}()

	db, err := gorm.Open(postgres.Open(pg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&outbox.Message{}))

	store := outbox.NewStore(db)
	lease := 30 * time.Second

	reset := func(t *testing.T) {
		t.Helper()
		require.NoError(t, db.Exec("DELETE FROM outbox_messages").Error)
	}

	t.Run("ClaimRespectsPerAggregateOrder", func(t *testing.T) {
		reset(t)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return outbox.Append(tx, []outbox.Message{
				message(1, "order-1"),
				message(2, "order-1"),
				message(3, "order-2"),
			})
		}))

		claimed, err := store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)

		// Only the earliest undelivered row per aggregate is claimable, so
		// row 2 stays behind row 1.
		assert.Equal(t, []int64{1, 3}, ids(claimed))

		// Row 2 becomes claimable once row 1 is delivered.
		require.NoError(t, store.MarkProcessed(ctx, 1, "w1"))
		claimed, err = store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, ids(claimed))
	})

	t.Run("LiveLeaseBlocksOtherWorkers", func(t *testing.T) {
		reset(t)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return outbox.Append(tx, []outbox.Message{message(1, "order-1")})
		}))

		claimed, err := store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		claimed, err = store.ClaimBatch(ctx, "w2", 10, lease)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})

	t.Run("ExpiredLeaseIsReclaimable", func(t *testing.T) {
		reset(t)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return outbox.Append(tx, []outbox.Message{message(1, "order-1")})
		}))

		claimed, err := store.ClaimBatch(ctx, "w1", 10, 50*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		time.Sleep(100 * time.Millisecond)

		claimed, err = store.ClaimBatch(ctx, "w2", 10, lease)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		// The original worker's mark must fail: its claim is gone.
		err = store.MarkProcessed(ctx, 1, "w1")
		assert.True(t, errors.Is(err, outbox.ErrClaimLost))

		require.NoError(t, store.MarkProcessed(ctx, 1, "w2"))
	})

	t.Run("MarkFailedSchedulesRetry", func(t *testing.T) {
		reset(t)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return outbox.Append(tx, []outbox.Message{message(1, "order-1")})
		}))

		claimed, err := store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		retryAt := time.Now().UTC().Add(time.Hour)
		require.NoError(t, store.MarkFailed(ctx, 1, "w1", errors.New("smtp down"), retryAt, false))

		// Not claimable until the backoff window elapses.
		claimed, err = store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)
		assert.Empty(t, claimed)

		var row outbox.Message
		require.NoError(t, db.First(&row, 1).Error)
		assert.Equal(t, 1, row.RetryCount)
		require.NotNil(t, row.LastError)
		assert.Contains(t, *row.LastError, "smtp down")
		assert.Nil(t, row.ClaimedBy)
		assert.True(t, row.Pending())
	})

	t.Run("DeadLetterListAndReplay", func(t *testing.T) {
		reset(t)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return outbox.Append(tx, []outbox.Message{message(1, "order-1")})
		}))

		claimed, err := store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		require.NoError(t, store.MarkFailed(ctx, 1, "w1", errors.New("boom"), time.Now().UTC(), true))

		// Dead-lettered rows never come back via ClaimBatch.
		claimed, err = store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)
		assert.Empty(t, claimed)

		rows, err := store.ListDeadLettered(ctx, outbox.DeadLetterFilter{EventType: "order.confirmed"})
		require.NoError(t, err)
		require.Len(t, rows, 1)

		rows, err = store.ListDeadLettered(ctx, outbox.DeadLetterFilter{ErrorContains: "BOOM"})
		require.NoError(t, err)
		assert.Len(t, rows, 1)

		replayed, err := store.Replay(ctx, []int64{1})
		require.NoError(t, err)
		assert.Equal(t, int64(1), replayed)

		claimed, err = store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(claimed))
	})

	t.Run("PruneProcessedRows", func(t *testing.T) {
		reset(t)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return outbox.Append(tx, []outbox.Message{
				message(1, "order-1"),
				message(2, "order-2"),
			})
		}))

		claimed, err := store.ClaimBatch(ctx, "w1", 10, lease)
		require.NoError(t, err)
		require.Len(t, claimed, 2)
		require.NoError(t, store.MarkProcessed(ctx, 1, "w1"))

		pruned, err := store.DeleteProcessedBefore(ctx, time.Now().UTC().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), pruned)

		var count int64
		require.NoError(t, db.Model(&outbox.Message{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
