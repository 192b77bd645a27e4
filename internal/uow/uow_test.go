package uow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
	"github.com/harborlabs/harbor-backoffice/internal/outbox"
	"github.com/harborlabs/harbor-backoffice/internal/uow"
	"github.com/harborlabs/harbor-backoffice/pkg/snowflake"
)

type widgetModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
}

func (widgetModel) TableName() string { return "widgets" }

type widget struct {
	lifecycle.Root

	ID   int64
	Name string
}

func (w *widget) AggregateID() string   { return fmt.Sprintf("w-%d", w.ID) }
func (w *widget) AggregateType() string { return "widget" }

func (w *widget) rename(name string) {
	w.Name = name
	w.Raise(event.New("widget", w.AggregateID(), "widget.renamed", map[string]string{"name": name}))
}

func persistWidget(w *widget) uow.PersistFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		m := widgetModel{ID: w.ID, Name: w.Name}
		return tx.WithContext(ctx).Save(&m).Error
	}
}

func setup(t *testing.T) (*gorm.DB, *uow.Factory) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widgetModel{}, &outbox.Message{}))

	node, err := snowflake.NewNode()
	require.NoError(t, err)

	return db, uow.NewFactory(db, node, zap.NewNop())
}

func TestSaveChanges_NothingTracked(t *testing.T) {
	_, factory := setup(t)

	committed, err := factory.New().SaveChanges(context.Background())
	require.NoError(t, err)
	assert.False(t, committed)
}

func TestSaveChanges_CommitsStateAndEvents(t *testing.T) {
	db, factory := setup(t)

	w := &widget{ID: 1}
	w.rename("first")
	w.rename("second")

	u := factory.New()
	u.Track(w, persistWidget(w))

	committed, err := u.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.True(t, committed)

	var m widgetModel
	require.NoError(t, db.First(&m, 1).Error)
	assert.Equal(t, "second", m.Name)

	var msgs []outbox.Message
	require.NoError(t, db.Order("id asc").Find(&msgs).Error)
	require.Len(t, msgs, 2)
	assert.Equal(t, "widget.renamed", msgs[0].EventType)
	assert.Equal(t, "w-1", msgs[0].AggregateID)
	assert.JSONEq(t, `{"name":"first"}`, string(msgs[0].Payload))
	assert.JSONEq(t, `{"name":"second"}`, string(msgs[1].Payload))
	assert.Less(t, msgs[0].ID, msgs[1].ID)
	assert.True(t, msgs[0].Pending())

	// The buffer is drained exactly once.
	assert.Empty(t, w.PendingEvents())
}

func TestSaveChanges_PersistFailureRollsBackEverything(t *testing.T) {
	db, factory := setup(t)

	w := &widget{ID: 1}
	w.rename("first")

	u := factory.New()
	u.Track(w, func(ctx context.Context, tx *gorm.DB) error {
		return errors.New("write refused")
	})

	committed, err := u.SaveChanges(context.Background())
	require.Error(t, err)
	assert.False(t, committed)

	var count int64
	require.NoError(t, db.Model(&outbox.Message{}).Count(&count).Error)
	assert.Zero(t, count)

	// Failed commits leave the buffer intact for a retry.
	assert.Len(t, w.PendingEvents(), 1)
}

func TestSaveChanges_DuplicateKeyIsConflict(t *testing.T) {
	db, factory := setup(t)
	require.NoError(t, db.Create(&widgetModel{ID: 99, Name: "taken"}).Error)

	w := &widget{ID: 1}
	w.rename("taken")

	u := factory.New()
	u.Track(w, func(ctx context.Context, tx *gorm.DB) error {
		m := widgetModel{ID: w.ID, Name: w.Name}
		return tx.WithContext(ctx).Create(&m).Error
	})

	_, err := u.SaveChanges(context.Background())
	require.Error(t, err)

	var conflict *uow.PersistenceConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Len(t, w.PendingEvents(), 1)
}

func TestSaveChanges_MultipleAggregates(t *testing.T) {
	db, factory := setup(t)

	first := &widget{ID: 1}
	first.rename("a")
	second := &widget{ID: 2}
	second.rename("b")

	u := factory.New()
	u.Track(first, persistWidget(first))
	u.Track(second, persistWidget(second))

	committed, err := u.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.True(t, committed)

	var msgs []outbox.Message
	require.NoError(t, db.Order("id asc").Find(&msgs).Error)
	require.Len(t, msgs, 2)
	assert.Empty(t, first.PendingEvents())
	assert.Empty(t, second.PendingEvents())
}
