package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"livepush-backend/internal/db"
	"livepush-backend/internal/model"
)

var memDBSeq int64

// newTestDB opens a fresh in-memory SQLite database with the full
// schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", atomic.AddInt64(&memDBSeq, 1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func TestUpsertDevice(t *testing.T) {
	gormDB := newTestDB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()

	first, err := s.UpsertDevice(ctx, "https://push.example.com/d1", "p256dh-1", "auth-1")
	require.NoError(t, err)
	assert.Greater(t, first.ID, int64(0))

	// Subscribing again with the same endpoint refreshes the keys but
	// keeps the device row.
	second, err := s.UpsertDevice(ctx, "https://push.example.com/d1", "p256dh-2", "auth-2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "p256dh-2", second.P256DH)
	assert.Equal(t, "auth-2", second.Auth)

	var count int64
	gormDB.Model(&model.Device{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateSubscription_Idempotent(t *testing.T) {
	gormDB := newTestDB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()

	device, err := s.UpsertDevice(ctx, "https://push.example.com/d1", "p", "a")
	require.NoError(t, err)

	firstID, err := s.CreateSubscription(ctx, "sports-final", device.ID)
	require.NoError(t, err)
	assert.Greater(t, firstID, int64(0))

	secondID, err := s.CreateSubscription(ctx, "sports-final", device.ID)
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID)

	var count int64
	gormDB.Model(&model.Subscription{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDeleteSubscription(t *testing.T) {
	gormDB := newTestDB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()

	// Deleting a link that was never created must not error.
	require.NoError(t, s.DeleteSubscription(ctx, "sports-final", "https://push.example.com/ghost"))

	device, err := s.UpsertDevice(ctx, "https://push.example.com/d1", "p", "a")
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, "sports-final", device.ID)
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, "election-night", device.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSubscription(ctx, "sports-final", device.Endpoint))

	var remaining []model.Subscription
	require.NoError(t, gormDB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "election-night", remaining[0].Channel)

	// Idempotent: a second delete of the same pair is a no-op.
	require.NoError(t, s.DeleteSubscription(ctx, "sports-final", device.Endpoint))
}

func TestDeleteDevice_PrunesEverything(t *testing.T) {
	gormDB := newTestDB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()

	device, err := s.UpsertDevice(ctx, "https://push.example.com/d1", "p", "a")
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, "sports-final", device.ID)
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, "election-night", device.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteDevice(ctx, device.ID))

	var subCount, deviceCount int64
	gormDB.Model(&model.Subscription{}).Count(&subCount)
	gormDB.Model(&model.Device{}).Count(&deviceCount)
	assert.Equal(t, int64(0), subCount)
	assert.Equal(t, int64(0), deviceCount)
}

func TestListSubscribedDevices(t *testing.T) {
	gormDB := newTestDB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		device, err := s.UpsertDevice(ctx, fmt.Sprintf("https://push.example.com/d%d", i), "p", "a")
		require.NoError(t, err)
		_, err = s.CreateSubscription(ctx, "sports-final", device.ID)
		require.NoError(t, err)
	}
	// A device in a different channel must not show up.
	other, err := s.UpsertDevice(ctx, "https://push.example.com/other", "p", "a")
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, "election-night", other.ID)
	require.NoError(t, err)

	first, err := s.ListSubscribedDevices(ctx, "sports-final", 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := s.ListSubscribedDevices(ctx, "sports-final", 3, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)

	seen := make(map[string]bool)
	lastID := int64(0)
	for _, row := range append(first, second...) {
		assert.Greater(t, row.SubscriptionID, lastID, "pages must be ordered by subscription id")
		lastID = row.SubscriptionID
		assert.False(t, seen[row.Endpoint], "no endpoint may appear twice")
		seen[row.Endpoint] = true
		assert.NotEqual(t, "https://push.example.com/other", row.Endpoint)
	}
	assert.Len(t, seen, 5)
}

func TestDispatchLedger(t *testing.T) {
	gormDB := newTestDB(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()

	handled, err := s.GetDispatch(ctx, "update-1")
	require.NoError(t, err)
	assert.False(t, handled)

	created, err := s.CreateDispatch(ctx, "update-1")
	require.NoError(t, err)
	assert.True(t, created)

	handled, err = s.GetDispatch(ctx, "update-1")
	require.NoError(t, err)
	assert.True(t, handled)

	// A concurrent trigger for the same id must lose the race.
	created, err = s.CreateDispatch(ctx, "update-1")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, s.FinalizeDispatch(ctx, "update-1", 7))

	var dispatch model.Dispatch
	require.NoError(t, gormDB.First(&dispatch, "event_id = ?", "update-1").Error)
	assert.Equal(t, 7, dispatch.SentCount)

	var count int64
	gormDB.Model(&model.Dispatch{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
