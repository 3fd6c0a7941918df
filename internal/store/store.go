package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"livepush-backend/internal/model"
)

// Store defines the interface for all database operations: the
// subscription store and the dispatch ledger.
type Store interface {
	UpsertDevice(ctx context.Context, endpoint, p256dh, auth string) (model.Device, error)
	CreateSubscription(ctx context.Context, channel string, deviceID int64) (int64, error)
	DeleteSubscription(ctx context.Context, channel, endpoint string) error
	DeleteDevice(ctx context.Context, deviceID int64) error
	ListSubscribedDevices(ctx context.Context, channel string, offset, limit int) ([]SubscribedDevice, error)

	GetDispatch(ctx context.Context, eventID string) (bool, error)
	CreateDispatch(ctx context.Context, eventID string) (bool, error)
	FinalizeDispatch(ctx context.Context, eventID string, sentCount int) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// UpsertDevice inserts a device by endpoint, refreshing its encryption
// keys when the endpoint already exists.
func (s *gormStore) UpsertDevice(ctx context.Context, endpoint, p256dh, auth string) (model.Device, error) {
	device := model.Device{
		Endpoint: endpoint,
		P256DH:   p256dh,
		Auth:     auth,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "updated_at"}),
	}).Create(&device).Error
	if err != nil {
		return model.Device{}, fmt.Errorf("upsert device failed: %w", err)
	}

	// The conflict path does not reliably report the existing row's id
	// across drivers, so read the row back by endpoint.
	var saved model.Device
	if err := s.db.WithContext(ctx).First(&saved, "endpoint = ?", endpoint).Error; err != nil {
		return model.Device{}, fmt.Errorf("fetch device after upsert failed: %w", err)
	}
	return saved, nil
}

// CreateSubscription links a device to a channel and returns the
// subscription id. Subscribing twice to the same channel is a no-op
// that returns the existing id.
func (s *gormStore) CreateSubscription(ctx context.Context, channel string, deviceID int64) (int64, error) {
	sub := model.Subscription{
		Channel:  channel,
		DeviceID: deviceID,
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel"}, {Name: "device_id"}},
		DoNothing: true,
	}).Create(&sub)
	if res.Error != nil {
		return 0, fmt.Errorf("create subscription failed: %w", res.Error)
	}

	if res.RowsAffected == 0 || sub.ID == 0 {
		var existing model.Subscription
		if err := s.db.WithContext(ctx).
			First(&existing, "channel = ? AND device_id = ?", channel, deviceID).Error; err != nil {
			return 0, fmt.Errorf("fetch subscription after upsert failed: %w", err)
		}
		return existing.ID, nil
	}
	return sub.ID, nil
}

// DeleteSubscription removes the link between a channel and the device
// behind an endpoint. Removing a link that does not exist is not an
// error.
func (s *gormStore) DeleteSubscription(ctx context.Context, channel, endpoint string) error {
	err := s.db.WithContext(ctx).
		Where("channel = ? AND device_id IN (SELECT id FROM devices WHERE endpoint = ?)", channel, endpoint).
		Delete(&model.Subscription{}).Error
	if err != nil {
		return fmt.Errorf("delete subscription failed: %w", err)
	}
	return nil
}

// DeleteDevice prunes a device entirely: all of its subscriptions plus
// the device record itself. Used when the push provider reports the
// registration gone.
func (s *gormStore) DeleteDevice(ctx context.Context, deviceID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).Delete(&model.Subscription{}).Error; err != nil {
			return fmt.Errorf("delete subscriptions for device %d failed: %w", deviceID, err)
		}
		if err := tx.Delete(&model.Device{}, deviceID).Error; err != nil {
			return fmt.Errorf("delete device %d failed: %w", deviceID, err)
		}
		return nil
	})
}

// ListSubscribedDevices returns one page of devices subscribed to a
// channel, ordered by subscription id ascending.
func (s *gormStore) ListSubscribedDevices(ctx context.Context, channel string, offset, limit int) ([]SubscribedDevice, error) {
	var page []SubscribedDevice
	err := s.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Select("subscriptions.id AS subscription_id, devices.id AS device_id, devices.endpoint, devices.p256dh, devices.auth").
		Joins("JOIN devices ON devices.id = subscriptions.device_id").
		Where("subscriptions.channel = ?", channel).
		Order("subscriptions.id ASC").
		Offset(offset).
		Limit(limit).
		Scan(&page).Error
	if err != nil {
		return nil, fmt.Errorf("list subscribed devices failed: %w", err)
	}
	return page, nil
}

// GetDispatch reports whether a dispatch record already exists for the
// event id.
func (s *gormStore) GetDispatch(ctx context.Context, eventID string) (bool, error) {
	var dispatch model.Dispatch
	err := s.db.WithContext(ctx).First(&dispatch, "event_id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get dispatch failed: %w", err)
	}
	return true, nil
}

// CreateDispatch inserts the ledger row for an event id. It returns
// false when the row already existed, which is how concurrent webhook
// deliveries for the same id lose the race.
func (s *gormStore) CreateDispatch(ctx context.Context, eventID string) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&model.Dispatch{EventID: eventID})
	if res.Error != nil {
		return false, fmt.Errorf("create dispatch failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FinalizeDispatch records the number of successful deliveries against
// the ledger row.
func (s *gormStore) FinalizeDispatch(ctx context.Context, eventID string, sentCount int) error {
	err := s.db.WithContext(ctx).
		Model(&model.Dispatch{}).
		Where("event_id = ?", eventID).
		Update("sent_count", sentCount).Error
	if err != nil {
		return fmt.Errorf("finalize dispatch failed: %w", err)
	}
	return nil
}
