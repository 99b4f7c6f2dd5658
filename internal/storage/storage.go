package storage

import "poolEngine/internal/model"

// Storage defines a sink for pool notifications.
type Storage interface {
	PutNotificationBatch(notifications []model.Notification) error
}
