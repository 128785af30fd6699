package store

import (
	"time"
)

// Store is the persistence interface for the delivery log.
// Registrations themselves are never persisted.
type Store interface {
	AddDelivery(d *DeliveryRecord) error
	ListDeliveries(f DeliveryFilter) ([]DeliveryRecord, error)
	CountByResult(since time.Time) (map[string]int, error)

	// Maintenance
	Cleanup(olderThan time.Time) (int64, error)
	Close() error
}

// DeliveryRecord is one dispatch decision: a channel attempt or a
// suppression.
type DeliveryRecord struct {
	ID        string
	CellID    string
	Mode      string
	Status    string
	Trigger   string
	Channel   string
	Result    string
	Error     string
	CreatedAt time.Time
}

// DeliveryFilter specifies criteria for listing deliveries.
type DeliveryFilter struct {
	CellID string
	Result string
	Limit  int
	Since  time.Time
}
