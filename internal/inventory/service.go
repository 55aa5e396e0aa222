// Package inventory implements the serialized spare-parts lifecycle: the part catalog,
// batch intake of items, the item status state machine and the vehicle ledgers it feeds.
//
// Every operation only stages writes through the store handed to it. Callers wrap one
// or more operations in db.Store.WithTransaction to make them durable together.
package inventory

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/db"
)

// Service is the inventory core.
type Service struct {
	store db.Store
	log   *logrus.Entry
	now   func() time.Time
}

// NewService creates an inventory service on top of store.
func NewService(store db.Store, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		store: store,
		log:   log.WithField("component", "inventory"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}
