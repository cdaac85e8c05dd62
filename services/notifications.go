package services

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentloop-server/models"
)

// Notifier consumes emitted events: it persists notification rows and keeps
// view counters. It runs on the emitter's worker goroutine, so a failure here
// is logged and dropped, never surfaced to a request.
type Notifier struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *logrus.Logger
}

func NewNotifier(db *gorm.DB, rdb *redis.Client, log *logrus.Logger) *Notifier {
	return &Notifier{DB: db, Redis: rdb, Log: log}
}

func (n *Notifier) Handle(ev Event) {
	switch ev.Type {
	case EventListingViewed:
		n.recordView(ev)
	case EventBookingRequested:
		n.createNotification(ev, "New Booking Request", "booking_request", "booking", ev.BookingID)
	case EventBookingStatusChange:
		n.createNotification(ev, "Booking Status Updated", "booking_status", "booking", ev.BookingID)
	case EventReviewPosted:
		n.createNotification(ev, "New Review", "review", "listing", ev.ListingID)
	default:
		n.Log.WithField("type", ev.Type).Warn("unknown event type")
	}
}

func (n *Notifier) recordView(ev Event) {
	ctx := context.Background()

	// Redis keeps the hot counter; the row is bumped alongside so the value
	// survives a cache flush. Both are best-effort.
	if n.Redis != nil {
		key := fmt.Sprintf("listing:views:%d", ev.ListingID)
		if err := n.Redis.Incr(ctx, key).Err(); err != nil {
			n.Log.WithError(err).WithField("listingID", ev.ListingID).Warn("view counter incr failed")
		}
	}

	err := n.DB.Model(&models.Listing{}).
		Where("id = ?", ev.ListingID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil {
		n.Log.WithError(err).WithField("listingID", ev.ListingID).Warn("view count update failed")
	}
}

func (n *Notifier) createNotification(ev Event, title, notifType, refType string, refID uint) {
	if ev.UserID == 0 {
		return
	}

	notification := models.Notification{
		UserID:  ev.UserID,
		Title:   title,
		Message: ev.Message,
		Type:    notifType,
		RefType: refType,
		RefID:   refID,
	}

	if err := n.DB.Create(&notification).Error; err != nil {
		n.Log.WithError(err).WithFields(logrus.Fields{
			"userID": ev.UserID,
			"type":   notifType,
		}).Warn("notification create failed")
	}
}
