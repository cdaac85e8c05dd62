package services

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"rentloop-server/models"
)

// Booking statuses. Completed and cancelled are terminal.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusActive    = "active"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// BlockingStatuses are the statuses that count toward date-range conflicts.
// Pending requests never block a competing reservation.
var BlockingStatuses = []string{BookingStatusConfirmed, BookingStatusActive}

// BookingRole identifies which party of a booking is acting.
type BookingRole string

const (
	RoleRenter BookingRole = "renter"
	RoleOwner  BookingRole = "owner"
)

// bookingTransitions is the status state machine: target statuses per current
// status, each gated to the roles that may request it.
var bookingTransitions = map[string]map[string][]BookingRole{
	BookingStatusPending: {
		BookingStatusConfirmed: {RoleOwner},
		BookingStatusCancelled: {RoleRenter, RoleOwner},
	},
	BookingStatusConfirmed: {
		BookingStatusActive:    {RoleOwner},
		BookingStatusCancelled: {RoleRenter, RoleOwner},
	},
	BookingStatusActive: {
		BookingStatusCompleted: {RoleRenter, RoleOwner},
		BookingStatusCancelled: {RoleRenter, RoleOwner},
	},
	BookingStatusCompleted: {},
	BookingStatusCancelled: {},
}

// IsValidBookingStatus reports whether s is a recognized status.
func IsValidBookingStatus(s string) bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsTerminalBookingStatus reports whether no transition leaves s.
func IsTerminalBookingStatus(s string) bool {
	targets, ok := bookingTransitions[s]
	if !ok {
		return true
	}
	return len(targets) == 0
}

// IllegalTransitionError names the current and requested status.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot change booking status from %q to %q", e.From, e.To)
}

// ForbiddenTransitionError is a legal transition requested by the wrong party.
type ForbiddenTransitionError struct {
	From string
	To   string
	Role BookingRole
}

func (e *ForbiddenTransitionError) Error() string {
	return fmt.Sprintf("the %s may not change booking status from %q to %q", e.Role, e.From, e.To)
}

// ValidateTransition checks the transition table and its role gating.
// Returns *IllegalTransitionError when the (from, to) pair is not listed and
// *ForbiddenTransitionError when it is listed but not for the caller's role.
func ValidateTransition(from, to string, role BookingRole) error {
	targets, ok := bookingTransitions[from]
	if !ok {
		return &IllegalTransitionError{From: from, To: to}
	}
	roles, ok := targets[to]
	if !ok {
		return &IllegalTransitionError{From: from, To: to}
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return &ForbiddenTransitionError{From: from, To: to, Role: role}
}

// RangesOverlap reports whether the closed intervals [s1,e1] and [s2,e2]
// intersect. Boundary-touching ranges overlap: same-day handoff between two
// bookings is not supported.
func RangesOverlap(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}

// RentalDays is ceil((end - start) / 1 day), with a one-day minimum so a
// same-day rental is never free.
func RentalDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

// PriceTolerance is the accepted absolute drift between the client-supplied
// total and the recomputed one. No currency rounding beyond this.
const PriceTolerance = 0.01

// PriceQuote is the server-side recomputation of a booking total.
type PriceQuote struct {
	Days        int     `json:"days"`
	PricePerDay float64 `json:"pricePerDay"`
	Expected    float64 `json:"expectedTotal"`
}

// QuotePrice recomputes the expected total for a date range and daily rate.
func QuotePrice(start, end time.Time, pricePerDay float64) PriceQuote {
	days := RentalDays(start, end)
	return PriceQuote{
		Days:        days,
		PricePerDay: pricePerDay,
		Expected:    float64(days) * pricePerDay,
	}
}

// PriceMismatchError surfaces the computed values so the client can
// self-correct.
type PriceMismatchError struct {
	Days        int     `json:"days"`
	PricePerDay float64 `json:"pricePerDay"`
	Expected    float64 `json:"expectedTotal"`
	Supplied    float64 `json:"suppliedTotal"`
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("total price %.2f does not match expected %.2f (%d days x %.2f)",
		e.Supplied, e.Expected, e.Days, e.PricePerDay)
}

// ValidateTotal accepts supplied only within PriceTolerance of the quote.
func (q PriceQuote) ValidateTotal(supplied float64) error {
	if math.Abs(supplied-q.Expected) <= PriceTolerance {
		return nil
	}
	return &PriceMismatchError{
		Days:        q.Days,
		PricePerDay: q.PricePerDay,
		Expected:    q.Expected,
		Supplied:    supplied,
	}
}

// BookingService owns the conflict query against existing reservations.
type BookingService struct {
	DB *gorm.DB
}

func NewBookingService(db *gorm.DB) *BookingService {
	return &BookingService{DB: db}
}

// HasConflict reports whether any booking on the listing with a blocking
// status intersects [start, end]. excludeID skips the booking being edited
// (zero means no exclusion).
//
// The check and the subsequent insert are separate statements, so two
// concurrent requests can both observe no conflict; closing that window needs
// a database-level exclusion constraint this service does not own.
func (s *BookingService) HasConflict(listingID uint, start, end time.Time, excludeID uint) (bool, error) {
	q := s.DB.Model(&models.Booking{}).
		Where("listing_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?",
			listingID, BlockingStatuses, end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var conflicts int64
	if err := q.Count(&conflicts).Error; err != nil {
		return false, err
	}
	return conflicts > 0, nil
}

// HasBlockingBookings reports whether the listing still has confirmed or
// active bookings; such listings are archived rather than deleted.
func (s *BookingService) HasBlockingBookings(listingID uint) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Booking{}).
		Where("listing_id = ? AND status IN ?", listingID, BlockingStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
