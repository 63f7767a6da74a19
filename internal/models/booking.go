package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusAwaiting  BookingStatus = "awaiting confirmation"
	BookingStatusCompleted BookingStatus = "completed"
)

// bookingStatuses is the closed set accepted at the API boundary. Anything
// else is a validation error, never written through.
var bookingStatuses = map[BookingStatus]bool{
	BookingStatusPending:   true,
	BookingStatusConfirmed: true,
	BookingStatusRejected:  true,
	BookingStatusCancelled: true,
	BookingStatusAwaiting:  true,
	BookingStatusCompleted: true,
}

func (s BookingStatus) Valid() bool {
	return bookingStatuses[s]
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusRejected
}

// ActiveBookingStatuses are the states that block a worker's time slot.
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// Booking is a time-boxed appointment between a client and a worker, tied to
// a job. No two bookings for the same worker may overlap while both are in
// an active status.
type Booking struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID    uuid.UUID `gorm:"type:uuid;index;not null" json:"job_id"`
	WorkerID uuid.UUID `gorm:"type:uuid;index;not null" json:"worker_id"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`

	StartTime time.Time `gorm:"not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`

	Status BookingStatus `gorm:"type:varchar(30);default:'pending'" json:"status"`

	Notes    string   `gorm:"type:text" json:"notes"`
	Location Location `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Price    int64    `gorm:"not null" json:"price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Job    *Job  `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Worker *User `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
	Client *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Overlaps is the standard half-open interval test used by the scheduler:
// [a.start, a.end) intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}
