package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifJobOffer         NotificationType = "job_offer"
	NotifJobRequest       NotificationType = "job_request"
	NotifOfferAccepted    NotificationType = "offer_accepted"
	NotifOfferRejected    NotificationType = "offer_rejected"
	NotifJobCompletionReq NotificationType = "job_completion_request"
	NotifJobCompleted     NotificationType = "job_completed"
	NotifJobCancelled     NotificationType = "job_cancelled"
	NotifPaymentReceived  NotificationType = "payment_received"
	NotifBookingCreated   NotificationType = "booking_created"
	NotifBookingConfirmed NotificationType = "booking_confirmed"
	NotifBookingRejected  NotificationType = "booking_rejected"
	NotifBookingComplReq  NotificationType = "booking_completion_request"
	NotifBookingCompleted NotificationType = "booking_completed"
	NotifBookingStatus    NotificationType = "booking_status"
	NotifWorkerApproved   NotificationType = "worker_approved"
	NotifSystem           NotificationType = "system"
)

// Notification is a persisted message to a user about a state transition
// that affects them. Delivery (websocket, redis fanout) is best-effort; the
// record is the source of truth.
type Notification struct {
	ID      uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID        `gorm:"type:uuid;index;not null" json:"user_id"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Type    NotificationType `gorm:"type:varchar(40);not null" json:"type"`

	JobID *uuid.UUID     `gorm:"type:uuid;index" json:"job_id,omitempty"`
	Read  bool           `gorm:"default:false;index" json:"read"`
	Data  datatypes.JSON `json:"data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
