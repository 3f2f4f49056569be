package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotificationApprovalGranted      NotificationType = "application_approval"
	NotificationApprovalDenied       NotificationType = "application_rejection"
	NotificationNewMember            NotificationType = "new_member"
	NotificationMembershipExpired    NotificationType = "membership_expired"
	NotificationAppointmentScheduled NotificationType = "appointment_scheduled"
	NotificationAppointmentApproved  NotificationType = "appointment_approved"
	NotificationAppointmentRejected  NotificationType = "appointment_rejected"
	NotificationWorkoutAssigned      NotificationType = "workout_assigned"
	NotificationSystem               NotificationType = "system"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationApprovalGranted, NotificationApprovalDenied, NotificationNewMember,
		NotificationMembershipExpired, NotificationAppointmentScheduled, NotificationAppointmentApproved,
		NotificationAppointmentRejected, NotificationWorkoutAssigned, NotificationSystem:
		return true
	}
	return false
}

// Notification is a durable message addressed to a single user.
type Notification struct {
	ID        uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	Recipient uuid.UUID        `json:"recipient" gorm:"type:char(36);not null;index:idx_notifications_recipient_created,priority:1"`
	Sender    *uuid.UUID       `json:"sender,omitempty" gorm:"type:char(36)"`
	Type      NotificationType `json:"type" gorm:"size:64;not null"`
	Title     string           `json:"title" gorm:"size:255;not null"`
	Message   string           `json:"message" gorm:"type:text;not null"`
	Read      bool             `json:"read" gorm:"column:is_read;not null;default:false"`
	EntityID  *uuid.UUID       `json:"entity_id,omitempty" gorm:"type:char(36)"`
	Data      map[string]any   `json:"data,omitempty" gorm:"serializer:json;type:text"`
	CreatedAt time.Time        `json:"created_at" gorm:"index:idx_notifications_recipient_created,priority:2"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
