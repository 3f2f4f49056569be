package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the single account record shared by all four roles.
type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string         `json:"name" gorm:"size:255;not null"`
	Email        string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string         `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role           `json:"role" gorm:"size:32;not null;index"`
	Status       ApprovalStatus `json:"status" gorm:"size:32;not null;index"`
	IsApproved   bool           `json:"is_approved" gorm:"not null;default:false"`

	GymName        string `json:"gym_name,omitempty" gorm:"size:255"`
	Location       string `json:"location,omitempty" gorm:"size:255"`
	Phone          string `json:"phone,omitempty" gorm:"size:64"`
	Specialization string `json:"specialization,omitempty" gorm:"size:255"`
	ProfilePicture string `json:"profile_picture,omitempty" gorm:"size:512"`

	// Relations used by the ownership gate.
	CreatedBy       *uuid.UUID `json:"created_by,omitempty" gorm:"type:char(36);index"`
	AssignedTrainer *uuid.UUID `json:"assigned_trainer,omitempty" gorm:"type:char(36);index"`

	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty" gorm:"type:char(36)"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty" gorm:"size:1024"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SetStatus moves the user to status and keeps IsApproved in lockstep with it.
func (u *User) SetStatus(status ApprovalStatus) {
	u.Status = status
	u.IsApproved = status == StatusApproved
}

// Summary is the minimal public view returned on login.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Role: u.Role, Name: u.Name}
}

// UserSummary is the id/role/name triple embedded in session tokens.
type UserSummary struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
	Name string    `json:"name"`
}
