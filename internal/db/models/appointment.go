package models

import "time"

// AppointmentStatus represents the lifecycle state of an appointment.
type AppointmentStatus string

const (
	// AppointmentPending is the initial state of a booked appointment.
	AppointmentPending AppointmentStatus = "pending"
	// AppointmentConfirmed means staff confirmed the slot.
	AppointmentConfirmed AppointmentStatus = "confirmed"
	// AppointmentCompleted means the appointment took place.
	AppointmentCompleted AppointmentStatus = "completed"
	// AppointmentCancelled means the appointment was called off.
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// ValidAppointmentStatus reports whether s is a known status value.
func ValidAppointmentStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}

	return false
}

// Appointment is a booked studio appointment.
type Appointment struct {
	ID          uint64            `gorm:"primaryKey"`
	CustomerID  uint64            `gorm:"not null"`
	Customer    Customer          `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	Service     string            `gorm:"size:200;not null"`
	ScheduledAt time.Time         `gorm:"not null"`
	Status      AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Notes       string            `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides GORM's default pluralized table naming.
func (Appointment) TableName() string {
	return "appointments"
}
