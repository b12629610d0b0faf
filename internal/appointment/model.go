package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medilink/clinic-scheduling/internal/schedule"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

type Doctor struct {
	ID            uuid.UUID
	Name          string
	Specialty     *string
	LicenseNumber *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkingHours is a doctor's recurring window for one ISO weekday
// (Monday=1..Sunday=7). At most one row exists per (doctor, weekday).
type WorkingHours struct {
	DoctorID uuid.UUID
	Weekday  int
	Start    schedule.ClockTime
	End      schedule.ClockTime
}

// TimeOff blocks out part of a specific date inside a working window.
type TimeOff struct {
	ID       uuid.UUID
	DoctorID uuid.UUID
	Date     time.Time
	Start    schedule.ClockTime
	End      schedule.ClockTime
	Reason   string
}

type Appointment struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	PatientID   uuid.UUID
	DateTime    time.Time
	Status      AppointmentStatus
	Notes       string
	DoctorNotes string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type AppointmentDetail struct {
	Appointment
	Doctor  *Doctor
	Patient *Patient
}
