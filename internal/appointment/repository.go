package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrWorkingHoursNotFound = errors.New("no working hours for that weekday")
	ErrTimeOffNotFound      = errors.New("time off block not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")

	// ErrDuplicateAppointment is returned when the scheduled-slot
	// uniqueness constraint rejects an insert.
	ErrDuplicateAppointment = errors.New("doctor already has a scheduled appointment at that time")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Working hours, one row per (doctor, weekday)
	GetWorkingHours(ctx context.Context, doctorID uuid.UUID, weekday int) (*WorkingHours, error)
	ListWorkingHours(ctx context.Context, doctorID uuid.UUID) ([]WorkingHours, error)
	UpsertWorkingHours(ctx context.Context, wh WorkingHours) error
	DeleteWorkingHours(ctx context.Context, doctorID uuid.UUID, weekday int) error

	// Time off, date-scoped
	ListTimeOff(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeOff, error)
	CreateTimeOff(ctx context.Context, to TimeOff) (*TimeOff, error)
	DeleteTimeOff(ctx context.Context, doctorID, id uuid.UUID) error

	// For availability and conflict checks
	ListScheduledInstants(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) ([]time.Time, error)
	GetScheduledAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error)

	// Creation and lifecycle
	CreateScheduledAppointment(ctx context.Context, doctorID, patientID uuid.UUID, at time.Time, notes string) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, doctorNotes *string) (*Appointment, error)

	// Reads
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)
	ListAppointmentsByDoctorDay(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) ([]AppointmentDetail, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
