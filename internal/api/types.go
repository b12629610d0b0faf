package api

import (
	"time"

	"github.com/google/uuid"
)

type BookAppointmentRequest struct {
	DoctorID  string `json:"doctor_id" validate:"required,uuid"`
	PatientID string `json:"patient_id" validate:"required,uuid"`
	Date      string `json:"date" validate:"required"` // YYYY-MM-DD
	Time      string `json:"time" validate:"required"` // HH:MM
	Notes     string `json:"notes" validate:"max=2000"`
}

type SetWorkingHoursRequest struct {
	Start string `json:"start" validate:"required"` // HH:MM
	End   string `json:"end" validate:"required"`   // HH:MM
}

type AddTimeOffRequest struct {
	Date   string `json:"date" validate:"required"`  // YYYY-MM-DD
	Start  string `json:"start" validate:"required"` // HH:MM
	End    string `json:"end" validate:"required"`   // HH:MM
	Reason string `json:"reason" validate:"max=200"`
}

type CompleteAppointmentRequest struct {
	DoctorNotes string `json:"doctor_notes" validate:"max=4000"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DateTime    time.Time `json:"date_time"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	DoctorNotes string    `json:"doctor_notes,omitempty"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	DoctorName   string `json:"doctor_name,omitempty"`
	PatientName  string `json:"patient_name,omitempty"`
	PatientEmail string `json:"patient_email,omitempty"`
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []string  `json:"slots"`
}

type DayScheduleResponse struct {
	DoctorID     uuid.UUID                   `json:"doctor_id"`
	Date         string                      `json:"date"`
	Defined      bool                        `json:"working_hours_defined"`
	Slots        []string                    `json:"slots"`
	Appointments []AppointmentDetailResponse `json:"appointments"`
}

type WorkingHoursResponse struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type TimeOffResponse struct {
	ID     uuid.UUID `json:"id"`
	Date   string    `json:"date"`
	Start  string    `json:"start"`
	End    string    `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
