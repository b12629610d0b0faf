package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medilink/clinic-scheduling/internal/config"
	redisclient "github.com/medilink/clinic-scheduling/internal/redis"
	"github.com/medilink/clinic-scheduling/internal/schedule"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

var (
	ErrOutsideAvailability     = errors.New("requested time is outside availability or blocked")
	ErrSlotTaken               = errors.New("slot already has a scheduled appointment")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidWeekday          = errors.New("weekday must be between 1 (Monday) and 7 (Sunday)")
	ErrInvalidWindow           = errors.New("window end must not precede its start")
	ErrInvalidTimeOffWindow    = errors.New("time off end must be after its start")
)

// DaySchedule is a doctor's view of one date: the free slots plus whatever
// is already booked. Defined is false when no working hours exist for that
// weekday, which is a different outcome than a fully booked day.
type DaySchedule struct {
	Defined      bool
	Slots        []string
	Appointments []AppointmentDetail
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	interval int
	logger   *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, logger *zap.Logger) *Service {
	interval := int(cfg.SlotInterval.Minutes())
	if interval <= 0 {
		interval = schedule.DefaultInterval
	}
	return &Service{
		repo:     repo,
		locker:   locker,
		interval: interval,
		logger:   logger,
	}
}

// ResolveAvailability computes the free "HH:MM" slots for one doctor on one
// date. A doctor with no working hours on that weekday yields
// ErrWorkingHoursNotFound; a configured but fully booked day yields an empty
// slice.
func (s *Service) ResolveAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	wh, err := s.repo.GetWorkingHours(ctx, doctorID, schedule.ISOWeekday(date))
	if err != nil {
		if errors.Is(err, ErrWorkingHoursNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load working hours: %w", err)
	}

	dayStart := schedule.At(date, schedule.ClockTime{})
	dayEnd := dayStart.AddDate(0, 0, 1)

	booked, err := s.repo.ListScheduledInstants(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load scheduled appointments: %w", err)
	}

	offs, err := s.repo.ListTimeOff(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load time off: %w", err)
	}
	blocks := make([]schedule.TimeOffBlock, 0, len(offs))
	for _, off := range offs {
		blocks = append(blocks, schedule.TimeOffBlock{Start: off.Start, End: off.End})
	}

	window := schedule.WorkingWindow{Start: wh.Start, End: wh.End}
	return schedule.Slots(date, window, booked, blocks, s.interval), nil
}

// DoctorDaySchedule resolves availability and the day's appointments in one
// call, for the doctor-facing day view.
func (s *Service) DoctorDaySchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DaySchedule, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	out := &DaySchedule{Defined: true}

	slots, err := s.ResolveAvailability(ctx, doctorID, date)
	if err != nil {
		if !errors.Is(err, ErrWorkingHoursNotFound) {
			return nil, err
		}
		out.Defined = false
	}
	out.Slots = slots

	dayStart := schedule.At(date, schedule.ClockTime{})
	appts, err := s.repo.ListAppointmentsByDoctorDay(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	out.Appointments = appts

	return out, nil
}

// BookAppointment validates a proposed (doctor, date, time) booking and
// creates the scheduled appointment. A per-(doctor, instant) lock keeps two
// concurrent requests from both passing the conflict check; the scheduled
// slot unique index backstops the lock, and its violation is reported the
// same way as a failed pre-check.
//
// No working hours on that weekday rejects the booking for every caller,
// patient- and doctor-initiated alike.
func (s *Service) BookAppointment(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time, at schedule.ClockTime, notes string) (*Appointment, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	instant := schedule.At(date, at)

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, doctorID, instant, func(lockCtx context.Context) error {
		// Exact-instant conflict first: the resolver has already dropped a
		// booked minute from the free list, and an occupied slot must
		// report as taken, not as outside availability.
		existing, err := s.repo.GetScheduledAt(lockCtx, doctorID, instant)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check scheduled appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		slots, err := s.ResolveAvailability(lockCtx, doctorID, date)
		if err != nil {
			return err
		}
		if !slices.Contains(slots, at.String()) {
			return ErrOutsideAvailability
		}

		appt, err := s.repo.CreateScheduledAppointment(lockCtx, doctorID, patientID, instant, notes)
		if err != nil {
			if errors.Is(err, ErrDuplicateAppointment) {
				return ErrSlotTaken
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":  doctorID.String(),
			"patient_id": patientID.String(),
			"date_time":  instant,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// CancelAppointment moves a scheduled appointment to cancelled. Completed
// and cancelled are terminal.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCancelled, nil)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the status race to a concurrent transition.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{})

	return updated, nil
}

// CompleteAppointment moves a scheduled appointment to completed, recording
// the doctor's notes.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID, doctorNotes string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCompleted, &doctorNotes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{})

	return updated, nil
}

// SetWorkingHours creates or replaces a doctor's window for one weekday.
// Equal start and end is allowed and simply yields no slots.
func (s *Service) SetWorkingHours(ctx context.Context, doctorID uuid.UUID, weekday int, start, end schedule.ClockTime) error {
	if weekday < 1 || weekday > 7 {
		return ErrInvalidWeekday
	}
	if end.Minutes() < start.Minutes() {
		return ErrInvalidWindow
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return err
	}
	return s.repo.UpsertWorkingHours(ctx, WorkingHours{
		DoctorID: doctorID,
		Weekday:  weekday,
		Start:    start,
		End:      end,
	})
}

// DisableWorkingDay removes the weekday's window; that weekday's
// availability becomes undefined again.
func (s *Service) DisableWorkingDay(ctx context.Context, doctorID uuid.UUID, weekday int) error {
	if weekday < 1 || weekday > 7 {
		return ErrInvalidWeekday
	}
	return s.repo.DeleteWorkingHours(ctx, doctorID, weekday)
}

func (s *Service) ListWorkingHours(ctx context.Context, doctorID uuid.UUID) ([]WorkingHours, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListWorkingHours(ctx, doctorID)
}

// AddTimeOff records a date-specific block. Ordering is validated here, on
// the write path; the resolver stays permissive about stored blocks.
func (s *Service) AddTimeOff(ctx context.Context, doctorID uuid.UUID, date time.Time, start, end schedule.ClockTime, reason string) (*TimeOff, error) {
	if end.Minutes() <= start.Minutes() {
		return nil, ErrInvalidTimeOffWindow
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.CreateTimeOff(ctx, TimeOff{
		DoctorID: doctorID,
		Date:     date,
		Start:    start,
		End:      end,
		Reason:   reason,
	})
}

func (s *Service) RemoveTimeOff(ctx context.Context, doctorID, id uuid.UUID) error {
	return s.repo.DeleteTimeOff(ctx, doctorID, id)
}

func (s *Service) ListTimeOff(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeOff, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListTimeOff(ctx, doctorID, date)
}

// GetAppointment retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListAppointmentsByPatient retrieves appointments for a specific patient.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}
