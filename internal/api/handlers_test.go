package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medilink/clinic-scheduling/internal/appointment"
	"github.com/medilink/clinic-scheduling/internal/config"
	"github.com/medilink/clinic-scheduling/internal/schedule"
)

// stubRepo overrides only the Repository methods a test path reaches; an
// unexpected call panics through the embedded nil interface, which is
// exactly what we want from a handler test.
type stubRepo struct {
	appointment.Repository

	doctor    *appointment.Doctor
	patient   *appointment.Patient
	hours     map[int]appointment.WorkingHours
	booked    []time.Time
	offs      []appointment.TimeOff
	createErr error
	appt      *appointment.Appointment
}

func (s *stubRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*appointment.Doctor, error) {
	if s.doctor != nil && s.doctor.ID == id {
		return s.doctor, nil
	}
	return nil, appointment.ErrDoctorNotFound
}

func (s *stubRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*appointment.Patient, error) {
	if s.patient != nil && s.patient.ID == id {
		return s.patient, nil
	}
	return nil, appointment.ErrPatientNotFound
}

func (s *stubRepo) GetWorkingHours(_ context.Context, _ uuid.UUID, weekday int) (*appointment.WorkingHours, error) {
	wh, ok := s.hours[weekday]
	if !ok {
		return nil, appointment.ErrWorkingHoursNotFound
	}
	return &wh, nil
}

func (s *stubRepo) UpsertWorkingHours(_ context.Context, wh appointment.WorkingHours) error {
	if s.hours == nil {
		s.hours = make(map[int]appointment.WorkingHours)
	}
	s.hours[wh.Weekday] = wh
	return nil
}

func (s *stubRepo) ListScheduledInstants(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]time.Time, error) {
	return s.booked, nil
}

func (s *stubRepo) ListTimeOff(_ context.Context, _ uuid.UUID, _ time.Time) ([]appointment.TimeOff, error) {
	return s.offs, nil
}

func (s *stubRepo) GetScheduledAt(_ context.Context, _ uuid.UUID, at time.Time) (*appointment.Appointment, error) {
	for _, b := range s.booked {
		if b.Equal(at) {
			return &appointment.Appointment{DateTime: b, Status: appointment.StatusScheduled}, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (s *stubRepo) CreateScheduledAppointment(_ context.Context, doctorID, patientID uuid.UUID, at time.Time, notes string) (*appointment.Appointment, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.appt = &appointment.Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		DateTime:  at,
		Status:    appointment.StatusScheduled,
		Notes:     notes,
	}
	return s.appt, nil
}

func (s *stubRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	if s.appt != nil && s.appt.ID == id {
		return s.appt, nil
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (s *stubRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to appointment.AppointmentStatus, doctorNotes *string) (*appointment.Appointment, error) {
	if s.appt == nil || s.appt.ID != id || s.appt.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	s.appt.Status = to
	if doctorNotes != nil {
		s.appt.DoctorNotes = *doctorNotes
	}
	return s.appt, nil
}

func (s *stubRepo) InsertEvent(_ context.Context, _ appointment.EventLog) error {
	return nil
}

type passLocker struct{}

func (passLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func mustClock(s string) schedule.ClockTime {
	c, err := schedule.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// tuesday matches weekday 2 in the working-hours fixtures.
const tuesday = "2026-03-10"

func newTestRouter(repo *stubRepo) http.Handler {
	cfg := config.Config{SlotInterval: 15 * time.Minute, Timezone: time.UTC}
	svc := appointment.NewService(repo, passLocker{}, cfg, zap.NewNop())
	return NewRouter(RouterConfig{
		Service:  svc,
		Logger:   zap.NewNop(),
		Timezone: time.UTC,
		Env:      "test",
		Version:  "test",
	})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestGetAvailabilityEndpoint(t *testing.T) {
	doctorID := uuid.New()
	repo := &stubRepo{
		doctor: &appointment.Doctor{ID: doctorID, Name: "Dr. Reyes"},
		hours: map[int]appointment.WorkingHours{
			2: {DoctorID: doctorID, Weekday: 2, Start: mustClock("08:00"), End: mustClock("09:00")},
		},
	}
	router := newTestRouter(repo)

	t.Run("malformed doctor id", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/doctors/not-a-uuid/availability?date="+tuesday, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_doctor_id", errorCode(t, rec))
	})

	t.Run("malformed date", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/doctors/"+doctorID.String()+"/availability?date=03-10-2026", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_date", errorCode(t, rec))
	})

	t.Run("no working hours that weekday", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/doctors/"+doctorID.String()+"/availability?date=2026-03-11", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "no_working_hours", errorCode(t, rec))
	})

	t.Run("open day lists slots", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/doctors/"+doctorID.String()+"/availability?date="+tuesday, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AvailabilityResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tuesday, resp.Date)
		assert.Equal(t, []string{"08:00", "08:15", "08:30", "08:45"}, resp.Slots)
	})

	t.Run("fully blocked day serializes an empty array", func(t *testing.T) {
		blocked := &stubRepo{
			doctor: repo.doctor,
			hours:  repo.hours,
			offs: []appointment.TimeOff{
				{DoctorID: doctorID, Start: mustClock("08:00"), End: mustClock("09:00")},
			},
		}
		rec := doRequest(t, newTestRouter(blocked), http.MethodGet, "/doctors/"+doctorID.String()+"/availability?date="+tuesday, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"slots":[]`)
	})
}

func TestBookAppointmentEndpoint(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()

	newRepo := func() *stubRepo {
		return &stubRepo{
			doctor:  &appointment.Doctor{ID: doctorID, Name: "Dr. Reyes"},
			patient: &appointment.Patient{ID: patientID, Name: "Ana"},
			hours: map[int]appointment.WorkingHours{
				2: {DoctorID: doctorID, Weekday: 2, Start: mustClock("08:00"), End: mustClock("12:00")},
			},
		}
	}

	book := func(t *testing.T, router http.Handler, timeStr string) *httptest.ResponseRecorder {
		return doRequest(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
			DoctorID:  doctorID.String(),
			PatientID: patientID.String(),
			Date:      tuesday,
			Time:      timeStr,
		})
	}

	t.Run("missing fields fail validation", func(t *testing.T) {
		rec := doRequest(t, newTestRouter(newRepo()), http.MethodPost, "/appointments", map[string]string{"doctor_id": doctorID.String()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request_body", errorCode(t, rec))
	})

	t.Run("malformed time", func(t *testing.T) {
		rec := book(t, newTestRouter(newRepo()), "9am")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_time", errorCode(t, rec))
	})

	t.Run("unknown doctor", func(t *testing.T) {
		repo := newRepo()
		repo.doctor = nil
		rec := book(t, newTestRouter(repo), "09:00")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "doctor_not_found", errorCode(t, rec))
	})

	t.Run("books a free slot", func(t *testing.T) {
		rec := book(t, newTestRouter(newRepo()), "09:00")
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp AppointmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, doctorID, resp.DoctorID)
		assert.Equal(t, "scheduled", resp.Status)
	})

	t.Run("outside the working window", func(t *testing.T) {
		rec := book(t, newTestRouter(newRepo()), "14:00")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "outside_availability", errorCode(t, rec))
	})

	t.Run("booked slot conflicts", func(t *testing.T) {
		repo := newRepo()
		repo.booked = []time.Time{time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
		rec := book(t, newTestRouter(repo), "09:00")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "slot_already_booked", errorCode(t, rec))
	})

	t.Run("lost insert race surfaces as conflict", func(t *testing.T) {
		repo := newRepo()
		repo.createErr = appointment.ErrDuplicateAppointment
		rec := book(t, newTestRouter(repo), "09:00")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "slot_already_booked", errorCode(t, rec))
	})
}

func TestAppointmentLifecycleEndpoints(t *testing.T) {
	t.Run("cancel unknown appointment", func(t *testing.T) {
		rec := doRequest(t, newTestRouter(&stubRepo{}), http.MethodPost, "/appointments/"+uuid.New().String()+"/cancel", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "appointment_not_found", errorCode(t, rec))
	})

	t.Run("complete a cancelled appointment", func(t *testing.T) {
		repo := &stubRepo{appt: &appointment.Appointment{ID: uuid.New(), Status: appointment.StatusCancelled}}
		rec := doRequest(t, newTestRouter(repo), http.MethodPost, "/appointments/"+repo.appt.ID.String()+"/complete",
			CompleteAppointmentRequest{DoctorNotes: "n/a"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "invalid_status_transition", errorCode(t, rec))
	})

	t.Run("complete records notes", func(t *testing.T) {
		repo := &stubRepo{appt: &appointment.Appointment{ID: uuid.New(), Status: appointment.StatusScheduled}}
		rec := doRequest(t, newTestRouter(repo), http.MethodPost, "/appointments/"+repo.appt.ID.String()+"/complete",
			CompleteAppointmentRequest{DoctorNotes: "prescribed rest"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AppointmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, "prescribed rest", resp.DoctorNotes)
	})
}

func TestSetWorkingHoursEndpoint(t *testing.T) {
	doctorID := uuid.New()
	repo := &stubRepo{doctor: &appointment.Doctor{ID: doctorID, Name: "Dr. Reyes"}}
	router := newTestRouter(repo)
	path := "/doctors/" + doctorID.String() + "/working-hours/"

	t.Run("weekday out of range", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, path+"9", SetWorkingHoursRequest{Start: "08:00", End: "12:00"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_weekday", errorCode(t, rec))
	})

	t.Run("end before start", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, path+"2", SetWorkingHoursRequest{Start: "12:00", End: "08:00"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_window", errorCode(t, rec))
	})

	t.Run("sets the window", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, path+"2", SetWorkingHoursRequest{Start: "08:00", End: "12:00"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp WorkingHoursResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Weekday)
		assert.Equal(t, "08:00", resp.Start)
		assert.Equal(t, "12:00", resp.End)
	})
}
