package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/medilink/clinic-scheduling/internal/appointment"
	redisclient "github.com/medilink/clinic-scheduling/internal/redis"
	"github.com/medilink/clinic-scheduling/internal/schedule"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc      *appointment.Service
	validate *validator.Validate
	loc      *time.Location
}

func NewHandler(svc *appointment.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		loc:      loc,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return false
	}
	return true
}

func (h *Handler) parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, h.loc)
}

func pathUUID(w http.ResponseWriter, r *http.Request, param, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// GET /doctors/{id}/availability?date=YYYY-MM-DD
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
	if !ok {
		return
	}

	date, err := h.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.svc.ResolveAvailability(r.Context(), doctorID, date)
	if err != nil {
		h.handleScheduleError(w, err)
		return
	}

	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		DoctorID: doctorID,
		Date:     date.Format(dateLayout),
		Slots:    slots,
	})
}

// GET /doctors/{id}/schedule?date=YYYY-MM-DD
func (h *Handler) GetDaySchedule(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
	if !ok {
		return
	}

	date, err := h.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	day, err := h.svc.DoctorDaySchedule(r.Context(), doctorID, date)
	if err != nil {
		h.handleScheduleError(w, err)
		return
	}

	resp := DayScheduleResponse{
		DoctorID:     doctorID,
		Date:         date.Format(dateLayout),
		Defined:      day.Defined,
		Slots:        day.Slots,
		Appointments: make([]AppointmentDetailResponse, 0, len(day.Appointments)),
	}
	if resp.Slots == nil {
		resp.Slots = []string{}
	}
	for _, d := range day.Appointments {
		resp.Appointments = append(resp.Appointments, toDetailResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

// PUT /doctors/{id}/working-hours/{weekday}
func (h *Handler) SetWorkingHours(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
	if !ok {
		return
	}

	weekday, err := weekdayParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_weekday", err.Error())
		return
	}

	var req SetWorkingHoursRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := schedule.ParseClock(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "start must be HH:MM")
		return
	}
	end, err := schedule.ParseClock(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "end must be HH:MM")
		return
	}

	if err := h.svc.SetWorkingHours(r.Context(), doctorID, weekday, start, end); err != nil {
		h.handleScheduleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, WorkingHoursResponse{
		Weekday: weekday,
		Start:   start.String(),
		End:     end.String(),
	})
}

// DELETE /doctors/{id}/working-hours/{weekday}
func (h *Handler) DisableWorkingDay(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
	if !ok {
		return
	}

	weekday, err := weekdayParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_weekday", err.Error())
		return
	}

	if err := h.svc.DisableWorkingDay(r.Context(), doctorID, weekday); err != nil {
		h.handleScheduleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /doctors/{id}/working-hours
func (h *Handler) ListWorkingHours(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
	if !ok {
		return
	}

	hours, err := h.svc.ListWorkingHours(r.Context(), doctorID)
	if err != nil {
		h.handleScheduleError(w, err)
		return
	}

	resp := make([]WorkingHoursResponse, 0, len(hours))
	for _, wh := range hours {
		resp = append(resp, WorkingHoursResponse{
			Weekday: wh.Weekday,
			Start:   wh.Start.String(),
			End:     wh.End.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /doctors/{id}/time-off
func (h *Handler) AddTimeOff(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
	if !ok {
		return
	}

	var req AddTimeOffRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := h.parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}
	start, err := schedule.ParseClock(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "start must be HH:MM")
		return
	}
	end, err := schedule.ParseClock(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "end must be HH:MM")
		return
	}

	to, err := h.svc.AddTimeOff(r.Context(), doctorID, date, start, end, req.Reason)
	if err != nil {
		h.handleScheduleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTimeOffResponse(*to))
}

// GET /doctors/{id}/time-off?date=YYYY-MM-DD
func (h *Handler) ListTimeOff(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
	if !ok {
		return
	}

	date, err := h.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	offs, err := h.svc.ListTimeOff(r.Context(), doctorID, date)
	if err != nil {
		h.handleScheduleError(w, err)
		return
	}

	resp := make([]TimeOffResponse, 0, len(offs))
	for _, to := range offs {
		resp = append(resp, toTimeOffResponse(to))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DELETE /doctors/{id}/time-off/{timeOffID}
func (h *Handler) RemoveTimeOff(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
	if !ok {
		return
	}
	timeOffID, ok := pathUUID(w, r, "timeOffID", "invalid_time_off_id")
	if !ok {
		return
	}

	if err := h.svc.RemoveTimeOff(r.Context(), doctorID, timeOffID); err != nil {
		h.handleScheduleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /appointments
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}
	at, err := schedule.ParseClock(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "time must be HH:MM")
		return
	}

	appt, err := h.svc.BookAppointment(r.Context(), doctorID, patientID, date, at, req.Notes)
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

// POST /appointments/{id}/cancel
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
	if !ok {
		return
	}

	appt, err := h.svc.CancelAppointment(r.Context(), id)
	if err != nil {
		h.handleLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// POST /appointments/{id}/complete
func (h *Handler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
	if !ok {
		return
	}

	var req CompleteAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	appt, err := h.svc.CompleteAppointment(r.Context(), id, req.DoctorNotes)
	if err != nil {
		h.handleLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// GET /appointments/{id}
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
	if !ok {
		return
	}

	detail, err := h.svc.GetAppointment(r.Context(), id)
	if err != nil {
		h.handleLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDetailResponse(*detail))
}

// GET /appointments?patient_id=&limit=&offset=
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(r.URL.Query().Get("patient_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	appts, err := h.svc.ListAppointmentsByPatient(r.Context(), patientID, limit, offset)
	if err != nil {
		h.handleLifecycleError(w, err)
		return
	}

	resp := make([]AppointmentDetailResponse, 0, len(appts))
	for _, d := range appts {
		resp = append(resp, toDetailResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Error mapping

func (h *Handler) handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrWorkingHoursNotFound):
		writeError(w, http.StatusNotFound, "no_working_hours", err.Error())
	case errors.Is(err, appointment.ErrTimeOffNotFound):
		writeError(w, http.StatusNotFound, "time_off_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidWeekday),
		errors.Is(err, appointment.ErrInvalidWindow),
		errors.Is(err, appointment.ErrInvalidTimeOffWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (h *Handler) handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrWorkingHoursNotFound):
		writeError(w, http.StatusUnprocessableEntity, "no_working_hours", err.Error())
	case errors.Is(err, appointment.ErrOutsideAvailability):
		writeError(w, http.StatusUnprocessableEntity, "outside_availability", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (h *Handler) handleLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Conversions

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		PatientID:   a.PatientID,
		DateTime:    a.DateTime,
		Status:      string(a.Status),
		Notes:       a.Notes,
		DoctorNotes: a.DoctorNotes,
	}
}

func toDetailResponse(d appointment.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
	}
	if d.Doctor != nil {
		resp.DoctorName = d.Doctor.Name
	}
	if d.Patient != nil {
		resp.PatientName = d.Patient.Name
		if d.Patient.Email != nil {
			resp.PatientEmail = *d.Patient.Email
		}
	}
	return resp
}

func toTimeOffResponse(to appointment.TimeOff) TimeOffResponse {
	return TimeOffResponse{
		ID:     to.ID,
		Date:   to.Date.Format(dateLayout),
		Start:  to.Start.String(),
		End:    to.End.String(),
		Reason: to.Reason,
	}
}

func weekdayParam(r *http.Request) (int, error) {
	v := chi.URLParam(r, "weekday")
	switch v {
	case "1", "2", "3", "4", "5", "6", "7":
		return int(v[0] - '0'), nil
	}
	return 0, errors.New("weekday must be 1 (Monday) through 7 (Sunday)")
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
