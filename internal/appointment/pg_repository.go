package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medilink/clinic-scheduling/internal/schedule"
)

const uniqueViolationCode = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func clockToPg(c schedule.ClockTime) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c.Minutes()) * 60 * 1_000_000, Valid: true}
}

func pgToClock(t pgtype.Time) schedule.ClockTime {
	return schedule.ClockFromMinutes(int(t.Microseconds / 60_000_000))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.LicenseNumber,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanWorkingHours(row pgx.Row) (*WorkingHours, error) {
	var wh WorkingHours
	var start, end pgtype.Time

	err := row.Scan(
		&wh.DoctorID,
		&wh.Weekday,
		&start,
		&end,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkingHoursNotFound
		}
		return nil, err
	}

	wh.Start = pgToClock(start)
	wh.End = pgToClock(end)
	return &wh, nil
}

func scanTimeOff(row pgx.Row) (*TimeOff, error) {
	var to TimeOff
	var start, end pgtype.Time

	err := row.Scan(
		&to.ID,
		&to.DoctorID,
		&to.Date,
		&start,
		&end,
		&to.Reason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTimeOffNotFound
		}
		return nil, err
	}

	to.Start = pgToClock(start)
	to.End = pgToClock(end)
	return &to, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.DateTime,
		&a.Status,
		&a.Notes,
		&a.DoctorNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanAppointmentDetail(row pgx.Row) (*AppointmentDetail, error) {
	var d AppointmentDetail
	var doc Doctor
	var pat Patient

	err := row.Scan(
		&d.ID,
		&d.DoctorID,
		&d.PatientID,
		&d.DateTime,
		&d.Status,
		&d.Notes,
		&d.DoctorNotes,
		&d.CreatedAt,
		&d.UpdatedAt,
		&doc.ID,
		&doc.Name,
		&doc.Specialty,
		&pat.ID,
		&pat.Name,
		&pat.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	d.Doctor = &doc
	d.Patient = &pat
	return &d, nil
}

const appointmentDetailQuery = `
	SELECT a.id, a.doctor_id, a.patient_id, a.date_time, a.status, a.notes, a.doctor_notes,
	       a.created_at, a.updated_at,
	       d.id, d.name, d.specialty,
	       p.id, p.name, p.email
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN patients p ON p.id = a.patient_id
`

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, license_number, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetWorkingHours(ctx context.Context, doctorID uuid.UUID, weekday int) (*WorkingHours, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT doctor_id, weekday, start_time, end_time
		FROM working_hours
		WHERE doctor_id = $1 AND weekday = $2
	`, doctorID, weekday)
	return scanWorkingHours(row)
}

func (r *PgRepository) ListWorkingHours(ctx context.Context, doctorID uuid.UUID) ([]WorkingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id, weekday, start_time, end_time
		FROM working_hours
		WHERE doctor_id = $1
		ORDER BY weekday
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WorkingHours
	for rows.Next() {
		wh, err := scanWorkingHours(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *wh)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpsertWorkingHours(ctx context.Context, wh WorkingHours) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO working_hours (doctor_id, weekday, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, weekday)
		DO UPDATE SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time
	`, wh.DoctorID, wh.Weekday, clockToPg(wh.Start), clockToPg(wh.End))
	if err != nil {
		return fmt.Errorf("upsert working hours: %w", err)
	}
	return nil
}

func (r *PgRepository) DeleteWorkingHours(ctx context.Context, doctorID uuid.UUID, weekday int) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM working_hours
		WHERE doctor_id = $1 AND weekday = $2
	`, doctorID, weekday)
	if err != nil {
		return fmt.Errorf("delete working hours: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkingHoursNotFound
	}
	return nil
}

func (r *PgRepository) ListTimeOff(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeOff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, date, start_time, end_time, reason
		FROM time_off
		WHERE doctor_id = $1 AND date = $2
		ORDER BY start_time
	`, doctorID, pgtype.Date{Time: date, Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeOff
	for rows.Next() {
		to, err := scanTimeOff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *to)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateTimeOff(ctx context.Context, to TimeOff) (*TimeOff, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO time_off (id, doctor_id, date, start_time, end_time, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, doctor_id, date, start_time, end_time, reason
	`, id, to.DoctorID, pgtype.Date{Time: to.Date, Valid: true}, clockToPg(to.Start), clockToPg(to.End), to.Reason)

	return scanTimeOff(row)
}

func (r *PgRepository) DeleteTimeOff(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM time_off
		WHERE id = $1 AND doctor_id = $2
	`, id, doctorID)
	if err != nil {
		return fmt.Errorf("delete time off: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTimeOffNotFound
	}
	return nil
}

func (r *PgRepository) ListScheduledInstants(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_time
		FROM appointments
		WHERE doctor_id = $1
		  AND status = 'scheduled'
		  AND date_time >= $2
		  AND date_time < $3
		ORDER BY date_time
	`, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, t.In(dayStart.Location()))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetScheduledAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, date_time, status, notes, doctor_notes, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND date_time = $2 AND status = 'scheduled'
	`, doctorID, at)
	return scanAppointment(row)
}

func (r *PgRepository) CreateScheduledAppointment(ctx context.Context, doctorID, patientID uuid.UUID, at time.Time, notes string) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date_time, status, notes, doctor_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'scheduled', $5, '', now(), now())
		RETURNING id, doctor_id, patient_id, date_time, status, notes, doctor_notes, created_at, updated_at
	`, id, doctorID, patientID, at, notes)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAppointment
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, doctorNotes *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    doctor_notes = COALESCE($4, doctor_notes),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, doctor_id, patient_id, date_time, status, notes, doctor_notes, created_at, updated_at
	`, id, to, from, doctorNotes)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, date_time, status, notes, doctor_notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, appointmentDetailQuery+`
		WHERE a.id = $1
	`, id)
	return scanAppointmentDetail(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, appointmentDetailQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.date_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListAppointmentsByDoctorDay(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, appointmentDetailQuery+`
		WHERE a.doctor_id = $1
		  AND a.date_time >= $2
		  AND a.date_time < $3
		ORDER BY a.date_time
	`, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
