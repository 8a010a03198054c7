package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

// Helpers

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var image, userID *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialization,
		&image,
		&userID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Image = image
	d.UserID = userID
	return &d, nil
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	var category *string

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.Duration,
		&s.Price,
		&category,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	s.Category = category
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ServiceID,
		&a.Date,
		&a.Slot,
		&a.Status,
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

// Users

func (r *PgRepository) FindUser(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) UpsertUser(ctx context.Context, id, email, name string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, role, created_at)
		VALUES ($1, $2, $3, 'patient', now())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    name  = EXCLUDED.name
		RETURNING id, email, name, role, created_at
	`, id, email, name)
	return scanUser(row)
}

func (r *PgRepository) UpdateUserRole(ctx context.Context, id string, role Role) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET role = $2
		WHERE id = $1
		RETURNING id, email, name, role, created_at
	`, id, role)
	return scanUser(row)
}

func (r *PgRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, role, created_at
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

// Doctors

const doctorColumns = `id, name, specialization, image, user_id, created_at, updated_at`

func (r *PgRepository) FindDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) FindDoctorByUser(ctx context.Context, userID string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE user_id = $1
	`, userID)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// CreateDoctor inserts the doctor row and, when a user is linked, promotes
// that user to the doctor role inside the same transaction. Either both
// writes land or neither does.
func (r *PgRepository) CreateDoctor(ctx context.Context, d NewDoctor) (*Doctor, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if d.UserID != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE users SET role = 'doctor' WHERE id = $1
		`, *d.UserID)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrUserNotFound
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO doctors (id, name, specialization, image, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+doctorColumns+`
	`, uuid.New(), d.Name, d.Specialization, d.Image, d.UserID)

	created, err := scanDoctor(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteDoctor runs the removal cascade: demote the linked user, drop every
// appointment referencing the doctor, then the doctor row. One transaction,
// so an interrupted removal is never partially visible.
func (r *PgRepository) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID *string
	err = tx.QueryRow(ctx, `SELECT user_id FROM doctors WHERE id = $1`, id).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDoctorNotFound
		}
		return err
	}

	if userID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE users SET role = 'patient' WHERE id = $1
		`, *userID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM appointments WHERE doctor_id = $1
	`, id); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM doctors WHERE id = $1
	`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Services

const serviceColumns = `id, name, description, duration, price, category, created_at`

func (r *PgRepository) FindService(ctx context.Context, id uuid.UUID) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgRepository) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateService(ctx context.Context, s Service) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, description, duration, price, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+serviceColumns+`
	`, uuid.New(), s.Name, s.Description, s.Duration, s.Price, s.Category)
	return scanService(row)
}

// Appointments

const appointmentColumns = `id, patient_id, doctor_id, service_id, date, slot, status, created_at, updated_at`

func (r *PgRepository) FindAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindAppointmentsByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeStatus AppointmentStatus) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND status <> $3
	`, doctorID, date, excludeStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// CreateAppointmentIfFree performs the check-and-insert as one transaction.
// The partial unique index on (doctor_id, date, slot) WHERE status <>
// 'cancelled' backstops the check, so two racing transactions cannot both
// commit even if both pass the SELECT.
func (r *PgRepository) CreateAppointmentIfFree(ctx context.Context, a NewAppointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var taken bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND date = $2
			  AND slot = $3
			  AND status <> 'cancelled'
		)
	`, a.DoctorID, a.Date, a.Slot).Scan(&taken)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, service_id, date, slot, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), a.PatientID, a.DoctorID, a.ServiceID, a.Date, a.Slot)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, status)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID string) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.date, a.slot
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.doctor_id = $1
		ORDER BY a.date, a.slot
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

const detailQuery = `
	SELECT a.id, a.patient_id, a.doctor_id, a.service_id, a.date, a.slot, a.status, a.created_at, a.updated_at,
	       d.id, d.name, d.specialization, d.image, d.user_id, d.created_at, d.updated_at,
	       s.id, s.name, s.description, s.duration, s.price, s.category, s.created_at,
	       u.id, u.email, u.name, u.role, u.created_at
	FROM appointments a
	JOIN doctors  d ON d.id = a.doctor_id
	JOIN services s ON s.id = a.service_id
	JOIN users    u ON u.id = a.patient_id
`

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		var det AppointmentDetail
		var doc Doctor
		var svc Service
		var pat User
		var svcCategory *string

		err := rows.Scan(
			&det.ID, &det.PatientID, &det.DoctorID, &det.ServiceID, &det.Date, &det.Slot, &det.Status, &det.CreatedAt, &det.UpdatedAt,
			&doc.ID, &doc.Name, &doc.Specialization, &doc.Image, &doc.UserID, &doc.CreatedAt, &doc.UpdatedAt,
			&svc.ID, &svc.Name, &svc.Description, &svc.Duration, &svc.Price, &svcCategory, &svc.CreatedAt,
			&pat.ID, &pat.Email, &pat.Name, &pat.Role, &pat.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan appointment detail: %w", err)
		}
		svc.Category = svcCategory
		det.Doctor = &doc
		det.Service = &svc
		det.Patient = &pat
		result = append(result, det)
	}
	return result, rows.Err()
}
