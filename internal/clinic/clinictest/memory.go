// Package clinictest provides in-memory implementations of the scheduling
// dependencies for tests: a repository backed by maps, a process-local
// booking locker and a stub image store.
package clinictest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carewell/clinic-scheduling/internal/clinic"
	redisclient "github.com/carewell/clinic-scheduling/internal/redis"
	"github.com/carewell/clinic-scheduling/internal/storage"
)

// MemRepository implements clinic.Repository in memory. Every method takes
// the same mutex, so the check-and-insert of CreateAppointmentIfFree is
// atomic the way the Postgres transaction is.
type MemRepository struct {
	mu sync.Mutex

	users    map[string]clinic.User
	doctors  map[uuid.UUID]clinic.Doctor
	services map[uuid.UUID]clinic.Service
	appts    map[uuid.UUID]clinic.Appointment

	// Err, when set, is returned by every method. Used to exercise
	// internal-error paths.
	Err error
}

var _ clinic.Repository = (*MemRepository)(nil)

func NewMemRepository() *MemRepository {
	return &MemRepository{
		users:    make(map[string]clinic.User),
		doctors:  make(map[uuid.UUID]clinic.Doctor),
		services: make(map[uuid.UUID]clinic.Service),
		appts:    make(map[uuid.UUID]clinic.Appointment),
	}
}

// Seed helpers

func (m *MemRepository) SeedUser(u clinic.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = u
}

func (m *MemRepository) SeedDoctor(d clinic.Doctor) clinic.Doctor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.doctors[d.ID] = d
	return d
}

func (m *MemRepository) SeedService(s clinic.Service) clinic.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.services[s.ID] = s
	return s
}

func (m *MemRepository) SeedAppointment(a clinic.Appointment) clinic.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = clinic.StatusPending
	}
	m.appts[a.ID] = a
	return a
}

// Users

func (m *MemRepository) FindUser(ctx context.Context, id string) (*clinic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, clinic.ErrUserNotFound
	}
	return &u, nil
}

func (m *MemRepository) UpsertUser(ctx context.Context, id, email, name string) (*clinic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	u, ok := m.users[id]
	if !ok {
		u = clinic.User{
			ID:        id,
			Role:      clinic.RolePatient,
			CreatedAt: time.Now(),
		}
	}
	u.Email = email
	u.Name = name
	m.users[id] = u
	return &u, nil
}

func (m *MemRepository) UpdateUserRole(ctx context.Context, id string, role clinic.Role) (*clinic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, clinic.ErrUserNotFound
	}
	u.Role = role
	m.users[id] = u
	return &u, nil
}

func (m *MemRepository) ListUsers(ctx context.Context) ([]clinic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]clinic.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

// Doctors

func (m *MemRepository) FindDoctor(ctx context.Context, id uuid.UUID) (*clinic.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	d, ok := m.doctors[id]
	if !ok {
		return nil, clinic.ErrDoctorNotFound
	}
	return &d, nil
}

func (m *MemRepository) FindDoctorByUser(ctx context.Context, userID string) (*clinic.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, d := range m.doctors {
		if d.UserID != nil && *d.UserID == userID {
			return &d, nil
		}
	}
	return nil, clinic.ErrDoctorNotFound
}

func (m *MemRepository) ListDoctors(ctx context.Context) ([]clinic.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]clinic.Doctor, 0, len(m.doctors))
	for _, d := range m.doctors {
		out = append(out, d)
	}
	return out, nil
}

func (m *MemRepository) CreateDoctor(ctx context.Context, nd clinic.NewDoctor) (*clinic.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	if nd.UserID != nil {
		u, ok := m.users[*nd.UserID]
		if !ok {
			return nil, clinic.ErrUserNotFound
		}
		u.Role = clinic.RoleDoctor
		m.users[*nd.UserID] = u
	}

	d := clinic.Doctor{
		ID:             uuid.New(),
		Name:           nd.Name,
		Specialization: nd.Specialization,
		Image:          nd.Image,
		UserID:         nd.UserID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.doctors[d.ID] = d
	return &d, nil
}

func (m *MemRepository) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	d, ok := m.doctors[id]
	if !ok {
		return clinic.ErrDoctorNotFound
	}

	if d.UserID != nil {
		if u, ok := m.users[*d.UserID]; ok {
			u.Role = clinic.RolePatient
			m.users[*d.UserID] = u
		}
	}
	for aid, a := range m.appts {
		if a.DoctorID == id {
			delete(m.appts, aid)
		}
	}
	delete(m.doctors, id)
	return nil
}

// Services

func (m *MemRepository) FindService(ctx context.Context, id uuid.UUID) (*clinic.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.services[id]
	if !ok {
		return nil, clinic.ErrServiceNotFound
	}
	return &s, nil
}

func (m *MemRepository) ListServices(ctx context.Context) ([]clinic.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]clinic.Service, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, s)
	}
	return out, nil
}

func (m *MemRepository) CreateService(ctx context.Context, s clinic.Service) (*clinic.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	m.services[s.ID] = s
	return &s, nil
}

// Appointments

func (m *MemRepository) FindAppointment(ctx context.Context, id uuid.UUID) (*clinic.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.appts[id]
	if !ok {
		return nil, clinic.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *MemRepository) FindAppointmentsByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeStatus clinic.AppointmentStatus) ([]clinic.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []clinic.Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status != excludeStatus {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemRepository) CreateAppointmentIfFree(ctx context.Context, na clinic.NewAppointment) (*clinic.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	for _, a := range m.appts {
		if a.DoctorID == na.DoctorID && a.Date.Equal(na.Date) && a.Slot == na.Slot && a.Status != clinic.StatusCancelled {
			return nil, clinic.ErrSlotTaken
		}
	}

	a := clinic.Appointment{
		ID:        uuid.New(),
		PatientID: na.PatientID,
		DoctorID:  na.DoctorID,
		ServiceID: na.ServiceID,
		Date:      na.Date,
		Slot:      na.Slot,
		Status:    clinic.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.appts[a.ID] = a
	return &a, nil
}

func (m *MemRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status clinic.AppointmentStatus) (*clinic.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.appts[id]
	if !ok {
		return nil, clinic.ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	m.appts[id] = a
	return &a, nil
}

func (m *MemRepository) ListAppointmentsByPatient(ctx context.Context, patientID string) ([]clinic.AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []clinic.AppointmentDetail
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, m.detail(a))
		}
	}
	return out, nil
}

func (m *MemRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]clinic.AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []clinic.AppointmentDetail
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			out = append(out, m.detail(a))
		}
	}
	return out, nil
}

func (m *MemRepository) detail(a clinic.Appointment) clinic.AppointmentDetail {
	det := clinic.AppointmentDetail{Appointment: a}
	if d, ok := m.doctors[a.DoctorID]; ok {
		det.Doctor = &d
	}
	if s, ok := m.services[a.ServiceID]; ok {
		det.Service = &s
	}
	if u, ok := m.users[a.PatientID]; ok {
		det.Patient = &u
	}
	return det
}

// CountAppointments reports how many stored appointments match the filter.
func (m *MemRepository) CountAppointments(match func(clinic.Appointment) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.appts {
		if match(a) {
			n++
		}
	}
	return n
}

// LocalLocker is a process-local Locker: one mutex per booking key.
// Contending callers block instead of failing, so tests exercise the
// serialized critical section rather than lock-acquisition refusals.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

var _ redisclient.Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) WithBookingLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	km, ok := l.keys[key]
	if !ok {
		km = &sync.Mutex{}
		l.keys[key] = km
	}
	l.mu.Unlock()

	km.Lock()
	defer km.Unlock()
	return fn(ctx)
}

// StubImageStore records saves and deletes. DeleteErr makes Delete fail, for
// exercising the best-effort cleanup path.
type StubImageStore struct {
	mu        sync.Mutex
	Saved     []string
	Deleted   []string
	DeleteErr error
}

var _ storage.ImageStore = (*StubImageStore)(nil)

func (s *StubImageStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "/uploads/doctors/" + uuid.NewString() + "-" + filename
	s.Saved = append(s.Saved, ref)
	return ref, nil
}

func (s *StubImageStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, ref)
	return s.DeleteErr
}
