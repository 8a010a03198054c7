package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/api"
	"github.com/carewell/clinic-scheduling/internal/clinic"
	"github.com/carewell/clinic-scheduling/internal/clinic/clinictest"
)

type testEnv struct {
	router  http.Handler
	repo    *clinictest.MemRepository
	patient clinic.User
	admin   clinic.User
	doctor  clinic.Doctor
	service clinic.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := clinictest.NewMemRepository()
	images := &clinictest.StubImageStore{}
	sched := clinic.NewScheduler(repo, clinictest.NewLocalLocker(), images, zerolog.Nop())

	env := &testEnv{
		repo:    repo,
		patient: clinic.User{ID: "user_alice", Email: "alice@example.com", Name: "Alice", Role: clinic.RolePatient},
		admin:   clinic.User{ID: "user_admin", Email: "admin@example.com", Name: "Admin", Role: clinic.RoleAdmin},
	}
	repo.SeedUser(env.patient)
	repo.SeedUser(env.admin)
	env.doctor = repo.SeedDoctor(clinic.Doctor{Name: "Dr. Chen", Specialization: "General Practitioner"})
	env.service = repo.SeedService(clinic.Service{Name: "Consultation", Duration: 30, Price: 50})

	env.router = api.NewRouter(api.RouterConfig{
		Scheduler: sched,
		Images:    images,
		Log:       zerolog.Nop(),
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) book(t *testing.T, userID, date, slot string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/appointments", userID, map[string]string{
		"doctor_id":  e.doctor.ID.String(),
		"service_id": e.service.ID.String(),
		"date":       date,
		"time":       slot,
	})
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.book(t, env.patient.ID, "2024-06-01", "10:00 AM")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body)
	}

	var appt api.AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if appt.Status != "pending" {
		t.Errorf("status = %s, want pending", appt.Status)
	}

	// Same slot again: conflict.
	rec = env.book(t, env.patient.ID, "2024-06-01", "10:00 AM")
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate booking status = %d, want 409", rec.Code)
	}

	// Cancel, then the slot books again.
	rec = env.do(t, http.MethodPatch, "/appointments/"+appt.ID.String(), env.admin.ID,
		map[string]string{"status": "cancelled"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", rec.Code, rec.Body)
	}
	rec = env.book(t, env.patient.ID, "2024-06-01", "10:00 AM")
	if rec.Code != http.StatusCreated {
		t.Errorf("rebook status = %d, want 201", rec.Code)
	}
}

func TestCreateAppointmentEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		user string
		date string
		slot string
		want int
	}{
		{"no identity", "", "2024-06-01", "10:00 AM", http.StatusUnauthorized},
		{"bad date", env.patient.ID, "June 1st", "10:00 AM", http.StatusBadRequest},
		{"bad slot", env.patient.ID, "2024-06-01", "13:37", http.StatusBadRequest},
		{"unknown patient", "user_ghost", "2024-06-01", "10:00 AM", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.book(t, tt.user, tt.date, tt.slot)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestSetStatusEndpointRoleGate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.book(t, env.patient.ID, "2024-06-01", "09:00 AM")
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d", rec.Code)
	}
	var appt api.AppointmentResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &appt)

	path := "/appointments/" + appt.ID.String()

	rec = env.do(t, http.MethodPatch, path, env.patient.ID, map[string]string{"status": "confirmed"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient change status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, path, env.admin.ID, map[string]string{"status": "confirmed"})
	if rec.Code != http.StatusOK {
		t.Errorf("admin change status = %d, want 200, body %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodPatch, path, env.admin.ID, map[string]string{"status": "archived"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status value = %d, want 400", rec.Code)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.book(t, env.patient.ID, "2024-06-01", "02:00 PM")
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: %d", rec.Code)
	}

	url := fmt.Sprintf("/availability?doctorId=%s&date=2024-06-01", env.doctor.ID)
	rec = env.do(t, http.MethodGet, url, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp api.AvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.TakenSlots) != 1 || resp.TakenSlots[0] != "02:00 PM" {
		t.Errorf("taken = %v, want [02:00 PM]", resp.TakenSlots)
	}

	rec = env.do(t, http.MethodGet, "/availability?doctorId=nope&date=2024-06-01", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad doctor id status = %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/availability", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing params status = %d, want 400", rec.Code)
	}
}

func TestSyncUserEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/sync-user", "user_new",
		map[string]string{"email": "new@example.com", "name": "New User"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var u api.UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Role != "patient" {
		t.Errorf("first-sight role = %s, want patient", u.Role)
	}

	rec = env.do(t, http.MethodPost, "/sync-user", "", map[string]string{"email": "x@example.com"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous sync status = %d, want 401", rec.Code)
	}
}

func TestDeleteDoctorEndpoint(t *testing.T) {
	env := newTestEnv(t)

	path := "/doctors/" + env.doctor.ID.String()

	rec := env.do(t, http.MethodDelete, path, env.patient.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient delete status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, path, env.admin.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin delete status = %d, want 200, body %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodDelete, path, env.admin.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	env := newTestEnv(t)
	env.repo.Err = fmt.Errorf("pgx: connection refused to 10.0.0.7")

	rec := env.do(t, http.MethodGet, "/doctors", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("10.0.0.7")) {
		t.Errorf("internal detail leaked to caller: %s", rec.Body)
	}
}
