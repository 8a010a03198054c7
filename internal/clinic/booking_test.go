package clinic_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/carewell/clinic-scheduling/internal/clinic"
)

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2024-06-01")

	appt, err := f.sched.CreateAppointment(ctx, f.patient.ID, f.doctor.ID, f.service.ID, day, "10:00 AM")
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if appt.Status != clinic.StatusPending {
		t.Errorf("new appointment status = %s, want pending", appt.Status)
	}
	if !appt.Date.Equal(day) {
		t.Errorf("appointment date = %s, want %s", appt.Date, day)
	}

	// Identical second booking must conflict.
	_, err = f.sched.CreateAppointment(ctx, f.patient.ID, f.doctor.ID, f.service.ID, day, "10:00 AM")
	if !errors.Is(err, clinic.ErrSlotTaken) {
		t.Fatalf("second booking err = %v, want ErrSlotTaken", err)
	}

	// Cancelling the first appointment frees the slot.
	if _, err := f.sched.SetStatus(ctx, appt.ID, "cancelled", clinic.RoleAdmin); err != nil {
		t.Fatalf("cancel appointment: %v", err)
	}
	if _, err := f.sched.CreateAppointment(ctx, f.patient.ID, f.doctor.ID, f.service.ID, day, "10:00 AM"); err != nil {
		t.Fatalf("rebooking freed slot: %v", err)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2024-06-01")

	tests := []struct {
		name      string
		patientID string
		doctorID  uuid.UUID
		serviceID uuid.UUID
		slot      string
		wantErr   error
	}{
		{"unknown slot label", f.patient.ID, f.doctor.ID, f.service.ID, "13:37", clinic.ErrInvalidSlot},
		{"empty slot", f.patient.ID, f.doctor.ID, f.service.ID, "", clinic.ErrInvalidSlot},
		{"unknown patient", "user_ghost", f.doctor.ID, f.service.ID, "09:00 AM", clinic.ErrUserNotFound},
		{"unknown doctor", f.patient.ID, uuid.New(), f.service.ID, "09:00 AM", clinic.ErrDoctorNotFound},
		{"unknown service", f.patient.ID, f.doctor.ID, uuid.New(), "09:00 AM", clinic.ErrServiceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sched.CreateAppointment(ctx, tt.patientID, tt.doctorID, tt.serviceID, day, tt.slot)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestCreateAppointmentConcurrent drives many goroutines at the same
// (doctor, date, slot) key and expects exactly one to win.
func TestCreateAppointmentConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2024-06-01")
	const workers = 32

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sched.CreateAppointment(ctx, f.patient.ID, f.doctor.ID, f.service.ID, day, "11:30 AM")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, clinic.ErrSlotTaken), errors.Is(err, clinic.ErrSlotBeingBooked):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if conflicts != workers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, workers-1)
	}

	active := f.repo.CountAppointments(func(a clinic.Appointment) bool {
		return a.DoctorID == f.doctor.ID && a.Date.Equal(day) && a.Slot == "11:30 AM" && a.Status != clinic.StatusCancelled
	})
	if active != 1 {
		t.Errorf("active appointments for slot = %d, want 1", active)
	}
}

func TestListAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	docUser := clinic.User{ID: "user_doc", Email: "doc@example.com", Name: "Doc", Role: clinic.RoleDoctor}
	f.repo.SeedUser(docUser)
	linked := f.repo.SeedDoctor(clinic.Doctor{Name: "Dr. Linked", Specialization: "Dentist", UserID: &docUser.ID})

	f.repo.SeedAppointment(clinic.Appointment{
		PatientID: f.patient.ID, DoctorID: linked.ID, ServiceID: f.service.ID,
		Date: date(t, "2024-06-02"), Slot: "09:00 AM",
	})
	f.repo.SeedAppointment(clinic.Appointment{
		PatientID: "user_other", DoctorID: linked.ID, ServiceID: f.service.ID,
		Date: date(t, "2024-06-02"), Slot: "09:30 AM",
	})

	patientView, err := f.sched.ListAppointments(ctx, f.patient.ID, false)
	if err != nil {
		t.Fatalf("list as patient: %v", err)
	}
	if len(patientView) != 1 {
		t.Errorf("patient view has %d appointments, want 1", len(patientView))
	}

	doctorView, err := f.sched.ListAppointments(ctx, docUser.ID, true)
	if err != nil {
		t.Fatalf("list as doctor: %v", err)
	}
	if len(doctorView) != 2 {
		t.Errorf("doctor view has %d appointments, want 2", len(doctorView))
	}

	// A requester without a linked doctor record sees an empty doctor view.
	none, err := f.sched.ListAppointments(ctx, f.patient.ID, true)
	if err != nil {
		t.Fatalf("list as unlinked doctor: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unlinked doctor view has %d appointments, want 0", len(none))
	}
}
