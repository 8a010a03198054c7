package clinic_test

import (
	"context"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/carewell/clinic-scheduling/internal/clinic"
)

func TestTakenSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2024-06-01")

	f.repo.SeedAppointment(clinic.Appointment{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, ServiceID: f.service.ID,
		Date: day, Slot: "09:00 AM", Status: clinic.StatusPending,
	})
	f.repo.SeedAppointment(clinic.Appointment{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, ServiceID: f.service.ID,
		Date: day, Slot: "10:00 AM", Status: clinic.StatusConfirmed,
	})
	f.repo.SeedAppointment(clinic.Appointment{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, ServiceID: f.service.ID,
		Date: day, Slot: "11:00 AM", Status: clinic.StatusCancelled,
	})
	// A different day must not leak in.
	f.repo.SeedAppointment(clinic.Appointment{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, ServiceID: f.service.ID,
		Date: date(t, "2024-06-02"), Slot: "02:00 PM", Status: clinic.StatusPending,
	})

	taken, err := f.sched.TakenSlots(ctx, f.doctor.ID, day)
	if err != nil {
		t.Fatalf("taken slots: %v", err)
	}
	slices.Sort(taken)

	want := []string{"09:00 AM", "10:00 AM"}
	if !slices.Equal(taken, want) {
		t.Errorf("taken = %v, want %v", taken, want)
	}
}

func TestTakenSlotsUnknownDoctor(t *testing.T) {
	f := newFixture(t)

	taken, err := f.sched.TakenSlots(context.Background(), uuid.New(), date(t, "2024-06-01"))
	if err != nil {
		t.Fatalf("taken slots: %v", err)
	}
	if len(taken) != 0 {
		t.Errorf("taken = %v, want empty", taken)
	}
}

// Cancelling the only active appointment for a key removes it from
// availability and makes it bookable again.
func TestSlotLiberation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2024-06-01")

	appt, err := f.sched.CreateAppointment(ctx, f.patient.ID, f.doctor.ID, f.service.ID, day, "03:00 PM")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	taken, _ := f.sched.TakenSlots(ctx, f.doctor.ID, day)
	if !slices.Contains(taken, "03:00 PM") {
		t.Fatalf("slot missing from availability after booking: %v", taken)
	}

	if _, err := f.sched.SetStatus(ctx, appt.ID, "cancelled", clinic.RoleDoctor); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	taken, _ = f.sched.TakenSlots(ctx, f.doctor.ID, day)
	if slices.Contains(taken, "03:00 PM") {
		t.Fatalf("slot still taken after cancellation: %v", taken)
	}

	if _, err := f.sched.CreateAppointment(ctx, f.patient.ID, f.doctor.ID, f.service.ID, day, "03:00 PM"); err != nil {
		t.Fatalf("rebook freed slot: %v", err)
	}
}
