package clinic_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/clinic"
	"github.com/carewell/clinic-scheduling/internal/clinic/clinictest"
)

type fixture struct {
	sched  *clinic.Scheduler
	repo   *clinictest.MemRepository
	images *clinictest.StubImageStore

	patient clinic.User
	doctor  clinic.Doctor
	service clinic.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := clinictest.NewMemRepository()
	images := &clinictest.StubImageStore{}
	sched := clinic.NewScheduler(repo, clinictest.NewLocalLocker(), images, zerolog.Nop())

	f := &fixture{
		sched:  sched,
		repo:   repo,
		images: images,
		patient: clinic.User{
			ID:    "user_alice",
			Email: "alice@example.com",
			Name:  "Alice Brown",
			Role:  clinic.RolePatient,
		},
	}
	repo.SeedUser(f.patient)

	f.doctor = repo.SeedDoctor(clinic.Doctor{
		Name:           "Dr. Emily Chen",
		Specialization: "General Practitioner",
	})
	f.service = repo.SeedService(clinic.Service{
		Name:     "General Consultation",
		Duration: 30,
		Price:    50,
	})

	return f
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}
