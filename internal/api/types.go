package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carewell/clinic-scheduling/internal/clinic"
)

type SyncUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *clinic.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

type DoctorResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Image          *string   `json:"image,omitempty"`
	UserID         *string   `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toDoctorResponse(d *clinic.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:             d.ID,
		Name:           d.Name,
		Specialization: d.Specialization,
		Image:          d.Image,
		UserID:         d.UserID,
		CreatedAt:      d.CreatedAt,
	}
}

type CreateServiceRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    int     `json:"duration"`
	Price       float64 `json:"price"`
	Category    *string `json:"category,omitempty"`
}

type ServiceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Duration    int       `json:"duration"`
	Price       float64   `json:"price"`
	Category    *string   `json:"category,omitempty"`
}

func toServiceResponse(s *clinic.Service) ServiceResponse {
	return ServiceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Duration:    s.Duration,
		Price:       s.Price,
		Category:    s.Category,
	}
}

type CreateAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	ServiceID string `json:"service_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // slot label
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID string    `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	ServiceID uuid.UUID `json:"service_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toAppointmentResponse(a *clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		ServiceID: a.ServiceID,
		Date:      a.Date.Format("2006-01-02"),
		Time:      a.Slot,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Doctor  *DoctorResponse  `json:"doctor,omitempty"`
	Service *ServiceResponse `json:"service,omitempty"`
	Patient *UserResponse    `json:"patient,omitempty"`
}

func toAppointmentDetailResponse(d clinic.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
	}
	if d.Doctor != nil {
		dr := toDoctorResponse(d.Doctor)
		resp.Doctor = &dr
	}
	if d.Service != nil {
		sr := toServiceResponse(d.Service)
		resp.Service = &sr
	}
	if d.Patient != nil {
		ur := toUserResponse(d.Patient)
		resp.Patient = &ur
	}
	return resp
}

type AvailabilityResponse struct {
	TakenSlots []string `json:"taken_slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
