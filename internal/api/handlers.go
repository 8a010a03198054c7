package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/clinic"
	redisclient "github.com/carewell/clinic-scheduling/internal/redis"
	"github.com/carewell/clinic-scheduling/internal/storage"
)

const maxImageUpload = 10 << 20 // 10 MB

type Handlers struct {
	svc    *clinic.Scheduler
	images storage.ImageStore
	log    zerolog.Logger
}

func NewHandlers(svc *clinic.Scheduler, images storage.ImageStore, log zerolog.Logger) *Handlers {
	return &Handlers{svc: svc, images: images, log: log}
}

// requireIdentity extracts the authenticated requester ID, rejecting the
// request when the identity provider supplied none.
func (h *Handlers) requireIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := CurrentUserID(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated identity")
		return "", false
	}
	return id, true
}

// requesterRole loads the requester's directory record for role-gated
// operations. An identity with no directory record has no role yet and is
// treated as forbidden.
func (h *Handlers) requesterRole(w http.ResponseWriter, r *http.Request, id string) (clinic.Role, bool) {
	u, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, clinic.ErrUserNotFound) {
			writeError(w, http.StatusForbidden, "forbidden", "requester has no directory record")
			return "", false
		}
		h.internalError(w, r, err)
		return "", false
	}
	return u.Role, true
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error().Err(err).
		Str("request_id", GetRequestID(r.Context())).
		Str("path", r.URL.Path).
		Msg("internal error")
	writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
}

// handleServiceError maps the expected scheduling error kinds onto status
// codes. Anything unrecognized is an internal error: full detail goes to the
// log, a generic message to the caller.
func (h *Handlers) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, clinic.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, clinic.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, clinic.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, clinic.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, clinic.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, clinic.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, clinic.ErrInvalidSlot),
		errors.Is(err, clinic.ErrInvalidStatus),
		errors.Is(err, clinic.ErrInvalidTransition),
		errors.Is(err, clinic.ErrDoctorFieldsMissing),
		errors.Is(err, clinic.ErrServiceFieldsInvalid):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		h.internalError(w, r, err)
	}
}

// Identity

func (h *Handlers) SyncUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	var req SyncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "email is required")
		return
	}

	u, err := h.svc.SyncUser(r.Context(), userID, req.Email, req.Name)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	u, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	role, ok := h.requesterRole(w, r, userID)
	if !ok {
		return
	}

	users, err := h.svc.ListUsers(r.Context(), role)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Doctors

func (h *Handlers) ListDoctors(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDoctors(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := make([]DoctorResponse, 0, len(docs))
	for i := range docs {
		resp = append(resp, toDoctorResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireIdentity(w, r); !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse multipart form")
		return
	}

	name := r.FormValue("name")
	specialization := r.FormValue("specialization")

	var linkedUserID *string
	if v := r.FormValue("user_id"); v != "" {
		linkedUserID = &v
	}

	var image *string
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		ref, err := h.images.Save(r.Context(), header.Filename, file)
		if err != nil {
			h.internalError(w, r, err)
			return
		}
		image = &ref
	}

	doc, err := h.svc.AddDoctor(r.Context(), name, specialization, image, linkedUserID)
	if err != nil {
		// the doctor row never landed, so the stored image is orphaned
		if image != nil {
			if delErr := h.images.Delete(r.Context(), *image); delErr != nil {
				h.log.Warn().Err(delErr).Str("image", *image).Msg("failed to clean up orphaned image")
			}
		}
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDoctorResponse(doc))
}

func (h *Handlers) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	role, ok := h.requesterRole(w, r, userID)
	if !ok {
		return
	}

	doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}

	if err := h.svc.RemoveDoctor(r.Context(), doctorID, role); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Services

func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.svc.ListServices(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := make([]ServiceResponse, 0, len(services))
	for i := range services {
		resp = append(resp, toServiceResponse(&services[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CreateService(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	role, ok := h.requesterRole(w, r, userID)
	if !ok {
		return
	}

	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	svc, err := h.svc.CreateService(r.Context(), role, clinic.Service{
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
		Price:       req.Price,
		Category:    req.Category,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

// Availability

func (h *Handlers) Availability(w http.ResponseWriter, r *http.Request) {
	doctorIDStr := r.URL.Query().Get("doctorId")
	dateStr := r.URL.Query().Get("date")
	if doctorIDStr == "" || dateStr == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "doctorId and date are required")
		return
	}

	doctorID, err := uuid.Parse(doctorIDStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorId must be a valid UUID")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	taken, err := h.svc.TakenSlots(r.Context(), doctorID, date)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{TakenSlots: taken})
}

// Appointments

func (h *Handlers) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	appt, err := h.svc.CreateAppointment(r.Context(), patientID, doctorID, serviceID, date, req.Time)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handlers) ListAppointments(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	asDoctor := r.URL.Query().Get("role") == "doctor"

	appts, err := h.svc.ListAppointments(r.Context(), userID, asDoctor)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := make([]AppointmentDetailResponse, 0, len(appts))
	for _, a := range appts {
		resp = append(resp, toAppointmentDetailResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) SetAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	role, ok := h.requesterRole(w, r, userID)
	if !ok {
		return
	}

	appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := h.svc.SetStatus(r.Context(), appointmentID, req.Status, role)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// Slots

func (h *Handlers) ListSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"slots": clinic.TimeSlots})
}
