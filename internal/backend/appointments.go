package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atelier-works/concierge/internal/agent"
	"github.com/atelier-works/concierge/internal/domain"
)

// Appointments is the mock appointment scheduling backend.
type Appointments struct {
	mu           sync.Mutex
	appointments map[string]*domain.Appointment
	ids          []string // creation order, drives index and listing order
	emailIndex   map[string][]string
	phoneIndex   map[string][]string
	now          func() time.Time
}

// NewAppointments builds an appointments backend seeded with mock data.
func NewAppointments() *Appointments {
	a := &Appointments{
		appointments: make(map[string]*domain.Appointment),
		now:          time.Now,
	}
	for _, apt := range seedAppointments() {
		a.appointments[apt.AppointmentID] = apt
		a.ids = append(a.ids, apt.AppointmentID)
	}
	a.rebuildIndexes()
	return a
}

func seedAppointments() []*domain.Appointment {
	return []*domain.Appointment{
		{
			AppointmentID: "APT-001",
			UserEmail:     "john.doe@example.com",
			UserPhone:     "+1-555-0101",
			Date:          "2025-12-05",
			Time:          "10:00",
			ServiceType:   "Consultation",
			Status:        domain.AppointmentStatusScheduled,
			CreatedAt:     "2025-11-25T09:00:00",
		},
		{
			AppointmentID: "APT-002",
			UserEmail:     "jane.smith@example.com",
			UserPhone:     "+1-555-0102",
			Date:          "2025-12-06",
			Time:          "14:30",
			ServiceType:   "Technical Support",
			Status:        domain.AppointmentStatusConfirmed,
			CreatedAt:     "2025-11-26T11:30:00",
		},
		{
			AppointmentID: "APT-003",
			UserEmail:     "john.doe@example.com",
			UserPhone:     "+1-555-0101",
			Date:          "2025-12-10",
			Time:          "09:00",
			ServiceType:   "Follow-up",
			Status:        domain.AppointmentStatusScheduled,
			CreatedAt:     "2025-11-28T15:20:00",
		},
		{
			AppointmentID: "APT-004",
			UserEmail:     "bob.wilson@example.com",
			UserPhone:     "+1-555-0103",
			Date:          "2025-12-03",
			Time:          "16:00",
			ServiceType:   "Consultation",
			Status:        domain.AppointmentStatusCompleted,
			CreatedAt:     "2025-11-20T10:00:00",
		},
		{
			AppointmentID: "APT-005",
			UserEmail:     "alice.brown@example.com",
			UserPhone:     "+1-555-0104",
			Date:          "2025-12-08",
			Time:          "11:00",
			ServiceType:   "Product Demo",
			Status:        domain.AppointmentStatusScheduled,
			CreatedAt:     "2025-11-29T13:45:00",
		},
	}
}

// rebuildIndexes must be called with the mutex held.
func (a *Appointments) rebuildIndexes() {
	a.emailIndex = make(map[string][]string)
	a.phoneIndex = make(map[string][]string)
	for _, id := range a.ids {
		apt := a.appointments[id]
		a.emailIndex[apt.UserEmail] = append(a.emailIndex[apt.UserEmail], id)
		a.phoneIndex[apt.UserPhone] = append(a.phoneIndex[apt.UserPhone], id)
	}
}

// GetAppointment returns the appointment with the given id, or nil.
func (a *Appointments) GetAppointment(appointmentID string) *domain.Appointment {
	a.mu.Lock()
	defer a.mu.Unlock()

	apt, ok := a.appointments[appointmentID]
	if !ok {
		return nil
	}
	cp := *apt
	return &cp
}

// GetAppointmentsByEmail returns all appointments for a user's email, in
// creation order.
func (a *Appointments) GetAppointmentsByEmail(email string) []domain.Appointment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.collect(a.emailIndex[email])
}

// GetAppointmentsByPhone returns all appointments for a user's phone number,
// in creation order.
func (a *Appointments) GetAppointmentsByPhone(phone string) []domain.Appointment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.collect(a.phoneIndex[phone])
}

// collect must be called with the mutex held.
func (a *Appointments) collect(ids []string) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(ids))
	for _, id := range ids {
		if apt, ok := a.appointments[id]; ok {
			out = append(out, *apt)
		}
	}
	return out
}

// ScheduleAppointment books a new appointment, rejecting double bookings in
// an active slot for the same email.
func (a *Appointments) ScheduleAppointment(email, phone, date, timeOfDay, serviceType string) domain.ActionResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range a.emailIndex[email] {
		apt := a.appointments[id]
		if apt.Date == date && apt.Time == timeOfDay && isActiveStatus(apt.Status) {
			return domain.Failure(fmt.Sprintf("You already have an appointment at %s on %s", timeOfDay, date))
		}
	}

	newID := a.nextID()
	apt := &domain.Appointment{
		AppointmentID: newID,
		UserEmail:     email,
		UserPhone:     phone,
		Date:          date,
		Time:          timeOfDay,
		ServiceType:   serviceType,
		Status:        domain.AppointmentStatusScheduled,
		CreatedAt:     a.now().Format("2006-01-02T15:04:05"),
	}
	a.appointments[newID] = apt
	a.ids = append(a.ids, newID)
	a.rebuildIndexes()

	return domain.ActionResult{
		Success:       true,
		Message:       fmt.Sprintf("Appointment scheduled for %s at %s", date, timeOfDay),
		AppointmentID: newID,
	}
}

// nextID must be called with the mutex held. Starts from count+1 and probes
// forward past ids freed by nothing (cancellations keep their id), so a
// collision only happens if seed ids are non-contiguous.
func (a *Appointments) nextID() string {
	n := len(a.appointments) + 1
	for {
		id := fmt.Sprintf("APT-%03d", n)
		if _, exists := a.appointments[id]; !exists {
			return id
		}
		n++
	}
}

// RescheduleAppointment moves an active appointment to a new date and time.
func (a *Appointments) RescheduleAppointment(appointmentID, newDate, newTime string) domain.ActionResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	apt, ok := a.appointments[appointmentID]
	if !ok {
		return domain.Failure(fmt.Sprintf("Appointment %s not found", appointmentID))
	}

	if apt.Status == domain.AppointmentStatusCancelled || apt.Status == domain.AppointmentStatusCompleted {
		return domain.Failure(fmt.Sprintf(
			"Cannot reschedule %s appointment. Please schedule a new one.", apt.Status))
	}

	for _, id := range a.emailIndex[apt.UserEmail] {
		other := a.appointments[id]
		if other.AppointmentID != appointmentID &&
			other.Date == newDate && other.Time == newTime && isActiveStatus(other.Status) {
			return domain.Failure(fmt.Sprintf("You already have an appointment at %s on %s", newTime, newDate))
		}
	}

	oldDate, oldTime := apt.Date, apt.Time
	apt.Date = newDate
	apt.Time = newTime

	return domain.Successf(fmt.Sprintf(
		"Appointment rescheduled from %s %s to %s %s", oldDate, oldTime, newDate, newTime))
}

// CancelAppointment cancels an active appointment.
func (a *Appointments) CancelAppointment(appointmentID string) domain.ActionResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	apt, ok := a.appointments[appointmentID]
	if !ok {
		return domain.Failure(fmt.Sprintf("Appointment %s not found", appointmentID))
	}

	switch apt.Status {
	case domain.AppointmentStatusCancelled:
		return domain.Failure("Appointment is already cancelled")
	case domain.AppointmentStatusCompleted:
		return domain.Failure("Cannot cancel a completed appointment")
	}

	apt.Status = domain.AppointmentStatusCancelled
	return domain.Successf(fmt.Sprintf(
		"Appointment %s on %s at %s has been cancelled", appointmentID, apt.Date, apt.Time))
}

// ConfirmAppointment marks a scheduled appointment as confirmed.
func (a *Appointments) ConfirmAppointment(appointmentID string) domain.ActionResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	apt, ok := a.appointments[appointmentID]
	if !ok {
		return domain.Failure(fmt.Sprintf("Appointment %s not found", appointmentID))
	}

	switch apt.Status {
	case domain.AppointmentStatusConfirmed:
		return domain.Failure("Appointment is already confirmed")
	case domain.AppointmentStatusCancelled, domain.AppointmentStatusCompleted:
		return domain.Failure(fmt.Sprintf("Cannot confirm a %s appointment", apt.Status))
	}

	apt.Status = domain.AppointmentStatusConfirmed
	return domain.Successf(fmt.Sprintf(
		"Appointment %s on %s at %s has been confirmed", appointmentID, apt.Date, apt.Time))
}

func isActiveStatus(status string) bool {
	return status == domain.AppointmentStatusScheduled || status == domain.AppointmentStatusConfirmed
}

const getAppointmentDoc = `Retrieve appointment details by appointment_id.

Args:
    appointment_id: The unique appointment identifier

Returns:
    Appointment details if found, null otherwise`

const getAppointmentsByEmailDoc = `Retrieve all appointments for a user by email.

Args:
    email: User's email address

Returns:
    List of appointments`

const getAppointmentsByPhoneDoc = `Retrieve all appointments for a user by phone.

Args:
    phone: User's phone number

Returns:
    List of appointments`

const scheduleAppointmentDoc = `Schedule a new appointment.

Business Logic:
- No duplicate appointments at the same date/time for the same user

Args:
    email: User's email address
    phone: User's phone number
    date: Appointment date in YYYY-MM-DD format
    time: Appointment time in HH:MM format
    service_type: Type of service

Returns:
    Result with success status, message, and appointment_id if successful`

const rescheduleAppointmentDoc = `Reschedule an existing appointment.

Business Logic:
- Appointment must exist
- Appointment must not be cancelled or completed
- New date/time must not conflict with other appointments

Args:
    appointment_id: The unique appointment identifier
    new_date: New date in YYYY-MM-DD format
    new_time: New time in HH:MM format

Returns:
    Result with success status and message`

const cancelAppointmentDoc = `Cancel an appointment.

Business Logic:
- Appointment must exist
- Appointment must not already be cancelled or completed

Args:
    appointment_id: The unique appointment identifier

Returns:
    Result with success status and message`

const confirmAppointmentDoc = `Confirm an appointment.

Args:
    appointment_id: The unique appointment identifier

Returns:
    Result with success status and message`

// Tools exposes the appointment operations as agent tools.
func (a *Appointments) Tools() []agent.Tool {
	return []agent.Tool{
		{
			Name:   "get_appointment",
			Doc:    getAppointmentDoc,
			Params: []agent.Param{{Name: "appointment_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				id, err := stringArg(args, "appointment_id")
				if err != nil {
					return nil, err
				}
				return a.GetAppointment(id), nil
			},
		},
		{
			Name:   "get_appointments_by_email",
			Doc:    getAppointmentsByEmailDoc,
			Params: []agent.Param{{Name: "email", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				email, err := stringArg(args, "email")
				if err != nil {
					return nil, err
				}
				return a.GetAppointmentsByEmail(email), nil
			},
		},
		{
			Name:   "get_appointments_by_phone",
			Doc:    getAppointmentsByPhoneDoc,
			Params: []agent.Param{{Name: "phone", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				phone, err := stringArg(args, "phone")
				if err != nil {
					return nil, err
				}
				return a.GetAppointmentsByPhone(phone), nil
			},
		},
		{
			Name: "schedule_appointment",
			Doc:  scheduleAppointmentDoc,
			Params: []agent.Param{
				{Name: "email", Type: agent.TypeString},
				{Name: "phone", Type: agent.TypeString},
				{Name: "date", Type: agent.TypeString},
				{Name: "time", Type: agent.TypeString},
				{Name: "service_type", Type: agent.TypeString},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				email, err := stringArg(args, "email")
				if err != nil {
					return nil, err
				}
				phone, err := stringArg(args, "phone")
				if err != nil {
					return nil, err
				}
				date, err := stringArg(args, "date")
				if err != nil {
					return nil, err
				}
				timeOfDay, err := stringArg(args, "time")
				if err != nil {
					return nil, err
				}
				serviceType, err := stringArg(args, "service_type")
				if err != nil {
					return nil, err
				}
				return a.ScheduleAppointment(email, phone, date, timeOfDay, serviceType), nil
			},
		},
		{
			Name: "reschedule_appointment",
			Doc:  rescheduleAppointmentDoc,
			Params: []agent.Param{
				{Name: "appointment_id", Type: agent.TypeString},
				{Name: "new_date", Type: agent.TypeString},
				{Name: "new_time", Type: agent.TypeString},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				id, err := stringArg(args, "appointment_id")
				if err != nil {
					return nil, err
				}
				newDate, err := stringArg(args, "new_date")
				if err != nil {
					return nil, err
				}
				newTime, err := stringArg(args, "new_time")
				if err != nil {
					return nil, err
				}
				return a.RescheduleAppointment(id, newDate, newTime), nil
			},
		},
		{
			Name:   "cancel_appointment",
			Doc:    cancelAppointmentDoc,
			Params: []agent.Param{{Name: "appointment_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				id, err := stringArg(args, "appointment_id")
				if err != nil {
					return nil, err
				}
				return a.CancelAppointment(id), nil
			},
		},
		{
			Name:   "confirm_appointment",
			Doc:    confirmAppointmentDoc,
			Params: []agent.Param{{Name: "appointment_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				id, err := stringArg(args, "appointment_id")
				if err != nil {
					return nil, err
				}
				return a.ConfirmAppointment(id), nil
			},
		},
	}
}
