package domain

// Appointment status values.
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// Appointment holds the details of a scheduled service appointment.
type Appointment struct {
	AppointmentID string `json:"appointment_id"`
	UserEmail     string `json:"user_email"`
	UserPhone     string `json:"user_phone"`
	Date          string `json:"date"` // YYYY-MM-DD
	Time          string `json:"time"` // HH:MM
	ServiceType   string `json:"service_type"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}
