package domain

// ActionResult is the outcome of a mutating backend operation. Business-rule
// violations (cancelling a shipped order, double-booking a slot) are expected
// outcomes and travel in this type rather than as errors.
type ActionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

// Failure builds a failed ActionResult with the given message.
func Failure(message string) ActionResult {
	return ActionResult{Success: false, Message: message}
}

// Successf builds a successful ActionResult with the given message.
func Successf(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}
