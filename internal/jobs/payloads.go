package jobs

// SendPasswordResetPayload carries the already-built reset link.
type SendPasswordResetPayload struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	ResetLink string `json:"resetLink"`
	RequestID string `json:"requestId,omitempty"`
}

// SendPaymentReceiptPayload is ID-based; the worker loads amounts from the DB.
type SendPaymentReceiptPayload struct {
	PaymentID     string `json:"paymentId"`
	AppointmentID string `json:"appointmentId"`
}

// IndexDoctorPayload retries a search index write that failed inline.
type IndexDoctorPayload struct {
	Email string `json:"email"`
}
