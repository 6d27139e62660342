package jobs

import "strings"

// ValidatePayload checks that the payload matches t and carries its required ids.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch t {
	case JobSendPasswordReset:
		p, ok := as[SendPasswordResetPayload](payload)
		if !ok {
			return ErrPayloadTypeMismatch
		}
		if blank(p.UserID) || blank(p.Email) || blank(p.ResetLink) {
			return ErrInvalidJobPayload
		}

	case JobSendPaymentReceipt:
		p, ok := as[SendPaymentReceiptPayload](payload)
		if !ok {
			return ErrPayloadTypeMismatch
		}
		if blank(p.PaymentID) {
			return ErrInvalidJobPayload
		}

	case JobIndexDoctor:
		p, ok := as[IndexDoctorPayload](payload)
		if !ok {
			return ErrPayloadTypeMismatch
		}
		if blank(p.Email) {
			return ErrInvalidJobPayload
		}
	}

	return nil
}

// as accepts both the value and the pointer form of a payload.
func as[T any](payload any) (T, bool) {
	switch v := payload.(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}
