package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if err := ValidatePayload(t, payload); err != nil {
		return nil, err
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals a stored payload into the typed struct for t.
func DecodePayload(t JobType, raw []byte) (any, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidJobPayload
	}

	var (
		out any
		err error
	)

	switch t {
	case JobSendPasswordReset:
		var p SendPasswordResetPayload
		err = json.Unmarshal(raw, &p)
		out = p

	case JobSendPaymentReceipt:
		var p SendPaymentReceiptPayload
		err = json.Unmarshal(raw, &p)
		out = p

	case JobIndexDoctor:
		var p IndexDoctorPayload
		err = json.Unmarshal(raw, &p)
		out = p
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	if err := ValidatePayload(t, out); err != nil {
		return nil, err
	}

	return out, nil
}
