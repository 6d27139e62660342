package payment

// Kind is the closed set of gateway event shapes the reconciler understands.
type Kind int

const (
	KindUnhandled Kind = iota
	KindSucceeded
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindSucceeded:
		return "succeeded"
	case KindFailed:
		return "failed"
	default:
		return "unhandled"
	}
}

// Target is the payment status an event of this kind moves to.
func (k Kind) Target() (Status, bool) {
	switch k {
	case KindSucceeded:
		return StatusCompleted, true
	case KindFailed:
		return StatusFailed, true
	default:
		return "", false
	}
}

// Event is a verified gateway notification reduced to what reconciliation needs.
type Event struct {
	ID               string
	Kind             Kind
	GatewayType      string
	Reference        string
	PaymentIntentRef string
	AppointmentID    string
}
