package notifications

import (
	"fmt"
	"html"
	"time"
)

func PasswordResetMessage(to, resetLink string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Text:    "Use this link to reset your password: " + resetLink,
		HTML: fmt.Sprintf(`<div><p>Dear user,</p><p>Your password reset link: <a href="%s">RESET PASSWORD</a></p><p>Thank you</p></div>`,
			html.EscapeString(resetLink)),
	}
}

func PaymentReceiptMessage(to, patientName, doctorName string, amount int64, slot time.Time) Message {
	when := slot.UTC().Format("Mon, 02 Jan 2006 15:04 MST")

	return Message{
		To:      to,
		Subject: "Payment received",
		Text: fmt.Sprintf("Hi %s, we received your payment of $%d for the appointment with Dr. %s on %s.",
			patientName, amount, doctorName, when),
		HTML: fmt.Sprintf(`<div><p>Hi %s,</p><p>We received your payment of <b>$%d</b> for the appointment with Dr. %s on %s.</p></div>`,
			html.EscapeString(patientName), amount, html.EscapeString(doctorName), when),
	}
}
