package entity

import (
	"errors"
	"fmt"
)

// MailMessage is a plain-text e-mail handed to a mail transport
type MailMessage struct {
	From    string
	To      string
	Subject string
	Body    string
}

// DeliveryError wraps a transport failure and records whether retrying can help.
type DeliveryError struct {
	Transport string
	Permanent bool
	Err       error
}

func (e *DeliveryError) Error() string {
	kind := "temporary"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s delivery failed (%s): %v", e.Transport, kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a delivery failure that will not succeed on retry.
func IsPermanent(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Permanent
	}
	return false
}

// FailureKind labels a delivery error for metrics.
func FailureKind(err error) string {
	if IsPermanent(err) {
		return "permanent"
	}
	return "temporary"
}
