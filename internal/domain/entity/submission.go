package entity

// SubmitRequest is the inbound submission body
type SubmitRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SubmitResponse is returned once the boarding pass has been sent
type SubmitResponse struct {
	OK                 bool   `json:"ok"`
	Route              string `json:"route"`
	DestinationCountry string `json:"destinationCountry"`
	ArrivalLocal       string `json:"arrivalLocal"`
	SendAtUTC          string `json:"sendAtUtc"`
	ReminderQueued     bool   `json:"reminderQueued"`
}

// DispatchResponse summarises one claim cycle
type DispatchResponse struct {
	OK       bool `json:"ok"`
	Claimed  int  `json:"claimed"`
	Sent     int  `json:"sent"`
	Requeued int  `json:"requeued"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
