package types

// SuccessEnvelope wraps every JSON body. Meta is set on lists scoped to one
// calendar day.
type SuccessEnvelope struct {
	Data any      `json:"data"`
	Meta *DayMeta `json:"meta,omitempty"`
}

// DayMeta names the day and zone a list was resolved in, so a device in
// another zone renders the same working day.
type DayMeta struct {
	Day      string `json:"day"`
	Timezone string `json:"timezone"`
	Count    int    `json:"count"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
