package types

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// CommandResponse is the body of every /command reply.
type CommandResponse struct {
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Duration *float64 `json:"duration,omitempty"`
}

func NewOKResponse(message string, duration *float64) CommandResponse {
	return CommandResponse{
		Status:   StatusOK,
		Message:  message,
		Duration: duration,
	}
}

func NewErrorResponse(message string) CommandResponse {
	return CommandResponse{
		Status:  StatusError,
		Message: message,
	}
}
