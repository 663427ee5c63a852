package apimodel

import (
	"encoding/json"
	"github.com/sirupsen/logrus"
	"net/http"
	"strconv"
)

type ErrorMessage struct {
	ErrStatusCode int    `json:"status_code"`
	ErrMessage    string `json:"message"`
}

func (e *ErrorMessage) StatusCode() int {
	return e.ErrStatusCode
}

func (e *ErrorMessage) Error() string {
	if e.ErrMessage != "" {
		return strconv.Itoa(e.ErrStatusCode) + ":" + e.ErrMessage
	}
	return strconv.Itoa(e.ErrStatusCode)
}

// SendError writes the message as JSON, filling in a default text for the status code
func (e ErrorMessage) SendError(w http.ResponseWriter) {
	if e.ErrMessage == "" {
		e.ErrMessage = DefaultStatusMessage(e.ErrStatusCode)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.ErrStatusCode)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		logrus.Warnf("Unable to encode error message: %v", err)
	}
}

func DefaultStatusMessage(status int) string {
	switch status {
	case http.StatusOK:
		return "Ok"
	case http.StatusAccepted:
		return "Accepted"
	case http.StatusNotFound:
		return "Page not found"
	case http.StatusMethodNotAllowed:
		return "Method not allowed"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusServiceUnavailable:
		return "Service unavailable"
	case http.StatusBadRequest:
		return "Bad request"
	default:
		return "Internal error"
	}
}

//errors message
var UnknownModeErrorMessage = ErrorMessage{
	ErrStatusCode: http.StatusBadRequest,
	ErrMessage:    "unknown mode",
}
