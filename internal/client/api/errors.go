package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError represents an error response from the TableMate service.
type APIError struct {
	// Status is the HTTP status code of the response.
	Status int

	// Code is the machine-readable error code, when the service provided one.
	Code string

	// Message is the human-readable description. The UI layer surfaces it
	// verbatim, so it is kept as the service sent it.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// errorBody covers the error payload shapes the service has used: a bare
// {error, message} object and the older {code, error_description} form.
type errorBody struct {
	ErrorCode        string `json:"error"`
	Code             string `json:"code"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

// parseAPIError turns a non-2xx response into a typed *APIError, falling back
// to the HTTP status text when the body is not a recognizable error payload.
func parseAPIError(resp *http.Response, body []byte) error {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		code := parsed.Code
		if code == "" {
			code = parsed.ErrorCode
		}
		message := parsed.Message
		if message == "" {
			message = parsed.ErrorDescription
		}
		if code != "" || message != "" {
			return &APIError{Status: resp.StatusCode, Code: code, Message: message}
		}
	}

	return &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
