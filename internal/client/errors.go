package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/chupakbra/member-admin/internal/model"
)

// Sentinels matched by *APIError via errors.Is.
var (
	ErrUnauthorized = errors.New("not authorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("unprocessable entity")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// APIError is returned for every non-2xx response.
type APIError struct {
	Status      int
	Message     string
	RequestID   string
	FieldErrors model.FieldErrors
	CSVErrors   model.CSVErrors
}

type errorBody struct {
	Message   string            `json:"message"`
	Errors    model.FieldErrors `json:"errors"`
	CSVErrors model.CSVErrors   `json:"csv_errors"`
}

func newAPIError(resp *http.Response, reqID string) *APIError {
	e := &APIError{Status: resp.StatusCode, RequestID: reqID}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if len(data) > 0 && json.Unmarshal(data, &body) == nil {
		e.Message = body.Message
		e.FieldErrors = body.Errors
		e.CSVErrors = body.CSVErrors
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is maps the status code onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalid:
		return e.Status == http.StatusUnprocessableEntity
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// IsStatus reports whether err wraps an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
