// Package response defines the JSON envelope shared by all API handlers.
// Every error carries a machine-readable kind in the "error" field alongside
// the human-readable message.
package response

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Machine-readable error kinds.
const (
	KindBadRequest          = "bad_request"
	KindEmptyRequestBody    = "empty_request_body"
	KindInvalidURL          = "invalid_url"
	KindInvalidKeyFormat    = "invalid_key_format"
	KindDuplicateKey        = "duplicate_key"
	KindNotFound            = "not_found"
	KindAllocationExhausted = "allocation_exhausted"
	KindServerError         = "server_error"
)

type Response struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message"`
	Details    []any  `json:"details,omitempty"`
	Data       any    `json:"data,omitempty"`
}

var EmptyRequestBodyResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      KindEmptyRequestBody,
	Message:    "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      KindBadRequest,
	Message:    "Invalid request body.",
}

var InvalidKeyFormatResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      KindInvalidKeyFormat,
	Message:    "The custom key must be 1 or more characters over the alphabet A-Z, 2-7 and no longer than the configured maximum.",
}

var DuplicateKeyResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusConflict,
	Error:      KindDuplicateKey,
	Message:    "A link with that key already exists.",
}

var ResourceNotFoundResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusNotFound,
	Error:      KindNotFound,
	Message:    "The requested resource was not found.",
}

var AllocationExhaustedResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusInternalServerError,
	Error:      KindAllocationExhausted,
	Message:    "Could not allocate a free identifier. The identifier space may be exhausted.",
}

var ServerErrorResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusInternalServerError,
	Error:      KindServerError,
	Message:    "An internal server error occurred. Please try again later.",
}

func SuccessResponse(statusCode int, msg string, data ...any) Response {
	resp := Response{
		Status:     StatusSuccess,
		StatusCode: statusCode,
		Message:    msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error) []validationError {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	validationErrs := make([]validationError, 0, len(errs))

	for _, err := range errs {
		var issue string

		switch err.Tag() {
		case "required":
			issue = "This field is required."
		default:
			issue = fmt.Sprintf("Invalid %s.", err.Tag())
		}

		validationErrs = append(validationErrs, validationError{
			Field: err.Field(),
			Value: err.Value(),
			Issue: issue,
		})
	}

	return validationErrs
}

// InvalidURLResponse reports a missing or malformed destination URL, with
// per-field details when the error came from the validator.
func InvalidURLResponse(err error) Response {
	resp := Response{
		Status:     StatusError,
		StatusCode: http.StatusBadRequest,
		Error:      KindInvalidURL,
		Message:    "The destination URL is missing or not a valid absolute URL.",
	}

	for _, e := range getValidationErrors(err) {
		resp.Details = append(resp.Details, e)
	}

	return resp
}
