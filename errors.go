package main

import (
	"fmt"
	"net/http"
)

// ApiError is the JSON body of every non-2xx response.
type ApiError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

var (
	ErrBadRequest     = func(detail string) *ApiError { return NewApiError(http.StatusBadRequest, "Bad Request", detail) }
	ErrNotFound       = func(detail string) *ApiError { return NewApiError(http.StatusNotFound, "Not Found", detail) }
	ErrTooLarge       = func(detail string) *ApiError { return NewApiError(http.StatusRequestEntityTooLarge, "Request Entity Too Large", detail) }
	ErrInternalServer = func(detail string) *ApiError { return NewApiError(http.StatusInternalServerError, "Internal Server Error", detail) }
	ErrLLMProcessing  = func(detail string) *ApiError { return NewApiError(http.StatusBadGateway, "LLM Processing Failed", detail) }
)

func NewApiError(code int, message, detail string) *ApiError {
	return &ApiError{
		Code:    code,
		Message: message,
		Detail:  detail,
	}
}

func (e *ApiError) WithRequestID(requestID string) *ApiError {
	e.RequestID = requestID
	return e
}

func (e *ApiError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}
