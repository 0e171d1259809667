package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"churn-insights/internal/pipeline"
	"churn-insights/internal/store"
)

// APIResponse is the envelope of every JSON answer. Status is 0 on success
// and the HTTP status code otherwise.
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"ok"`
	Data   interface{} `json:"data,omitempty"`
}

func SuccessResponse(msg string, data interface{}) APIResponse {
	return APIResponse{Status: 0, Msg: msg, Data: data}
}

func ErrorResponse(code int, msg string) APIResponse {
	return APIResponse{Status: code, Msg: msg}
}

// StatusClientClosedRequest is the non-standard code logged when the client
// went away before the answer was ready.
const StatusClientClosedRequest = 499

// StatusFor maps a pipeline error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrDataNotFound), errors.Is(err, pipeline.ErrMissingColumn):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrSchemaMismatch), errors.Is(err, pipeline.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeOK(w http.ResponseWriter, r *http.Request, msg string, data interface{}) {
	render.JSON(w, r, SuccessResponse(msg, data))
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, ErrorResponse(code, msg))
}
