package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/compiler"
	"github.com/provolone8305/sublink-worker/internal/document"
	"github.com/provolone8305/sublink-worker/internal/fetch"
	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/outbound"
	"github.com/provolone8305/sublink-worker/internal/render"
	"github.com/provolone8305/sublink-worker/internal/store"
)

// APIError is used by the HTTP layer for request validation and a few
// HTTP-specific errors.
type APIError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

func apiError(status int, app model.AppError, cause error) error {
	return &APIError{Status: status, AppError: app, Cause: cause}
}

func requestError(code, message, hint string) error {
	return apiError(http.StatusBadRequest, model.AppError{
		Code:    code,
		Message: message,
		Stage:   "validate_request",
		Hint:    hint,
	}, nil)
}

// statusOf maps an error to its HTTP status and payload. ok is false for
// errors no stage claims, which are internal bugs.
func statusOf(err error) (int, model.AppError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status, ae.AppError, true
	}
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		return fe.Status, fe.AppError, true
	}
	var se *store.StoreError
	if errors.As(err, &se) {
		return http.StatusInternalServerError, se.AppError, true
	}

	// Everything below is a problem with user content => 422.
	var pe *outbound.ParseError
	if errors.As(err, &pe) {
		return http.StatusUnprocessableEntity, pe.AppError, true
	}
	var ve *category.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, ve.AppError, true
	}
	var be *document.BaseError
	if errors.As(err, &be) {
		return http.StatusUnprocessableEntity, be.AppError, true
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return http.StatusUnprocessableEntity, ce.AppError, true
	}
	var re *render.RenderError
	if errors.As(err, &re) {
		return http.StatusUnprocessableEntity, re.AppError, true
	}
	return 0, model.AppError{}, false
}

func writeErrorFromErr(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status, app, ok := statusOf(err)
	if !ok {
		status = http.StatusInternalServerError
		app = model.AppError{
			Code:    "INTERNAL_ERROR",
			Message: "服务端内部错误",
			Stage:   "internal",
			Hint:    err.Error(),
		}
	}
	metricsIncAppError(app.Stage, app.Code)
	WriteError(w, status, app)
}
