package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pathshala/internal/account"
	"github.com/p-n-ai/pathshala/internal/assessment"
	"github.com/p-n-ai/pathshala/internal/certificate"
	"github.com/p-n-ai/pathshala/internal/i18n"
	"github.com/p-n-ai/pathshala/internal/learning"
	"github.com/p-n-ai/pathshala/internal/progress"
)

var (
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
	errNotFound     = errors.New("not found")
	errCatalogLoad  = errors.New("catalog reload failed")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Fields  []account.FieldError `json:"fields,omitempty"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Ordered: the first match wins.
var errorMappings = []errorMapping{
	{errBadRequest, http.StatusBadRequest, i18n.InvalidInput},
	{assessment.ErrUnknownQuestion, http.StatusBadRequest, i18n.InvalidInput},
	{learning.ErrIncompleteAnswers, http.StatusBadRequest, i18n.IncompleteAnswers},
	{errUnauthorized, http.StatusUnauthorized, i18n.Unauthorized},
	{account.ErrSessionNotFound, http.StatusUnauthorized, i18n.Unauthorized},
	{account.ErrInvalidCredentials, http.StatusUnauthorized, i18n.InvalidCredentials},
	{errForbidden, http.StatusForbidden, i18n.Forbidden},
	{learning.ErrPremiumRequired, http.StatusForbidden, i18n.PremiumRequired},
	{progress.ErrLocked, http.StatusForbidden, i18n.Locked},
	{errNotFound, http.StatusNotFound, i18n.NotFound},
	{learning.ErrCourseNotFound, http.StatusNotFound, i18n.CourseNotFound},
	{progress.ErrNotEnrolled, http.StatusNotFound, i18n.NotEnrolled},
	{progress.ErrUnknownItem, http.StatusNotFound, i18n.UnknownItem},
	{account.ErrNotFound, http.StatusNotFound, i18n.UserNotFound},
	{certificate.ErrNotFound, http.StatusNotFound, i18n.CertificateInvalid},
	{progress.ErrIncomplete, http.StatusConflict, i18n.Incomplete},
	{progress.ErrAttemptsExhausted, http.StatusConflict, i18n.AttemptsExhausted},
	{progress.ErrAlreadyPassed, http.StatusConflict, i18n.AlreadyPassed},
	{account.ErrEmailTaken, http.StatusConflict, i18n.EmailTaken},
	{account.ErrTooManyAttempts, http.StatusTooManyRequests, i18n.TooManyAttempts},
	{errCatalogLoad, http.StatusUnprocessableEntity, i18n.CatalogReload},
}

// classify maps an error to an HTTP status and message key.
func classify(err error) (int, string) {
	var verr *account.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, i18n.InvalidInput
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, i18n.Internal
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode JSON response", "error", err)
	}
}

// writeError renders err in the caller's language.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	resp := ErrorResponse{Error: code, Message: i18n.Message(language(r), code)}
	var verr *account.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// language picks the response language: the user's preference, then Accept-Language.
func language(r *http.Request) string {
	if u, ok := userFrom(r.Context()); ok && u.Language != "" {
		return u.Language
	}
	return r.Header.Get("Accept-Language")
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
