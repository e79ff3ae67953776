package web

// errors.go turns errors into responses. Every failure is logged with its
// technical detail and request id, then shown to the client as the
// core.MapError message in the form the client expects: an HTML fragment
// for HTMX, JSON for API clients, a flash plus redirect for dashboard
// forms, and plain text otherwise.

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/datadash/internal/core"
	"github.com/JonMunkholm/datadash/internal/dataset"
	"github.com/JonMunkholm/datadash/internal/logging"
	"github.com/JonMunkholm/datadash/internal/session"
	"github.com/JonMunkholm/datadash/internal/staging"
	"github.com/JonMunkholm/datadash/internal/web/templates"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dataset.ErrInvalidReference),
		errors.Is(err, dataset.ErrNoSelection),
		errors.Is(err, dataset.ErrValueNotFound),
		errors.Is(err, core.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dataset.ErrParse), errors.Is(err, staging.ErrUnsafePath):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dataset.ErrFileNotFound), errors.Is(err, dataset.ErrColumnNotFound):
		return http.StatusNotFound
	case errors.Is(err, dataset.ErrNoDataset):
		return http.StatusConflict
	case errors.Is(err, dataset.ErrAuthentication),
		errors.Is(err, dataset.ErrRemote),
		errors.Is(err, dataset.ErrNoArchive):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrTooManyDownloads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes it in the client's preferred format.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := logError(r, err, status)

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
	case wantsJSON(r):
		respondErrorJSON(w, msg, status)
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

// failForm reports a dashboard form failure. Browsers get a flash and a
// redirect back to the dashboard; HTMX and API clients get respondError.
func (s *Server) failForm(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	if isHTMX(r) || wantsJSON(r) {
		s.respondError(w, r, err)
		return
	}
	sess.AddFlash(errorFlash(logError(r, err, statusFor(err))))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// succeedForm reports a dashboard form success.
func (s *Server) succeedForm(w http.ResponseWriter, r *http.Request, sess *session.Session, message string, payload any) {
	if wantsJSON(r) {
		writeJSON(w, payload)
		return
	}
	sess.AddFlash(session.Flash{Kind: session.FlashSuccess, Message: message})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func logError(r *http.Request, err error, status int) core.UserMessage {
	msg := core.MapError(err)
	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}
	return msg
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSONBody(w, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSONError writes a bare JSON error for middleware that runs before
// any domain error exists.
func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSONBody(w, ErrorResponse{Error: message, Message: message, Code: code})
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers JSON. API routes always do.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// clientIP strips the port from RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
