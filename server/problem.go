package server

import (
	"context"
	"errors"
	"net/http"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/catalog"
	"github.com/aouyang1/go-disease-tracker/chat"
	"github.com/aouyang1/go-disease-tracker/dashboard"
	"github.com/aouyang1/go-disease-tracker/export"
	"github.com/aouyang1/go-disease-tracker/risk"
	"github.com/aouyang1/go-disease-tracker/source"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

var errInvalidRequest = errors.New("invalid request")

// Problem is an RFC 7807 error response
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func newProblem(status int, detail string) *Problem {
	return &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// Render implements render.Renderer
func (p *Problem) Render(w http.ResponseWriter, r *http.Request) error {
	p.Instance = r.URL.Path
	p.RequestID = middleware.GetReqID(r.Context())
	render.Status(r, p.Status)
	return nil
}

func writeProblem(w http.ResponseWriter, r *http.Request, p *Problem) {
	render.Render(w, r, p)
}

// statusOf maps domain errors to http status codes
func statusOf(err error) int {
	var verr *source.ValidationError
	switch {
	case errors.Is(err, source.ErrSeriesNotFound),
		errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, dashboard.ErrNoRecordOnDate):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrUnknownDisease),
		errors.Is(err, catalog.ErrUnknownCountry),
		errors.Is(err, dashboard.ErrSameCountry),
		errors.Is(err, forecaster.ErrInvalidHorizon),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, risk.ErrInvalidInput),
		errors.Is(err, chat.ErrEmptyQuestion),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, forecaster.ErrInsufficientData),
		errors.Is(err, forecaster.ErrModelFit):
		return http.StatusUnprocessableEntity
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		)
		detail = "An unexpected error occurred"
	}
	writeProblem(w, r, newProblem(status, detail))
}
