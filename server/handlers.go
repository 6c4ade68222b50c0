package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-disease-tracker/catalog"
	"github.com/aouyang1/go-disease-tracker/chat"
	"github.com/aouyang1/go-disease-tracker/dashboard"
	"github.com/aouyang1/go-disease-tracker/export"
	"github.com/aouyang1/go-disease-tracker/news"
	"github.com/aouyang1/go-disease-tracker/risk"
	"github.com/aouyang1/go-disease-tracker/source"
	"github.com/aouyang1/go-disease-tracker/summary"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/goccy/go-json"
)

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

type seriesResponse struct {
	dashboard.Selection
	Class   catalog.Class       `json:"class"`
	Summary summary.Summary     `json:"summary"`
	Records timedataset.Records `json:"records"`
}

type forecastResponse struct {
	dashboard.Selection
	Forecast            *dashboard.Forecast `json:"forecast,omitempty"`
	ForecastUnavailable string              `json:"forecast_unavailable,omitempty"`
}

type newsResponse struct {
	dashboard.Selection
	Links []news.Link `json:"links"`
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Disease   string `json:"disease,omitempty"`
	Country   string `json:"country,omitempty"`
	Question  string `json:"question"`
}

type chatResponse struct {
	SessionID string       `json:"session_id"`
	Disease   string       `json:"disease"`
	Country   string       `json:"country"`
	Reply     chat.Message `json:"reply"`
}

type riskResponse struct {
	risk.Assessment
	Percent float64 `json:"percent"`
}

func selection(r *http.Request) dashboard.Selection {
	return dashboard.Selection{
		Disease: chi.URLParam(r, "disease"),
		Country: chi.URLParam(r, "country"),
	}
}

// horizon reads the horizon query parameter bounded by the configured maximum
func (s *Server) horizon(r *http.Request) (int, error) {
	v := r.URL.Query().Get("horizon")
	if v == "" {
		return s.cfg.DefaultHorizon, nil
	}
	h, err := strconv.Atoi(v)
	if err != nil || h <= 0 || h > s.cfg.MaxHorizon {
		return 0, fmt.Errorf("horizon must be between 1 and %d days, %w", s.cfg.MaxHorizon, errInvalidRequest)
	}
	return h, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("unable to decode request body, %w, %w", errInvalidRequest, err)
	}
	return nil
}

// attach writes the body as a file download
func attach(w http.ResponseWriter, name string, format export.Format, body []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{Status: "ok", Uptime: time.Since(s.started).Round(time.Second).String()})
}

func (s *Server) handleDiseases(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.svc.Catalog().Diseases)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.svc.Catalog().Countries)
}

// handleSeries returns the summary and records of a series, or the records as a file when a
// format is requested
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	sel, d, _, err := s.svc.Resolve(selection(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	sum, records, err := s.svc.Summary(r.Context(), sel)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if f := r.URL.Query().Get("format"); f != "" {
		format, err := export.ParseFormat(f)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := export.WriteRecords(&buf, format, records); err != nil {
			s.handleError(w, r, err)
			return
		}
		attach(w, export.FileName(sel.Key(), "history", records.EndTime(), format), format, buf.Bytes())
		return
	}

	render.JSON(w, r, seriesResponse{Selection: sel, Class: d.Class, Summary: sum, Records: records})
}

func (s *Server) handleCasesOn(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("date")
	if v == "" {
		s.handleError(w, r, fmt.Errorf("date is required, %w", errInvalidRequest))
		return
	}
	date, err := source.ParseDate(v)
	if err != nil {
		s.handleError(w, r, fmt.Errorf("%w, %w", errInvalidRequest, err))
		return
	}
	dc, err := s.svc.CasesOn(r.Context(), selection(r), date)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	render.JSON(w, r, dc)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	horizon, err := s.horizon(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	v, err := s.svc.View(r.Context(), selection(r), horizon)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	render.JSON(w, r, v)
}

// handleForecast answers json requests with the forecast or the reason it is unavailable.
// Export formats have no place for a reason and fail with a problem instead.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	horizon, err := s.horizon(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	var format export.Format
	if f := r.URL.Query().Get("format"); f != "" {
		if format, err = export.ParseFormat(f); err != nil {
			s.handleError(w, r, err)
			return
		}
	}
	sel, _, _, err := s.svc.Resolve(selection(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	fc, err := s.svc.Forecast(r.Context(), sel, horizon)
	if format == "" {
		switch {
		case err == nil:
			render.JSON(w, r, forecastResponse{Selection: sel, Forecast: fc})
		case statusOf(err) == http.StatusUnprocessableEntity:
			render.JSON(w, r, forecastResponse{Selection: sel, ForecastUnavailable: err.Error()})
		default:
			s.handleError(w, r, err)
		}
		return
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	err = export.WriteForecast(&buf, format, export.Forecast{
		Disease:  sel.Disease,
		Country:  sel.Country,
		Results:  fc.Results,
		Holidays: fc.Holidays,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	attach(w, export.FileName(sel.Key(), "forecast", fc.GeneratedAt, format), format, buf.Bytes())
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	sel := selection(r)
	cmp, err := s.svc.Compare(r.Context(), sel.Disease, sel.Country, chi.URLParam(r, "other"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	render.JSON(w, r, cmp)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	horizon, err := s.horizon(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.svc.RenderCharts(r.Context(), &buf, selection(r), r.URL.Query().Get("compare"), horizon); err != nil {
		s.handleError(w, r, err)
		return
	}
	render.HTML(w, r, buf.String())
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	sel, _, _, err := s.svc.Resolve(selection(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	render.JSON(w, r, newsResponse{Selection: sel, Links: news.Links(sel.Disease, sel.Country)})
}

// handleChat answers a question within a session. A request without a session id starts a new
// session for its disease and country, a request naming both on an existing session switches
// the selection.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decode(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.handleError(w, r, chat.ErrEmptyQuestion)
		return
	}

	var sel dashboard.Selection
	switch {
	case req.Disease != "" && req.Country != "":
		resolved, _, _, err := s.svc.Resolve(dashboard.Selection{Disease: req.Disease, Country: req.Country})
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		sel = resolved
	case req.SessionID == "":
		s.handleError(w, r, fmt.Errorf("disease and country are required to start a session, %w", errInvalidRequest))
		return
	}

	id := req.SessionID
	if id == "" {
		id = s.sessions.Create(sel.Disease, sel.Country).ID
	} else if sel.Disease == "" {
		session, err := s.sessions.Get(id)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		sel = dashboard.Selection{Disease: session.Disease, Country: session.Country}
	}

	horizon, err := s.horizon(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	facts, err := s.svc.Facts(r.Context(), sel, horizon)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var reply chat.Message
	session, err := s.sessions.Update(id, func(session *chat.Session) error {
		session.Select(sel.Disease, sel.Country)
		var err error
		reply, err = s.svc.Assistant().Ask(session, req.Question, facts)
		return err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	render.JSON(w, r, chatResponse{
		SessionID: session.ID,
		Disease:   session.Disease,
		Country:   session.Country,
		Reply:     reply,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	render.JSON(w, r, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "id"))
	render.NoContent(w, r)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var in risk.Input
	if err := s.decode(w, r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}
	a, err := risk.Assess(in)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	render.JSON(w, r, riskResponse{Assessment: a, Percent: a.Percent()})
}
