// Package dashboard assembles everything shown for a disease selection: the series summary,
// its forecast, reference text and news links.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/catalog"
	"github.com/aouyang1/go-disease-tracker/chart"
	"github.com/aouyang1/go-disease-tracker/chat"
	"github.com/aouyang1/go-disease-tracker/content"
	"github.com/aouyang1/go-disease-tracker/holiday"
	"github.com/aouyang1/go-disease-tracker/news"
	"github.com/aouyang1/go-disease-tracker/source"
	"github.com/aouyang1/go-disease-tracker/stats"
	"github.com/aouyang1/go-disease-tracker/summary"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/go-echarts/go-echarts/v2/components"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoRecordOnDate = errors.New("no record on date")
	ErrSameCountry    = errors.New("comparison country must differ from the selected country")
)

const (
	DefaultHorizon  = 30
	DefaultCacheTTL = time.Hour

	comingSoonInfo    = "Disease information coming soon"
	comingSoonHistory = "History content will be added by research team."
)

// Selection is a disease and country pair
type Selection struct {
	Disease string `json:"disease"`
	Country string `json:"country"`
}

func (s Selection) Key() string {
	return catalog.SeriesKey(s.Disease, s.Country)
}

// Observer receives forecast timings and cache events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ForecastComputed(d time.Duration, err error)
	ForecastCacheHit()
}

type nopObserver struct{}

func (nopObserver) ForecastComputed(time.Duration, error) {}
func (nopObserver) ForecastCacheHit() {}

type forecastKey struct {
	series  string
	horizon int
}

// Forecast is a case forecast of a selection with the public holidays falling on its dates
type Forecast struct {
	Horizon     int                 `json:"horizon"`
	Points      []forecaster.Point  `json:"points"`
	Holidays    []string            `json:"holidays,omitempty"`
	Confidence  float64             `json:"confidence"`
	Scores      stats.Scores        `json:"scores"`
	GeneratedAt time.Time           `json:"generated_at"`
	Results     *forecaster.Results `json:"-"`
}

// Outlook condenses the forecast for the chat assistant
func (f *Forecast) Outlook() *chat.Outlook {
	if f == nil || len(f.Points) == 0 {
		return nil
	}
	first, last := f.Points[0], f.Points[len(f.Points)-1]
	return &chat.Outlook{
		Days:       len(f.Points),
		FirstDate:  first.Date,
		FirstCases: first.Cases,
		LastDate:   last.Date,
		LastCases:  last.Cases,
		Confidence: f.Confidence,
	}
}

// View is the dashboard of one selection. Missing data degrades to a reason string instead of
// failing the whole view.
type View struct {
	Selection
	Class catalog.Class `json:"class"`

	Summary         *summary.Summary `json:"summary,omitempty"`
	DataUnavailable string           `json:"data_unavailable,omitempty"`

	Forecast            *Forecast `json:"forecast,omitempty"`
	ForecastUnavailable string    `json:"forecast_unavailable,omitempty"`

	Info    string      `json:"info"`
	History string      `json:"history"`
	News    []news.Link `json:"news"`
}

// Comparison is the summary of a disease in two countries
type Comparison struct {
	Disease string         `json:"disease"`
	Primary CountrySummary `json:"primary"`
	Other   CountrySummary `json:"other"`
}

type CountrySummary struct {
	Country string          `json:"country"`
	Summary summary.Summary `json:"summary"`
}

// DailyCases is the daily case finder result
type DailyCases struct {
	Selection
	Record  timedataset.Record `json:"record"`
	Holiday string             `json:"holiday,omitempty"`
}

// Service answers dashboard queries. It is safe for concurrent use.
type Service struct {
	catalog  *catalog.Catalog
	source   source.Source
	content  *content.Store
	opt      *forecaster.Options
	observer Observer

	forecasts *Cache[forecastKey, *Forecast]
	inflight  singleflight.Group
	assistant *chat.Assistant
	now       func() time.Time
}

// Config wires the dependencies of a Service. Nil Catalog, Options and Observer use defaults.
type Config struct {
	Catalog  *catalog.Catalog
	Source   source.Source
	Content  *content.Store
	Options  *forecaster.Options
	CacheTTL time.Duration
	Intents  []chat.Intent
	Observer Observer
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("dashboard requires a record source")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Content == nil {
		cfg.Content = content.NewStore("content")
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	opt, err := cfg.Options.Validate()
	if err != nil {
		return nil, err
	}
	assistant, err := chat.NewAssistant(cfg.Intents)
	if err != nil {
		return nil, fmt.Errorf("unable to build chat assistant, %w", err)
	}
	return &Service{
		catalog:   cfg.Catalog,
		source:    cfg.Source,
		content:   cfg.Content,
		opt:       opt,
		observer:  cfg.Observer,
		forecasts: NewCache[forecastKey, *Forecast](cfg.CacheTTL),
		assistant: assistant,
		now:       time.Now,
	}, nil
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Service) Assistant() *chat.Assistant {
	return s.assistant
}

// Janitor drops expired forecasts every interval until the context is done
func (s *Service) Janitor(ctx context.Context, interval time.Duration) {
	s.forecasts.Janitor(ctx, interval)
}

// Resolve maps a selection given by name or slug to the catalog display names
func (s *Service) Resolve(sel Selection) (Selection, catalog.Disease, catalog.Country, error) {
	d, err := s.catalog.Disease(sel.Disease)
	if err != nil {
		return sel, d, catalog.Country{}, err
	}
	c, err := s.catalog.Country(sel.Country)
	if err != nil {
		return sel, d, c, err
	}
	return Selection{Disease: d.Name, Country: c.Name}, d, c, nil
}

// Records loads the date sorted series of the selection
func (s *Service) Records(ctx context.Context, sel Selection) (timedataset.Records, error) {
	sel, _, _, err := s.Resolve(sel)
	if err != nil {
		return nil, err
	}
	return s.source.Load(ctx, sel.Disease, sel.Country)
}

// Summary loads and summarizes the series of the selection
func (s *Service) Summary(ctx context.Context, sel Selection) (summary.Summary, timedataset.Records, error) {
	sel, d, _, err := s.Resolve(sel)
	if err != nil {
		return summary.Summary{}, nil, err
	}
	records, err := s.source.Load(ctx, sel.Disease, sel.Country)
	if err != nil {
		return summary.Summary{}, nil, err
	}
	return summary.Summarize(records, d.Class), records, nil
}

// Forecast predicts the cases of the selection for the horizon. Results are cached per
// selection and horizon and concurrent requests for the same key share one computation.
func (s *Service) Forecast(ctx context.Context, sel Selection, horizon int) (*Forecast, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("got horizon of %d, %w", horizon, forecaster.ErrInvalidHorizon)
	}
	sel, _, country, err := s.Resolve(sel)
	if err != nil {
		return nil, err
	}

	key := forecastKey{series: sel.Key(), horizon: horizon}
	if fc, ok := s.forecasts.Get(key); ok {
		s.observer.ForecastCacheHit()
		return fc, nil
	}

	v, err, _ := s.inflight.Do(fmt.Sprintf("%s/%d", key.series, key.horizon), func() (interface{}, error) {
		start := time.Now()
		fc, err := s.computeForecast(ctx, sel, country, horizon)
		s.observer.ForecastComputed(time.Since(start), err)
		if err != nil {
			return nil, err
		}
		s.forecasts.Set(key, fc)
		return fc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Forecast), nil
}

func (s *Service) computeForecast(ctx context.Context, sel Selection, country catalog.Country, horizon int) (*Forecast, error) {
	records, err := s.source.Load(ctx, sel.Disease, sel.Country)
	if err != nil {
		return nil, err
	}

	f, err := forecaster.New(s.opt)
	if err != nil {
		return nil, err
	}
	res, err := f.ForecastRecords(records, horizon)
	if err != nil {
		return nil, err
	}

	fc := &Forecast{
		Horizon:     horizon,
		Points:      res.Points(),
		Confidence:  res.Confidence,
		Scores:      res.Scores,
		GeneratedAt: s.now(),
		Results:     res,
	}
	if cal, err := holiday.New(country.Calendar); err == nil {
		flags := cal.Flag(res.T)
		for _, flag := range flags {
			if flag != "" {
				fc.Holidays = flags
				break
			}
		}
	} else {
		slog.Warn("unable to load holiday calendar", "country", country.Name, "calendar", country.Calendar, "error", err)
	}
	return fc, nil
}

// View assembles the dashboard of the selection
func (s *Service) View(ctx context.Context, sel Selection, horizon int) (*View, error) {
	sel, d, _, err := s.Resolve(sel)
	if err != nil {
		return nil, err
	}

	v := &View{
		Selection: sel,
		Class:     d.Class,
		News:      news.Links(sel.Disease, sel.Country),
	}

	records, err := s.source.Load(ctx, sel.Disease, sel.Country)
	switch {
	case err == nil:
		sum := summary.Summarize(records, d.Class)
		v.Summary = &sum
	case errors.Is(err, source.ErrSeriesNotFound):
		v.DataUnavailable = fmt.Sprintf("data file not found for %s in %s", sel.Disease, sel.Country)
	default:
		slog.Warn("unable to load series", "disease", sel.Disease, "country", sel.Country, "error", err)
		v.DataUnavailable = fmt.Sprintf("error loading data, %v", err)
	}

	if v.Summary != nil {
		fc, err := s.Forecast(ctx, sel, horizon)
		if err != nil {
			slog.Warn("forecast unavailable", "disease", sel.Disease, "country", sel.Country, "horizon", horizon, "error", err)
			v.ForecastUnavailable = err.Error()
		} else {
			v.Forecast = fc
		}
	} else {
		v.ForecastUnavailable = "no data to forecast"
	}

	v.Info, v.History = s.text(sel)
	return v, nil
}

func (s *Service) text(sel Selection) (string, string) {
	info, err := s.content.Info(sel.Disease)
	if err != nil {
		if !errors.Is(err, content.ErrContentNotFound) {
			slog.Warn("unable to load disease info", "disease", sel.Disease, "error", err)
		}
		info = comingSoonInfo
	}
	history, err := s.content.History(sel.Disease, sel.Country)
	if err != nil {
		if !errors.Is(err, content.ErrContentNotFound) {
			slog.Warn("unable to load history", "disease", sel.Disease, "country", sel.Country, "error", err)
		}
		history = comingSoonHistory
	}
	return info, history
}

// Compare summarizes the disease in two countries loaded concurrently
func (s *Service) Compare(ctx context.Context, disease, country, other string) (*Comparison, error) {
	a, d, _, err := s.Resolve(Selection{Disease: disease, Country: country})
	if err != nil {
		return nil, err
	}
	b, _, _, err := s.Resolve(Selection{Disease: disease, Country: other})
	if err != nil {
		return nil, err
	}
	if a.Country == b.Country {
		return nil, ErrSameCountry
	}

	pair, err := source.LoadPair(ctx, s.source, a.Disease, a.Country, b.Country)
	if err != nil {
		return nil, err
	}
	return &Comparison{
		Disease: a.Disease,
		Primary: CountrySummary{Country: a.Country, Summary: summary.Summarize(pair.Primary, d.Class)},
		Other:   CountrySummary{Country: b.Country, Summary: summary.Summarize(pair.Other, d.Class)},
	}, nil
}

// CasesOn finds the record of the selection on the calendar day of date
func (s *Service) CasesOn(ctx context.Context, sel Selection, date time.Time) (*DailyCases, error) {
	sel, _, country, err := s.Resolve(sel)
	if err != nil {
		return nil, err
	}
	records, err := s.source.Load(ctx, sel.Disease, sel.Country)
	if err != nil {
		return nil, err
	}
	rec, ok := summary.CasesOn(records, date)
	if !ok {
		return nil, fmt.Errorf("%s, %w", date.Format(forecaster.DateLayout), ErrNoRecordOnDate)
	}

	dc := &DailyCases{Selection: sel, Record: rec}
	if cal, err := holiday.New(country.Calendar); err == nil {
		if hol, ok := cal.On(rec.Date); ok {
			dc.Holiday = hol.Name
		}
	}
	return dc, nil
}

// Facts gathers what the chat assistant knows about the selection. Missing data leaves the
// corresponding fact empty.
func (s *Service) Facts(ctx context.Context, sel Selection, horizon int) (chat.Facts, error) {
	sel, d, _, err := s.Resolve(sel)
	if err != nil {
		return chat.Facts{}, err
	}
	facts := chat.Facts{Disease: sel.Disease, Country: sel.Country}
	if info, err := s.content.Info(sel.Disease); err == nil {
		facts.Info = info
	}

	records, err := s.source.Load(ctx, sel.Disease, sel.Country)
	if err != nil {
		return facts, nil
	}
	sum := summary.Summarize(records, d.Class)
	facts.Summary = &sum

	if fc, err := s.Forecast(ctx, sel, horizon); err == nil {
		facts.Outlook = fc.Outlook()
	}
	return facts, nil
}

// Ask answers a chat question about the session selection and records the exchange
func (s *Service) Ask(ctx context.Context, session *chat.Session, question string, horizon int) (chat.Message, error) {
	if session == nil {
		return chat.Message{}, chat.ErrNilSession
	}
	facts, err := s.Facts(ctx, Selection{Disease: session.Disease, Country: session.Country}, horizon)
	if err != nil {
		return chat.Message{}, err
	}
	return s.assistant.Ask(session, question, facts)
}

// RenderCharts writes the html chart page of the selection: cases or a comparison when
// compareWith names another country, deaths, and the forecast when one can be made.
func (s *Service) RenderCharts(ctx context.Context, w io.Writer, sel Selection, compareWith string, horizon int) error {
	sel, _, _, err := s.Resolve(sel)
	if err != nil {
		return err
	}

	var other *catalog.Country
	if compareWith != "" {
		c, err := s.catalog.Country(compareWith)
		if err != nil {
			return err
		}
		if c.Name != sel.Country {
			other = &c
		}
	}

	var records, otherRecords timedataset.Records
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.source.Load(gctx, sel.Disease, sel.Country)
		return err
	})
	if other != nil {
		g.Go(func() error {
			var err error
			otherRecords, err = s.source.Load(gctx, sel.Disease, other.Name)
			if err != nil {
				slog.Warn("comparison data unavailable", "disease", sel.Disease, "country", other.Name, "error", err)
				otherRecords = nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	charters := make([]components.Charter, 0, 3)
	if other != nil && otherRecords != nil {
		charters = append(charters, chart.CompareChart(sel.Disease, sel.Country, records, other.Name, otherRecords))
	} else {
		charters = append(charters, chart.CasesChart(sel.Disease, sel.Country, records))
	}
	charters = append(charters, chart.DeathsChart(sel.Disease, sel.Country, records))

	if fc, err := s.Forecast(ctx, sel, horizon); err == nil {
		charters = append(charters, chart.ForecastChart(sel.Disease, sel.Country, records, fc.Results))
	} else {
		slog.Warn("forecast chart skipped", "disease", sel.Disease, "country", sel.Country, "error", err)
	}

	return chart.Page(w, sel.Disease+" in "+sel.Country, charters...)
}
