package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/chat"
	"github.com/aouyang1/go-disease-tracker/dashboard"
	"github.com/aouyang1/go-disease-tracker/export"
	"github.com/aouyang1/go-disease-tracker/risk"
	"github.com/aouyang1/go-disease-tracker/sample"
	"github.com/aouyang1/go-disease-tracker/server"
	"github.com/aouyang1/go-disease-tracker/source"
	"github.com/aouyang1/go-disease-tracker/summary"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const formatText = "text"

var printer = message.NewPrinter(language.English)

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "disease",
			Aliases:  []string{"d"},
			Usage:    "Disease name, e.g. COVID-19",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "country",
			Aliases:  []string{"n"},
			Usage:    "Country name, e.g. America",
			Required: true,
		},
	}
}

func horizonFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "horizon",
		Usage: "Forecast days, defaults to forecast.default_horizon",
	}
}

func formatFlag(value, usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   value,
		Usage:   usage,
	}
}

func outFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   usage,
	}
}

func selected(c *cli.Context) dashboard.Selection {
	return dashboard.Selection{Disease: c.String("disease"), Country: c.String("country")}
}

func (e *env) horizon(c *cli.Context) int {
	if h := c.Int("horizon"); h != 0 {
		return h
	}
	return e.cfg.Forecast.DefaultHorizon
}

// output returns the named file or stdout when path is empty or "-"
func output(c *cli.Context, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{c.App.Writer}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s, %w", path, err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the dashboard json api until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server.addr",
			},
		},
		Action: func(c *cli.Context) error {
			metrics := server.NewMetrics()
			svc, err := e.service(metrics)
			if err != nil {
				return err
			}
			cfg := e.cfg.ServerConfig()
			if c.IsSet("addr") {
				cfg.Addr = c.String("addr")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(svc, metrics, cfg, e.logger).Run(ctx)
		},
	}
}

func diseasesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "diseases",
		Usage: "List the diseases and countries of the catalog",
		Flags: []cli.Flag{formatFlag(formatText, "Output format (text, json)")},
		Action: func(c *cli.Context) error {
			cat, err := e.cfg.Catalog()
			if err != nil {
				return err
			}
			if c.String("format") == "json" {
				return writeJSON(c.App.Writer, cat)
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DISEASE\tCLASS\tBASE CASES")
			for _, d := range cat.Diseases {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Class, printer.Sprintf("%d", d.BaseCases))
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "COUNTRY\tHOLIDAYS")
			for _, ct := range cat.Countries {
				cal := ct.Calendar
				if cal == "" {
					cal = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\n", ct.Name, cal)
			}
			return tw.Flush()
		},
	}
}

func summaryCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Summarize a series, compare it with another country or look up one date",
		Flags: append(selectionFlags(),
			&cli.StringFlag{
				Name:  "compare",
				Usage: "Second country to compare with",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "Report the record of this date (YYYY-MM-DD) instead",
			},
			formatFlag(formatText, "Output format (text, json)"),
		),
		Action: func(c *cli.Context) error {
			svc, err := e.service(nil)
			if err != nil {
				return err
			}
			sel := selected(c)
			asJSON := c.String("format") == "json"

			switch {
			case c.IsSet("date"):
				date, err := source.ParseDate(c.String("date"))
				if err != nil {
					return err
				}
				dc, err := svc.CasesOn(c.Context, sel, date)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(c.App.Writer, dc)
				}
				fmt.Fprintf(c.App.Writer, "%s in %s on %s: %s cases, %s deaths\n",
					dc.Disease, dc.Country, dc.Record.Date.Format(forecaster.DateLayout),
					printer.Sprintf("%d", dc.Record.Cases), printer.Sprintf("%d", dc.Record.Deaths))
				if dc.Holiday != "" {
					fmt.Fprintf(c.App.Writer, "Public holiday: %s\n", dc.Holiday)
				}
				return nil

			case c.IsSet("compare"):
				cmp, err := svc.Compare(c.Context, sel.Disease, sel.Country, c.String("compare"))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(c.App.Writer, cmp)
				}
				fmt.Fprintf(c.App.Writer, "%s\n\n", cmp.Disease)
				return printSummaries(c.App.Writer, cmp.Primary, cmp.Other)
			}

			sum, _, err := svc.Summary(c.Context, sel)
			if err != nil {
				return err
			}
			resolved, _, _, err := svc.Resolve(sel)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.App.Writer, sum)
			}
			fmt.Fprintf(c.App.Writer, "%s (%s)\n\n", resolved.Disease, sum.Class)
			return printSummaries(c.App.Writer, dashboard.CountrySummary{Country: resolved.Country, Summary: sum})
		},
	}
}

// printSummaries lays out one column per country
func printSummaries(w io.Writer, summaries ...dashboard.CountrySummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(label string, value func(s summary.Summary) string) {
		fmt.Fprint(tw, label)
		for _, cs := range summaries {
			fmt.Fprintf(tw, "\t%s", value(cs.Summary))
		}
		fmt.Fprintln(tw)
	}
	onDate := func(s summary.Summary, v int64, t time.Time) string {
		if s.Records == 0 {
			return "-"
		}
		return printer.Sprintf("%d on %s", v, t.Format(forecaster.DateLayout))
	}

	for _, cs := range summaries {
		fmt.Fprintf(tw, "\t%s", cs.Country)
	}
	fmt.Fprintln(tw)
	row("Records", func(s summary.Summary) string { return printer.Sprintf("%d", s.Records) })
	row("Total cases", func(s summary.Summary) string { return printer.Sprintf("%d", s.TotalCases) })
	row("Total deaths", func(s summary.Summary) string { return printer.Sprintf("%d", s.TotalDeaths) })
	row("Peak cases", func(s summary.Summary) string {
		return onDate(s, s.PeakCases, s.PeakDate)
	})
	row("Latest cases", func(s summary.Summary) string {
		return onDate(s, s.LatestCases, s.LatestDate)
	})
	row("Mortality rate", func(s summary.Summary) string { return fmt.Sprintf("%.2f%%", s.MortalityRate) })
	row("Trend", func(s summary.Summary) string { return string(s.Trend) })
	row("Year over year", func(s summary.Summary) string {
		if s.YearOverYearChange == nil {
			return "-"
		}
		return fmt.Sprintf("%+.2f%%", *s.YearOverYearChange)
	})
	return tw.Flush()
}

func forecastCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "forecast",
		Usage: "Forecast the daily cases of a series",
		Flags: append(selectionFlags(),
			horizonFlag(),
			formatFlag(formatText, "Output format (text, csv, xlsx, json)"),
			outFlag("Write the forecast to this file instead of stdout"),
			&cli.StringFlag{
				Name:  "model",
				Usage: "Also write the fit model as json to this file",
			},
			&cli.StringFlag{
				Name:  "plot",
				Usage: "Also write an html plot of the training data, fit and forecast to this file",
			},
			&cli.BoolFlag{
				Name:  "explain",
				Usage: "Print the fit model to stderr",
			},
		),
		Action: func(c *cli.Context) error {
			svc, err := e.service(nil)
			if err != nil {
				return err
			}
			sel, _, _, err := svc.Resolve(selected(c))
			if err != nil {
				return err
			}
			horizon := e.horizon(c)
			fc, err := svc.Forecast(c.Context, sel, horizon)
			if err != nil {
				return err
			}

			out, err := output(c, c.String("out"))
			if err != nil {
				return err
			}
			if err := writeForecast(out, c.String("format"), sel, fc); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}

			if !c.IsSet("model") && !c.IsSet("plot") && !c.Bool("explain") {
				return nil
			}
			records, err := svc.Records(c.Context, sel)
			if err != nil {
				return err
			}
			f, err := forecaster.New(e.cfg.ForecastOptions())
			if err != nil {
				return err
			}
			if _, err := f.ForecastRecords(records, horizon); err != nil {
				return err
			}
			return explainFit(c, f, horizon)
		},
	}
}

func writeForecast(w io.Writer, format string, sel dashboard.Selection, fc *dashboard.Forecast) error {
	if format == formatText {
		fmt.Fprintf(w, "%s in %s, %d day forecast (confidence %.0f%%)\n\n",
			sel.Disease, sel.Country, fc.Horizon, fc.Confidence*100)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tPREDICTED CASES\tHOLIDAY")
		for i, p := range fc.Points {
			var hol string
			if fc.Holidays != nil {
				hol = fc.Holidays[i]
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Date.Format(forecaster.DateLayout), printer.Sprintf("%d", p.Cases), hol)
		}
		return tw.Flush()
	}

	ef, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	return export.WriteForecast(w, ef, export.Forecast{
		Disease:  sel.Disease,
		Country:  sel.Country,
		Results:  fc.Results,
		Holidays: fc.Holidays,
	})
}

func explainFit(c *cli.Context, f *forecaster.Forecaster, horizon int) error {
	if c.Bool("explain") {
		m, err := f.Model()
		if err != nil {
			return err
		}
		if err := m.TablePrint(c.App.ErrWriter, "", "  "); err != nil {
			return err
		}
		eq, err := f.ModelEq()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.ErrWriter, eq)
	}

	if path := c.String("model"); path != "" {
		m, err := f.Model()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return fmt.Errorf("unable to encode model, %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("unable to write model %s, %w", path, err)
		}
	}

	if path := c.String("plot"); path != "" {
		w, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("unable to create %s, %w", path, err)
		}
		if err := f.PlotFit(w, horizon); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}
	return nil
}

func chartCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "Render the cases, deaths and forecast charts of a series as an html page",
		Flags: append(selectionFlags(),
			&cli.StringFlag{
				Name:  "compare",
				Usage: "Plot the cases against this country",
			},
			horizonFlag(),
			outFlag("Html file, defaults to <disease>_<country>_charts.html"),
		),
		Action: func(c *cli.Context) error {
			svc, err := e.service(nil)
			if err != nil {
				return err
			}
			sel, _, _, err := svc.Resolve(selected(c))
			if err != nil {
				return err
			}
			path := c.String("out")
			if path == "" {
				path = sel.Key() + "_charts.html"
			}
			out, err := output(c, path)
			if err != nil {
				return err
			}
			if err := svc.RenderCharts(c.Context, out, sel, c.String("compare"), e.horizon(c)); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			e.logger.Info("wrote charts", "path", path)
			return nil
		},
	}
}

func chatCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Ask the assistant about a series. Without a question it reads questions from stdin.",
		ArgsUsage: "[question]",
		Flags:     append(selectionFlags(), horizonFlag()),
		Action: func(c *cli.Context) error {
			svc, err := e.service(nil)
			if err != nil {
				return err
			}
			sel, _, _, err := svc.Resolve(selected(c))
			if err != nil {
				return err
			}
			session := chat.NewSession(sel.Disease, sel.Country)
			session.MaxHistory = e.cfg.Sessions.MaxHistory
			horizon := e.horizon(c)

			if c.Args().Present() {
				reply, err := svc.Ask(c.Context, session, strings.Join(c.Args().Slice(), " "), horizon)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, reply.Content)
				return nil
			}

			fmt.Fprintf(c.App.Writer, "Asking about %s in %s. Type quit to leave.\n", sel.Disease, sel.Country)
			scanner := bufio.NewScanner(c.App.Reader)
			for {
				fmt.Fprint(c.App.Writer, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(c.App.Writer)
					return scanner.Err()
				}
				q := strings.TrimSpace(scanner.Text())
				switch strings.ToLower(q) {
				case "":
					continue
				case "quit", "exit":
					return nil
				}
				reply, err := svc.Ask(c.Context, session, q, horizon)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, reply.Content)
			}
		},
	}
}

func riskCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "risk",
		Usage: "Score the personal risk of the given profile",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "age",
				Usage:    "Age in years, 0 to 100",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "symptom",
				Usage: "Current symptom, repeatable: " + strings.Join(risk.Symptoms, ", "),
			},
			&cli.StringSliceFlag{
				Name:  "condition",
				Usage: "Pre-existing condition, repeatable: " + strings.Join(risk.Conditions, ", "),
			},
			&cli.StringFlag{
				Name:     "vaccination",
				Usage:    "Fully Vaccinated, Partially Vaccinated or Not Vaccinated",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "location",
				Usage: "Country, informational only",
			},
			formatFlag(formatText, "Output format (text, json)"),
		},
		Action: func(c *cli.Context) error {
			a, err := risk.Assess(risk.Input{
				Age:         c.Int("age"),
				Location:    c.String("location"),
				Symptoms:    c.StringSlice("symptom"),
				Conditions:  c.StringSlice("condition"),
				Vaccination: risk.Vaccination(c.String("vaccination")),
			})
			if err != nil {
				return err
			}
			if c.String("format") == "json" {
				return writeJSON(c.App.Writer, a)
			}
			fmt.Fprintf(c.App.Writer, "Risk score: %d/%d (%s)\n%s\n", a.Score, risk.MaxScore, a.Level, a.Advice)
			return nil
		},
	}
}

func generateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Write a synthetic data and content corpus for every disease and country",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "seed",
				Value: sample.DefaultSeed,
				Usage: "Random seed, the same seed writes the same corpus",
			},
			&cli.IntFlag{
				Name:  "records",
				Value: sample.DefaultRecords,
				Usage: "Records per series",
			},
			&cli.IntFlag{
				Name:  "step-days",
				Value: sample.DefaultStepDays,
				Usage: "Days between records",
			},
			&cli.StringFlag{
				Name:  "start",
				Value: sample.DefaultStart.Format(forecaster.DateLayout),
				Usage: "Date of the first record",
			},
			formatFlag(string(export.CSV), "Data file format (csv, xlsx)"),
		},
		Action: func(c *cli.Context) error {
			start, err := source.ParseDate(c.String("start"))
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			cat, err := e.cfg.Catalog()
			if err != nil {
				return err
			}
			g := sample.New(cat, sample.Config{
				Seed:     c.Uint64("seed"),
				Start:    start,
				Records:  c.Int("records"),
				StepDays: c.Int("step-days"),
				Format:   format,
			})
			report, err := g.Write(c.Context, e.cfg.Paths.DataDir, e.cfg.Paths.ContentDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %d data files to %s, %d history and %d info files to %s\n",
				report.DataFiles, e.cfg.Paths.DataDir, report.HistoryFiles, report.InfoFiles, e.cfg.Paths.ContentDir)
			return nil
		},
	}
}
