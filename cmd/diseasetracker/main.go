// Command diseasetracker serves the disease dashboard api and answers the same queries from
// the command line.
//
// Usage:
//
//	diseasetracker generate --data-dir data --content-dir content
//	diseasetracker serve --addr :8080
//	diseasetracker forecast --disease COVID-19 --country America --horizon 30 --format csv
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aouyang1/go-disease-tracker/config"
	"github.com/aouyang1/go-disease-tracker/content"
	"github.com/aouyang1/go-disease-tracker/dashboard"
	"github.com/aouyang1/go-disease-tracker/logging"
	"github.com/aouyang1/go-disease-tracker/source"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is the state shared by the commands once the global flags are applied
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	e := &env{}
	return &cli.App{
		Name:      "diseasetracker",
		Usage:     "Disease statistics dashboard with case forecasts",
		Version:   fmt.Sprintf("%s (commit: %s)", version, commit),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"TRACKER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory of the <disease>_<country>.csv|xlsx case files",
				EnvVars: []string{"TRACKER_PATHS_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "content-dir",
				Usage:   "Directory of the disease info and history texts",
				EnvVars: []string{"TRACKER_PATHS_CONTENT_DIR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"TRACKER_LOGGING_LEVEL"},
			},
		},
		Before: e.setup,
		Commands: []*cli.Command{
			serveCommand(e),
			diseasesCommand(e),
			summaryCommand(e),
			forecastCommand(e),
			chartCommand(e),
			chatCommand(e),
			riskCommand(e),
			generateCommand(e),
		},
	}
}

// setup loads the configuration, applies the global flags over it and installs the logger
func (e *env) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("data-dir") {
		cfg.Paths.DataDir = c.String("data-dir")
	}
	if c.IsSet("content-dir") {
		cfg.Paths.ContentDir = c.String("content-dir")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, c.App.ErrWriter)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	e.cfg = cfg
	e.logger = logger
	return nil
}

// service builds the dashboard over the configured directories
func (e *env) service(observer dashboard.Observer) (*dashboard.Service, error) {
	cat, err := e.cfg.Catalog()
	if err != nil {
		return nil, err
	}
	return dashboard.NewService(dashboard.Config{
		Catalog:  cat,
		Source:   source.NewFileSource(e.cfg.Paths.DataDir),
		Content:  content.NewStore(e.cfg.Paths.ContentDir),
		Options:  e.cfg.ForecastOptions(),
		CacheTTL: e.cfg.Cache.TTL,
		Observer: observer,
	})
}
