// Package sample generates a synthetic data and content corpus for every catalog selection.
package sample

import (
	"context"
	_ "embed"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/catalog"
	"github.com/aouyang1/go-disease-tracker/content"
	"github.com/aouyang1/go-disease-tracker/export"
	"github.com/aouyang1/go-disease-tracker/timedataset"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"
)

const (
	DefaultRecords  = 300
	DefaultStepDays = 30
	DefaultSeed     = 42

	// PandemicDisease follows the pandemic shape instead of steady growth
	PandemicDisease = "COVID-19"

	// growth is the linear growth per record of the steady diseases
	growth = 0.05
)

var DefaultStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

//go:embed info.yaml
var infoYAML []byte

//go:embed history.tmpl
var historyTmpl string

var historyTemplate = template.Must(template.New("history").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format(forecaster.DateLayout) },
}).Parse(historyTmpl))

var infoSheets = sync.OnceValues(func() (map[string]string, error) {
	sheets := make(map[string]string)
	if err := yaml.Unmarshal(infoYAML, &sheets); err != nil {
		return nil, fmt.Errorf("unable to decode info sheets, %w", err)
	}
	return sheets, nil
})

// Info returns the information sheet of the disease
func Info(disease string) (string, bool, error) {
	sheets, err := infoSheets()
	if err != nil {
		return "", false, err
	}
	text, ok := sheets[disease]
	return text, ok, nil
}

// Config controls the shape of the generated corpus. Zero values use the defaults.
type Config struct {
	Seed     uint64
	Start    time.Time
	Records  int
	StepDays int
	Format   export.Format
}

func (c Config) withDefaults() Config {
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	if c.Start.IsZero() {
		c.Start = DefaultStart
	}
	if c.Records <= 0 {
		c.Records = DefaultRecords
	}
	if c.StepDays <= 0 {
		c.StepDays = DefaultStepDays
	}
	if c.Format == "" {
		c.Format = export.CSV
	}
	return c
}

// Generator builds the corpus. Each series draws from its own random stream seeded by the
// config seed and the series key so output does not depend on generation order.
type Generator struct {
	catalog *catalog.Catalog
	cfg     Config
}

func New(cat *catalog.Catalog, cfg Config) *Generator {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Generator{catalog: cat, cfg: cfg.withDefaults()}
}

func (g *Generator) rng(disease, country string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(catalog.SeriesKey(disease, country)))
	return rand.New(rand.NewPCG(g.cfg.Seed, h.Sum64()))
}

// Series generates the records of a selection. The pandemic disease is zero before 2020, ramps
// within 2020, peaks at 15x base in 2021 and settles at 8x base after. Other diseases grow
// linearly from their base with 20% multiplicative noise. Deaths are 1-5% of cases.
func (g *Generator) Series(d catalog.Disease, country string) timedataset.Records {
	n := g.cfg.Records
	rng := g.rng(d.Name, country)
	t := timedataset.GenerateDates(g.cfg.Start, n, g.cfg.StepDays)
	base := float64(d.BaseCases)

	var y timedataset.Series
	if d.Name == PandemicDisease {
		y = make(timedataset.Series, n)
		for i, ct := range t {
			switch {
			case ct.Year() < 2020:
				y[i] = 0
			case ct.Year() == 2020:
				y[i] = base * float64(i%12) * uniform(rng, 0.8, 1.2)
			case ct.Year() == 2021:
				y[i] = base * 15 * uniform(rng, 0.9, 1.3)
			default:
				y[i] = base * 8 * uniform(rng, 0.7, 1.1)
			}
		}
	} else {
		y = timedataset.GenerateLinearY(n, base, base*growth).
			Mul(timedataset.GenerateNoise(n, 0.8, 1.2, rng))
	}

	records := make(timedataset.Records, n)
	for i := range records {
		cases := int64(y[i])
		records[i] = timedataset.Record{
			Date:   t[i],
			Cases:  cases,
			Deaths: int64(float64(cases) * uniform(rng, 0.01, 0.05)),
		}
	}
	return records
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

type historyData struct {
	Disease     string
	Country     string
	Start       time.Time
	End         time.Time
	Records     int
	StepDays    int
	TotalCases  int64
	TotalDeaths int64
}

// History renders the history text of a generated series
func (g *Generator) History(disease, country string, records timedataset.Records) (string, error) {
	data := historyData{
		Disease:  disease,
		Country:  country,
		Start:    records.StartTime(),
		End:      records.EndTime(),
		Records:  len(records),
		StepDays: g.cfg.StepDays,
	}
	for _, r := range records {
		data.TotalCases += r.Cases
		data.TotalDeaths += r.Deaths
	}
	var sb strings.Builder
	if err := historyTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("unable to render history of %s in %s, %w", disease, country, err)
	}
	return sb.String(), nil
}

// Report counts the files written by Write
type Report struct {
	DataFiles    int
	HistoryFiles int
	InfoFiles    int
}

// Write generates the whole corpus: one data file per selection in dataDir and the history
// and info texts under contentDir. Existing files are overwritten.
func (g *Generator) Write(ctx context.Context, dataDir, contentDir string) (Report, error) {
	if g.cfg.Format != export.CSV && g.cfg.Format != export.XLSX {
		return Report{}, fmt.Errorf("data files must be csv or xlsx, got %q, %w", g.cfg.Format, export.ErrUnknownFormat)
	}
	store := content.NewStore(contentDir)
	for _, dir := range []string{dataDir, filepath.Join(contentDir, content.DiseasesDir), filepath.Join(contentDir, content.HistoryDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Report{}, fmt.Errorf("unable to create %s, %w", dir, err)
		}
	}

	var report Report
	for _, d := range g.catalog.Diseases {
		text, ok, err := Info(d.Name)
		if err != nil {
			return report, err
		}
		if !ok {
			text = fmt.Sprintf("# %s\n\nInformation about %s coming soon.\n", d.Name, d.Name)
		}
		if err := os.WriteFile(store.InfoPath(d.Name), []byte(text), 0o644); err != nil {
			return report, fmt.Errorf("unable to write info of %s, %w", d.Name, err)
		}
		report.InfoFiles++
	}

	type written struct{ data, history int }
	results := make([]written, len(g.catalog.Diseases)*len(g.catalog.Countries))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for i, d := range g.catalog.Diseases {
		for j, c := range g.catalog.Countries {
			idx := i*len(g.catalog.Countries) + j
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				records := g.Series(d, c.Name)
				if err := g.writeData(dataDir, d.Name, c.Name, records); err != nil {
					return err
				}
				results[idx].data = 1

				history, err := g.History(d.Name, c.Name, records)
				if err != nil {
					return err
				}
				if err := os.WriteFile(store.HistoryPath(d.Name, c.Name), []byte(history), 0o644); err != nil {
					return fmt.Errorf("unable to write history of %s in %s, %w", d.Name, c.Name, err)
				}
				results[idx].history = 1
				return nil
			})
		}
	}
	err := eg.Wait()
	for _, r := range results {
		report.DataFiles += r.data
		report.HistoryFiles += r.history
	}
	if err != nil {
		return report, err
	}
	slog.Info("generated sample corpus",
		"data_dir", dataDir,
		"content_dir", contentDir,
		"data_files", report.DataFiles,
		"history_files", report.HistoryFiles,
		"info_files", report.InfoFiles,
	)
	return report, nil
}

func (g *Generator) writeData(dir, disease, country string, records timedataset.Records) error {
	path := filepath.Join(dir, catalog.SeriesKey(disease, country)+g.cfg.Format.Ext())
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	if err := export.WriteRecords(f, g.cfg.Format, records); err != nil {
		f.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return f.Close()
}
