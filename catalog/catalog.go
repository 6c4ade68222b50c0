// Package catalog holds the static table of tracked diseases and countries along with the
// file naming rules that map a selection to its data files.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

var (
	ErrUnknownDisease = errors.New("unknown disease")
	ErrUnknownCountry = errors.New("unknown country")
	ErrDuplicateEntry = errors.New("duplicate catalog entry")
	ErrInvalidCatalog = errors.New("invalid catalog")
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Class separates long running conditions from outbreak driven ones
type Class string

const (
	Chronic Class = "chronic"
	Acute   Class = "acute"
)

type Disease struct {
	Name      string `yaml:"name" json:"name" validate:"required"`
	Class     Class  `yaml:"class" json:"class" validate:"oneof=chronic acute"`
	BaseCases int    `yaml:"base_cases" json:"base_cases" validate:"gte=0"`
}

// Slug returns the file name form of the disease
func (d Disease) Slug() string {
	return DiseaseSlug(d.Name)
}

type Country struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Calendar string `yaml:"calendar" json:"calendar,omitempty"`
}

// Slug returns the file name form of the country
func (c Country) Slug() string {
	return CountrySlug(c.Name)
}

// Catalog is the ordered list of diseases and countries offered for selection
type Catalog struct {
	Diseases  []Disease `yaml:"diseases" json:"diseases" validate:"required,dive"`
	Countries []Country `yaml:"countries" json:"countries" validate:"required,dive"`
}

// Default returns the catalog shipped with the binary
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid, %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read catalog %s, %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unable to decode catalog, %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field constraints and that no two entries share a slug
func (c *Catalog) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w, %w", ErrInvalidCatalog, err)
	}

	diseases := make(map[string]struct{}, len(c.Diseases))
	for _, d := range c.Diseases {
		if _, exists := diseases[d.Slug()]; exists {
			return fmt.Errorf("disease %q, %w", d.Name, ErrDuplicateEntry)
		}
		diseases[d.Slug()] = struct{}{}
	}
	countries := make(map[string]struct{}, len(c.Countries))
	for _, ct := range c.Countries {
		if _, exists := countries[ct.Slug()]; exists {
			return fmt.Errorf("country %q, %w", ct.Name, ErrDuplicateEntry)
		}
		countries[ct.Slug()] = struct{}{}
	}
	return nil
}

// Disease looks up a disease by display name or slug
func (c *Catalog) Disease(name string) (Disease, error) {
	slug := DiseaseSlug(strings.TrimSpace(name))
	for _, d := range c.Diseases {
		if d.Slug() == slug {
			return d, nil
		}
	}
	return Disease{}, fmt.Errorf("%q, %w", name, ErrUnknownDisease)
}

// Country looks up a country by display name or slug
func (c *Catalog) Country(name string) (Country, error) {
	slug := CountrySlug(strings.TrimSpace(name))
	for _, ct := range c.Countries {
		if ct.Slug() == slug {
			return ct, nil
		}
	}
	return Country{}, fmt.Errorf("%q, %w", name, ErrUnknownCountry)
}

// Class returns the class of the disease. Diseases missing from the catalog are treated as acute.
func (c *Catalog) Class(disease string) Class {
	d, err := c.Disease(disease)
	if err != nil {
		return Acute
	}
	return d.Class
}

func (c *Catalog) DiseaseNames() []string {
	names := make([]string, len(c.Diseases))
	for i, d := range c.Diseases {
		names[i] = d.Name
	}
	return names
}

func (c *Catalog) CountryNames() []string {
	names := make([]string, len(c.Countries))
	for i, ct := range c.Countries {
		names[i] = ct.Name
	}
	return names
}

// DiseaseSlug lowercases the name, drops hyphens and replaces slashes and spaces with
// underscores, e.g. HIV/AIDS becomes hiv_aids and COVID-19 becomes covid19
func DiseaseSlug(name string) string {
	r := strings.NewReplacer("-", "", "/", "_", " ", "_")
	return r.Replace(strings.ToLower(name))
}

// CountrySlug lowercases the name and replaces spaces with underscores
func CountrySlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// SeriesKey is the base file name shared by the data and history files of a selection
func SeriesKey(disease, country string) string {
	return DiseaseSlug(disease) + "_" + CountrySlug(country)
}
