package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t,
		[]string{"HIV/AIDS", "Diabetes", "Tuberculosis", "COVID-19", "Colon Cancer", "Alzheimer's"},
		c.DiseaseNames(),
	)
	assert.Len(t, c.CountryNames(), 10)

	us, err := c.Country("America")
	require.Nil(t, err)
	assert.Equal(t, "us", us.Calendar)
}

func TestSlugs(t *testing.T) {
	testData := map[string]struct {
		disease  string
		country  string
		expected string
	}{
		"slash":      {disease: "HIV/AIDS", country: "India", expected: "hiv_aids_india"},
		"hyphen":     {disease: "COVID-19", country: "South Korea", expected: "covid19_south_korea"},
		"space":      {disease: "Colon Cancer", country: "America", expected: "colon_cancer_america"},
		"apostrophe": {disease: "Alzheimer's", country: "Japan", expected: "alzheimer's_japan"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, SeriesKey(td.disease, td.country))
		})
	}
}

func TestLookup(t *testing.T) {
	c := Default()

	testData := map[string]struct {
		disease  string
		expected Class
		err      error
	}{
		"display name":    {disease: "HIV/AIDS", expected: Chronic},
		"slug":            {disease: "covid19", expected: Acute},
		"mixed case":      {disease: "tuberculosis", expected: Acute},
		"surrounding ws":  {disease: " Diabetes ", expected: Chronic},
		"unknown disease": {disease: "Measles", err: ErrUnknownDisease},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			d, err := c.Disease(td.disease)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.Equal(t, Acute, c.Class(td.disease))
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, d.Class)
			assert.Equal(t, td.expected, c.Class(td.disease))
		})
	}

	_, err := c.Country("Atlantis")
	assert.ErrorIs(t, err, ErrUnknownCountry)
	ct, err := c.Country("south_korea")
	require.Nil(t, err)
	assert.Equal(t, "South Korea", ct.Name)
}

func TestParse(t *testing.T) {
	testData := map[string]struct {
		data string
		err  error
	}{
		"valid": {
			data: "diseases:\n  - name: Flu\n    class: acute\ncountries:\n  - name: Chile\n",
		},
		"bad class": {
			data: "diseases:\n  - name: Flu\n    class: seasonal\ncountries:\n  - name: Chile\n",
			err:  ErrInvalidCatalog,
		},
		"no countries": {
			data: "diseases:\n  - name: Flu\n    class: acute\n",
			err:  ErrInvalidCatalog,
		},
		"duplicate slug": {
			data: "diseases:\n  - name: Flu\n    class: acute\n  - name: FLU\n    class: acute\ncountries:\n  - name: Chile\n",
			err:  ErrDuplicateEntry,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			c, err := Parse([]byte(td.data))
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, []string{"Flu"}, c.DiseaseNames())
		})
	}

	_, err := Parse([]byte("diseases: [\n"))
	assert.NotNil(t, err)

	_, err = Parse([]byte("unknown_field: 1\n"))
	assert.NotNil(t, err)
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.Nil(t, err)
	assert.Equal(t, Default(), c)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.Nil(t, os.WriteFile(path, []byte("diseases:\n  - name: Flu\n    class: acute\ncountries:\n  - name: Chile\n"), 0o644))
	c, err = Load(path)
	require.Nil(t, err)
	assert.Equal(t, []string{"Chile"}, c.CountryNames())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}
