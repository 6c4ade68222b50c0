// Package content reads the free text shown alongside a series: the disease information
// sheet and the per country history.
package content

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aouyang1/go-disease-tracker/catalog"
)

var ErrContentNotFound = errors.New("content not found")

const (
	DiseasesDir = "diseases"
	HistoryDir  = "history"
)

// Store reads text files from Dir/diseases/<disease>_info.txt and Dir/history/<disease>_<country>.txt
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) InfoPath(disease string) string {
	return filepath.Join(s.Dir, DiseasesDir, catalog.DiseaseSlug(disease)+"_info.txt")
}

func (s *Store) HistoryPath(disease, country string) string {
	return filepath.Join(s.Dir, HistoryDir, catalog.SeriesKey(disease, country)+".txt")
}

// Info returns the information sheet of the disease
func (s *Store) Info(disease string) (string, error) {
	return readText(s.InfoPath(disease))
}

// History returns the history of the disease in the country
func (s *Store) History(disease, country string) (string, error) {
	return readText(s.HistoryPath(disease, country))
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s, %w", path, ErrContentNotFound)
		}
		return "", fmt.Errorf("unable to read %s, %w", path, err)
	}
	return string(b), nil
}

// Title returns the text of the first level one heading or an empty string
func Title(text string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// Section returns the body under the level two heading matching heading, case insensitive.
// A heading matches when it equals heading or starts with it followed by a space, so
// "What is" finds "What is HIV/AIDS?". The body ends at the next heading of level one or two.
func Section(text, heading string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(heading))

	var (
		body  []string
		found bool
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") || strings.HasPrefix(trimmed, "## ") {
			if found {
				break
			}
			title := strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
			if strings.HasPrefix(trimmed, "## ") && (title == want || strings.HasPrefix(title, want+" ")) {
				found = true
			}
			continue
		}
		if found {
			body = append(body, line)
		}
	}
	if !found {
		return "", false
	}
	return strings.TrimSpace(strings.Join(body, "\n")), true
}

// Bullets returns the list items of a section body without their markers
func Bullets(body string) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if item, ok := strings.CutPrefix(line, "- "); ok {
			items = append(items, strings.TrimSpace(item))
		}
	}
	return items
}
