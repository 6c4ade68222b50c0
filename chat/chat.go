// Package chat answers canned questions about the selected series by dispatching on keywords
// to response templates.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/aouyang1/go-disease-tracker/content"
	"github.com/aouyang1/go-disease-tracker/summary"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrDuplicateIntent = errors.New("duplicate intent")
	ErrInvalidTemplate = errors.New("invalid response template")
	ErrNilSession      = errors.New("nil session")
)

const dateLayout = "2006-01-02"

// Outlook is the part of a forecast the assistant can talk about
type Outlook struct {
	Days       int
	FirstDate  time.Time
	FirstCases int64
	LastDate   time.Time
	LastCases  int64
	Confidence float64
}

// Facts is everything known about the current selection when a question is asked. A nil
// Summary or Outlook means the data is unavailable.
type Facts struct {
	Disease string
	Country string
	Summary *summary.Summary
	Outlook *Outlook
	Info    string
}

// Section returns the named section of the disease information text
func (f Facts) Section(heading string) string {
	body, _ := content.Section(f.Info, heading)
	return body
}

var funcs = template.FuncMap{
	"num": func(v int64) string {
		return message.NewPrinter(language.English).Sprintf("%d", v)
	},
	"date": func(t time.Time) string {
		return t.Format(dateLayout)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.0f%%", v*100)
	},
	"change": func(v *float64) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%+.1f%%", *v)
	},
	"bullets": func(body string) string {
		items := content.Bullets(body)
		if len(items) == 0 {
			return strings.TrimSpace(body)
		}
		return strings.Join(items, "; ")
	},
}

// Assistant resolves questions against an ordered intent table
type Assistant struct {
	intents []Intent
	tmpl    *template.Template
	now     func() time.Time
}

// NewAssistant compiles the templates of the intents. A nil table uses DefaultIntents.
func NewAssistant(intents []Intent) (*Assistant, error) {
	if intents == nil {
		intents = DefaultIntents()
	}

	root := template.New(IntentFallback).Funcs(funcs)
	if _, err := root.Parse(fallbackTemplate); err != nil {
		return nil, fmt.Errorf("%w, %s, %w", ErrInvalidTemplate, IntentFallback, err)
	}
	if _, err := root.New("nodata").Parse(noData); err != nil {
		return nil, fmt.Errorf("%w, nodata, %w", ErrInvalidTemplate, err)
	}

	seen := make(map[string]struct{}, len(intents))
	table := make([]Intent, 0, len(intents))
	for _, in := range intents {
		if in.Name == "" || in.Name == IntentFallback || in.Name == "nodata" {
			return nil, fmt.Errorf("%w, reserved or empty name %q", ErrDuplicateIntent, in.Name)
		}
		if _, exists := seen[in.Name]; exists {
			return nil, fmt.Errorf("%w, %s", ErrDuplicateIntent, in.Name)
		}
		seen[in.Name] = struct{}{}

		if _, err := root.New(in.Name).Parse(in.Template); err != nil {
			return nil, fmt.Errorf("%w, %s, %w", ErrInvalidTemplate, in.Name, err)
		}
		kw := make([]string, 0, len(in.Keywords))
		for _, k := range in.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		table = append(table, Intent{Name: in.Name, Keywords: kw, Template: in.Template})
	}

	return &Assistant{intents: table, tmpl: root, now: time.Now}, nil
}

// Match returns the name of the first intent with a keyword contained in the question
func (a *Assistant) Match(question string) string {
	q := strings.ToLower(question)
	for _, in := range a.intents {
		for _, k := range in.Keywords {
			if strings.Contains(q, k) {
				return in.Name
			}
		}
	}
	return IntentFallback
}

// Reply renders the response to the question without recording it
func (a *Assistant) Reply(question string, facts Facts) (string, string, error) {
	if strings.TrimSpace(question) == "" {
		return "", "", ErrEmptyQuestion
	}
	name := a.Match(question)

	var sb strings.Builder
	if err := a.tmpl.ExecuteTemplate(&sb, name, facts); err != nil {
		return "", name, fmt.Errorf("unable to render %s response, %w", name, err)
	}
	return sb.String(), name, nil
}

// Ask answers the question and appends both the question and the answer to the session
// history. The returned message is the assistant reply.
func (a *Assistant) Ask(s *Session, question string, facts Facts) (Message, error) {
	if s == nil {
		return Message{}, ErrNilSession
	}
	answer, intent, err := a.Reply(question, facts)
	if err != nil {
		return Message{}, err
	}

	now := a.now()
	s.Append(Message{Role: RoleUser, Content: strings.TrimSpace(question), At: now})
	reply := Message{Role: RoleAssistant, Content: answer, Intent: intent, At: now}
	s.Append(reply)
	return reply, nil
}
