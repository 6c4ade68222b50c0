package chat

// Intent pairs trigger keywords with the response template used when one of them appears in a
// question. Keywords are matched as lower case substrings.
type Intent struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Template string   `yaml:"template" json:"template"`
}

const (
	IntentSymptom      = "symptom"
	IntentTransmission = "transmission"
	IntentPrevention   = "prevention"
	IntentTreatment    = "treatment"
	IntentForecast     = "forecast"
	IntentMortality    = "mortality"
	IntentPeak         = "peak"
	IntentTrend        = "trend"
	IntentLatest       = "latest"
	IntentTotal        = "total"

	// IntentFallback answers questions matching no other intent
	IntentFallback = "fallback"
)

const noData = `Data for {{.Disease}} in {{.Country}} is not available yet.`

const fallbackTemplate = `Based on the data for {{.Disease}} in {{.Country}}, I can help you with that information. ` +
	`{{with .Summary}}Total cases recorded: {{num .TotalCases}}.{{else}}Data not available yet. Please add the dataset files.{{end}}`

// DefaultIntents is the dispatch table in priority order. Earlier entries win when a question
// matches several, so "how many deaths" resolves to mortality before total.
func DefaultIntents() []Intent {
	return []Intent{
		{
			Name:     IntentSymptom,
			Keywords: []string{"symptom", "signs", "feel"},
			Template: `{{with .Section "Symptoms"}}Common symptoms of {{$.Disease}}: {{bullets .}}.` +
				`{{else}}Symptom information for {{.Disease}} is coming soon.{{end}}`,
		},
		{
			Name:     IntentTransmission,
			Keywords: []string{"transmi", "spread", "contagious", "catch"},
			Template: `{{with .Section "Transmission"}}{{$.Disease}} transmission: {{bullets .}}.` +
				`{{else}}Transmission information for {{.Disease}} is coming soon.{{end}}`,
		},
		{
			Name:     IntentPrevention,
			Keywords: []string{"prevent", "avoid", "protect", "vaccin"},
			Template: `{{with .Section "Prevention"}}To lower the risk of {{$.Disease}}: {{bullets .}}.` +
				`{{else}}Prevention information for {{.Disease}} is coming soon.{{end}}`,
		},
		{
			Name:     IntentTreatment,
			Keywords: []string{"treat", "cure", "medic", "therapy"},
			Template: `{{with .Section "Treatment"}}Treatment of {{$.Disease}}: {{bullets .}}.` +
				`{{else}}Treatment information for {{.Disease}} is coming soon.{{end}}`,
		},
		{
			Name:     IntentForecast,
			Keywords: []string{"forecast", "predict", "future", "expect", "next"},
			Template: `{{with .Outlook}}Over the next {{.Days}} days {{$.Disease}} cases in {{$.Country}} are projected ` +
				`to move from {{num .FirstCases}} on {{date .FirstDate}} to {{num .LastCases}} on {{date .LastDate}} ` +
				`(confidence {{pct .Confidence}}).{{else}}A forecast for {{.Disease}} in {{.Country}} is not available.{{end}}`,
		},
		{
			Name:     IntentMortality,
			Keywords: []string{"death", "mortality", "died", "fatal"},
			Template: `{{with .Summary}}{{$.Disease}} in {{$.Country}} has {{num .TotalDeaths}} recorded deaths, ` +
				`a mortality rate of {{printf "%.2f" .MortalityRate}}%.{{else}}{{template "nodata" $}}{{end}}`,
		},
		{
			Name:     IntentPeak,
			Keywords: []string{"peak", "highest", "worst", "maximum"},
			Template: `{{with .Summary}}Cases of {{$.Disease}} in {{$.Country}} peaked at {{num .PeakCases}} ` +
				`on {{date .PeakDate}}.{{else}}{{template "nodata" $}}{{end}}`,
		},
		{
			Name:     IntentTrend,
			Keywords: []string{"trend", "increas", "decreas", "rising", "falling", "growing"},
			Template: `{{with .Summary}}{{$.Disease}} cases in {{$.Country}} are {{.Trend}}` +
				`{{with .YearOverYearChange}}, {{change .}} against the previous record{{end}}.` +
				`{{else}}{{template "nodata" $}}{{end}}`,
		},
		{
			Name:     IntentLatest,
			Keywords: []string{"latest", "recent", "current", "today"},
			Template: `{{with .Summary}}The latest record for {{$.Disease}} in {{$.Country}} on {{date .LatestDate}} ` +
				`shows {{num .LatestCases}} cases and {{num .LatestDeaths}} deaths.{{else}}{{template "nodata" $}}{{end}}`,
		},
		{
			Name:     IntentTotal,
			Keywords: []string{"total", "how many", "cases", "number"},
			Template: `{{with .Summary}}{{$.Disease}} in {{$.Country}} has {{num .TotalCases}} total cases and ` +
				`{{num .TotalDeaths}} total deaths across {{.Records}} records.{{else}}{{template "nodata" $}}{{end}}`,
		},
	}
}
