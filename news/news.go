// Package news builds news search links for a disease selection.
package news

import (
	"net/url"
	"strings"
)

const (
	SearchBase = "https://news.google.com/search"
	FeedBase   = "https://news.google.com/rss/search"
)

// Link is a labelled url
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Query joins the disease and country with spaces replaced by +
func Query(disease, country string) string {
	return plus(disease) + "+" + plus(country)
}

func plus(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = url.QueryEscape(w)
	}
	return strings.Join(words, "+")
}

// SearchURL returns the Google News search page of the selection
func SearchURL(disease, country string) string {
	return SearchBase + "?q=" + Query(disease, country)
}

// FeedURL returns the RSS feed of the same search
func FeedURL(disease, country string) string {
	return FeedBase + "?q=" + Query(disease, country) + "&hl=en"
}

// Links returns the news links shown for a selection
func Links(disease, country string) []Link {
	return []Link{
		{Title: disease + " " + country, URL: SearchURL(disease, country)},
		{Title: disease + " " + country + " (RSS)", URL: FeedURL(disease, country)},
	}
}
