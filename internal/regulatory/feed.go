package regulatory

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"
)

// errNotFeed marks payloads that are not RSS or Atom, so the caller can
// fall back to scraping headlines from HTML
var errNotFeed = errors.New("not an RSS or Atom feed")

// entry is one item of a parsed feed
type entry struct {
	Title       string
	Link        string
	Description string // HTML or plain text as published
	Published   *time.Time
}

// parseFeed auto-detects and parses RSS 2.0, RSS 1.0 (RDF) or Atom 1.0
func parseFeed(data []byte) ([]entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("feed: empty data")
	}

	switch detectFormat(trimmed) {
	case "rss":
		return parseRSS(trimmed)
	case "rdf":
		return parseRDF(trimmed)
	case "atom":
		return parseAtom(trimmed)
	default:
		return nil, errNotFeed
	}
}

func detectFormat(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss":
				return "rss"
			case "rdf":
				return "rdf"
			case "feed":
				return "atom"
			}
			return ""
		}
	}
}

// --- RSS 2.0 ---

type rssRoot struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	Content     string `xml:"encoded"` // content:encoded
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"` // dc:date
}

func parseRSS(data []byte) ([]entry, error) {
	var root rssRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("feed: parse rss: %w", err)
	}
	return rssEntries(root.Channel.Items), nil
}

// --- RSS 1.0 ---

type rdfRoot struct {
	XMLName xml.Name  `xml:"RDF"`
	Items   []rssItem `xml:"item"`
}

func parseRDF(data []byte) ([]entry, error) {
	var root rdfRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("feed: parse rdf: %w", err)
	}
	return rssEntries(root.Items), nil
}

func rssEntries(items []rssItem) []entry {
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" && strings.HasPrefix(strings.TrimSpace(item.GUID), "http") {
			link = strings.TrimSpace(item.GUID)
		}

		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			desc = strings.TrimSpace(item.Content)
		}

		published := item.PubDate
		if strings.TrimSpace(published) == "" {
			published = item.Date
		}

		entries = append(entries, entry{
			Title:       strings.TrimSpace(item.Title),
			Link:        link,
			Description: desc,
			Published:   parseDate(published),
		})
	}
	return entries
}

// --- Atom 1.0 ---

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	Title     string      `xml:"title"`
	Links     []atomLink  `xml:"link"`
	Summary   string      `xml:"summary"`
	Content   atomContent `xml:"content"`
	Published string      `xml:"published"`
	Updated   string      `xml:"updated"`
}

type atomContent struct {
	Body string `xml:",chardata"`
	Type string `xml:"type,attr"`
}

func parseAtom(data []byte) ([]entry, error) {
	var root atomFeed
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("feed: parse atom: %w", err)
	}

	entries := make([]entry, 0, len(root.Entries))
	for _, e := range root.Entries {
		desc := strings.TrimSpace(e.Summary)
		if desc == "" {
			desc = strings.TrimSpace(e.Content.Body)
		}

		published := e.Published
		if strings.TrimSpace(published) == "" {
			published = e.Updated
		}

		entries = append(entries, entry{
			Title:       strings.TrimSpace(e.Title),
			Link:        atomEntryLink(e.Links),
			Description: desc,
			Published:   parseDate(published),
		})
	}
	return entries, nil
}

func atomEntryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "alternate" || l.Rel == "" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate accepts the date formats seen in RSS and Atom feeds
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
