package scraper

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func cleanText(value string) string {
	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

func absoluteURL(base string, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

func parsePostedAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	layouts := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01-02T15:04:05-0700",
		"02/01/2006",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %s", value)
}

// firstMatch returns the first selector in chain that matches under root.
func firstMatch(root *goquery.Selection, chain []string) (*goquery.Selection, string) {
	for _, selector := range chain {
		found := root.Find(selector)
		if found.Length() > 0 {
			return found, selector
		}
	}
	return nil, ""
}

// firstText walks chain and returns the first non-empty element text.
func firstText(root *goquery.Selection, chain []string) string {
	for _, selector := range chain {
		if text := cleanText(root.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr walks chain and returns the first non-empty attribute value.
func firstAttr(root *goquery.Selection, chain []string, attr string) string {
	for _, selector := range chain {
		if value, ok := root.Find(selector).First().Attr(attr); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// cardAttr reads attr from the card itself, then from its first descendant carrying it.
func cardAttr(card *goquery.Selection, attr string) string {
	if value, ok := card.Attr(attr); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	if value, ok := card.Find("[" + attr + "]").First().Attr(attr); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
