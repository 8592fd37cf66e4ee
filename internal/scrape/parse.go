package scrape

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"elan_bot/internal/model"
)

// maxAds caps how many listing containers are processed per page, bounding
// per-cycle work and outbound message volume.
const maxAds = 10

// Placeholder values for optional fields that did not resolve.
const (
	priceUnknown    = "Price not specified"
	locationUnknown = "Location not specified"
)

// Parse extracts ads from markup using the given source's rules. A page
// with no listing containers yields an empty slice; only markup that
// cannot be parsed at all is an error.
func Parse(source model.Source, markup string) ([]model.Ad, error) {
	switch source {
	case model.SourceTap:
		return ParseTap(markup)
	case model.SourceBina:
		return ParseBina(markup)
	}
	return nil, fmt.Errorf("unsupported source %q", source)
}

// SourceForURL returns the source whose site the URL belongs to.
func SourceForURL(url string) (model.Source, error) {
	switch {
	case strings.Contains(url, "tap.az"):
		return model.SourceTap, nil
	case strings.Contains(url, "bina.az"):
		return model.SourceBina, nil
	}
	return "", fmt.Errorf("unsupported site: %s", url)
}

func parseDocument(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return doc, nil
}

// absoluteURL resolves href against the source's origin.
func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return base + href
}

// photoURL picks the lazy-load attribute over src and fixes up
// protocol-relative URLs.
func photoURL(img *goquery.Selection) string {
	u, ok := img.Attr("data-src")
	if !ok || u == "" {
		u, _ = img.Attr("src")
	}
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http") {
		u = "https:" + u
	}
	return u
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
