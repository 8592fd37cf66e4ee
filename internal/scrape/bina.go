package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"elan_bot/internal/model"
)

const binaBaseURL = "https://bina.az"

// ParseBina extracts ads from a bina.az listing page. The site encodes
// title and location jointly in the photo caption ("<title> - <location>"),
// so both come out of the first image's alt attribute.
func ParseBina(markup string) ([]model.Ad, error) {
	doc, err := parseDocument(markup)
	if err != nil {
		return nil, err
	}

	items := doc.Find("div.items-i")
	if items.Length() == 0 {
		items = doc.Find("div.items")
	}
	if items.Length() == 0 {
		items = doc.Find("div.items-i-vip")
	}

	var ads []model.Ad
	items.EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= maxAds {
			return false
		}

		img := item.Find("img").First()
		if img.Length() == 0 {
			return true
		}
		caption, _ := img.Attr("alt")
		caption = strings.TrimSpace(caption)
		if caption == "" {
			return true
		}

		title, location := splitCaption(caption)

		href, ok := item.Find("a.item_link").First().Attr("href")
		if !ok || href == "" {
			return true
		}

		price := strings.TrimSpace(item.Find("div.items-price").First().Text())
		if price == "" {
			price = strings.TrimSpace(item.Find("div.price").First().Text())
		}
		if price == "" {
			price = strings.TrimSpace(item.Find("div.items-price-vip").First().Text())
		}
		if price == "" {
			price = priceUnknown
		}

		ads = append(ads, model.Ad{
			Title:    title,
			Location: location,
			Price:    price,
			PhotoURL: photoURL(img),
			Link:     absoluteURL(binaBaseURL, href),
		})
		return true
	})

	return ads, nil
}

// splitCaption separates "<title> - <location>[ - <detail>]" into a title
// and an upper-cased location. Captions without a separator keep the whole
// caption as title.
func splitCaption(caption string) (title, location string) {
	title = caption
	location = locationUnknown

	parts := strings.Split(caption, " - ")
	if len(parts) < 2 {
		return title, location
	}

	location = upperFirst(strings.TrimSpace(parts[1]))
	title = strings.TrimSpace(parts[0])
	if len(parts) > 2 {
		title += " - " + strings.TrimSpace(parts[2])
	}
	return title, location
}
