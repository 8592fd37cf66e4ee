package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"elan_bot/internal/model"
)

const tapBaseURL = "https://tap.az"

// ParseTap extracts ads from a tap.az listing page. Containers missing a
// title or link are skipped.
func ParseTap(markup string) ([]model.Ad, error) {
	doc, err := parseDocument(markup)
	if err != nil {
		return nil, err
	}

	var ads []model.Ad
	doc.Find("div.products-i").EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= maxAds {
			return false
		}

		title := strings.TrimSpace(item.Find("div.products-name").First().Text())
		if title == "" {
			return true
		}

		href, ok := item.Find("a.products-link").First().Attr("href")
		if !ok || href == "" {
			return true
		}

		price := strings.TrimSpace(item.Find("div.products-price").First().Text())
		if price == "" {
			price = priceUnknown
		}

		// tap.az shows the city and posting time in the "created" block.
		location := strings.TrimSpace(item.Find("div.products-created").First().Text())
		if location == "" {
			location = locationUnknown
		}

		var photo string
		if img := item.Find("img").First(); img.Length() > 0 {
			photo = photoURL(img)
		}

		ads = append(ads, model.Ad{
			Title:    title,
			Location: location,
			Price:    price,
			PhotoURL: photo,
			Link:     absoluteURL(tapBaseURL, href),
		})
		return true
	})

	return ads, nil
}
