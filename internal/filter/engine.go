// Package filter implements the ad matching engine.
package filter

import (
	"strings"

	"elan_bot/internal/model"
)

// Allowed reports whether an ad passes the user's reject rules. An ad is
// rejected if any title rule is a case-insensitive substring of its title,
// or any location rule of its location. Empty rule lists allow everything.
func Allowed(ad model.Ad, rules model.FilterRules) bool {
	title := strings.ToLower(ad.Title)
	for _, r := range rules.Title {
		if strings.Contains(title, strings.ToLower(r)) {
			return false
		}
	}

	location := strings.ToLower(ad.Location)
	for _, r := range rules.Location {
		if strings.Contains(location, strings.ToLower(r)) {
			return false
		}
	}

	return true
}
