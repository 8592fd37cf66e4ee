package checker

import (
	"fmt"
	"strings"

	"elan_bot/internal/model"
)

// FormatAd formats an ad as a Telegram notification message.
func FormatAd(ad model.Ad) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 %s\n", ad.Title)
	fmt.Fprintf(&b, "📍 %s\n", ad.Location)
	fmt.Fprintf(&b, "💰 %s\n", ad.Price)
	fmt.Fprintf(&b, "🔗 %s", ad.Link)
	return b.String()
}
