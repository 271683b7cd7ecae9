// Package alert formats and delivers price-drop notifications.
package alert

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Alert is one offer whose price dropped to or below its threshold.
type Alert struct {
	Product  string
	OfferID  string
	Price    float64
	MinPrice float64
	URL      string
}

// Dedup removes repeated (product, offer) pairs, keeping first occurrence.
func Dedup(alerts []Alert) []Alert {
	seen := make(map[string]bool, len(alerts))
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		key := a.Product + "\x00" + a.OfferID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// Subject renders the message subject. An empty template uses the default
// Polish subject line with the alert count and timestamp.
func Subject(template string, count int, now time.Time) string {
	if template != "" {
		return template
	}
	return fmt.Sprintf("[ALLEGRO] Zaniżone ceny: %d aukcje/aukcji (%s)",
		count, now.Format("2006-01-02 15:04:05"))
}

// Body renders the plain-text message body: a short header followed by one
// line per alert.
func Body(alerts []Alert, now time.Time) string {
	hostname, _ := os.Hostname()

	var b strings.Builder
	fmt.Fprintf(&b, "Znaleziono %d zaniżonych pozycji.\n", len(alerts))
	fmt.Fprintf(&b, "Host: %s\n", hostname)
	fmt.Fprintf(&b, "Czas: %s\n\n", now.Format("2006-01-02 15:04:05"))
	for _, a := range alerts {
		fmt.Fprintf(&b, "• %s | aukcja %s | cena: %.2f zł (min: %.2f zł)\n",
			a.Product, a.OfferID, a.Price, a.MinPrice)
		if a.URL != "" {
			fmt.Fprintf(&b, "  %s\n", a.URL)
		}
	}
	return b.String()
}
