package scrape

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"github.com/offerwatch/offerwatch/pkg/watchlist"
)

var (
	rePLN     = regexp.MustCompile(`(\d{1,3}(?:[ \x{00A0}.]\d{3})*(?:[.,]\d{2}))\s*zł`)
	reCaptcha = regexp.MustCompile(`(?is)captcha|nie\s*jesteś\s*robotem|przepraszamy.*zabezpieczenie`)
	reEnded   = regexp.MustCompile(`(?i)zakończon|usunięt|oferta\s+nie\s+istnieje`)
)

// ExtractPrice finds the offer price in a page. JSON-LD offer metadata
// wins; otherwise the lowest "NNN,NN zł" literal in the text is used.
func ExtractPrice(page string) (float64, error) {
	if p, ok := priceFromJSONLD(page); ok {
		return p, nil
	}
	if p, ok := priceFromText(page); ok {
		return p, nil
	}
	return 0, ErrNoPrice
}

// SuspectsCaptcha reports whether the page body looks like a captcha
// challenge or an anti-bot interstitial.
func SuspectsCaptcha(page string) bool {
	return reCaptcha.MatchString(page)
}

// LooksEnded reports whether the page body carries ended-offer markers.
func LooksEnded(page string) bool {
	return reEnded.MatchString(page)
}

// jsonLDBlocks returns the raw contents of every
// <script type="application/ld+json"> element in the document.
func jsonLDBlocks(page string) []string {
	var blocks []string
	z := html.NewTokenizer(strings.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return blocks
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" {
				continue
			}
			isLD := false
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				if string(k) == "type" && strings.EqualFold(strings.TrimSpace(string(v)), "application/ld+json") {
					isLD = true
				}
			}
			if !isLD {
				continue
			}
			if z.Next() == html.TextToken {
				blocks = append(blocks, string(z.Text()))
			}
		}
	}
}

// priceFromJSONLD scans JSON-LD blocks for an Offer or AggregateOffer
// node and returns its price, lowPrice, or highPrice.
func priceFromJSONLD(page string) (float64, bool) {
	for _, block := range jsonLDBlocks(page) {
		if !gjson.Valid(block) {
			continue
		}
		if p, ok := scanOfferNode(gjson.Parse(block)); ok {
			return p, true
		}
	}
	return 0, false
}

// scanOfferNode walks a JSON-LD value depth-first looking for offer nodes.
func scanOfferNode(node gjson.Result) (float64, bool) {
	if node.IsObject() {
		typ := node.Get("@type").String()
		if typ == "Offer" || typ == "AggregateOffer" {
			for _, key := range []string{"price", "lowPrice", "highPrice"} {
				v := node.Get(key)
				if !v.Exists() {
					continue
				}
				if p, err := watchlist.ParsePrice(v.String()); err == nil {
					return p, true
				}
			}
		}
	}
	if !node.IsObject() && !node.IsArray() {
		return 0, false
	}
	var price float64
	found := false
	node.ForEach(func(_, value gjson.Result) bool {
		if p, ok := scanOfferNode(value); ok {
			price, found = p, true
			return false
		}
		return true
	})
	return price, found
}

// priceFromText returns the lowest zloty amount mentioned in the page.
func priceFromText(page string) (float64, bool) {
	matches := rePLN.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		return 0, false
	}
	var lowest float64
	found := false
	for _, m := range matches {
		p, err := watchlist.ParsePrice(m[1])
		if err != nil {
			continue
		}
		if !found || p < lowest {
			lowest = p
			found = true
		}
	}
	return lowest, found
}
