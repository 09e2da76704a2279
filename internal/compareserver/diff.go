package compareserver

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// normalizeDOM reduces a serialized DOM to comparable text: scripts, styles
// and comments stripped, whitespace collapsed. Non-HTML blobs (native-app
// XML dumps, structured serializer output) fall back to whitespace
// collapsing only.
func normalizeDOM(dom string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(dom))
	if err != nil {
		return collapseWhitespace(dom)
	}

	doc.Find("script,style,noscript").Remove()
	html, err := doc.Html()
	if err != nil {
		return collapseWhitespace(dom)
	}
	return collapseWhitespace(html)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// changePercent measures how much of the DOM changed between two uploads,
// as a 0-100 ratio of edited characters over the larger input.
func changePercent(prev, next string) float64 {
	if prev == next {
		return 0
	}
	longer := len(prev)
	if len(next) > longer {
		longer = len(next)
	}
	if longer == 0 {
		return 0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(prev, next, false)
	edited := dmp.DiffLevenshtein(diffs)

	return float64(edited) / float64(longer) * 100
}
