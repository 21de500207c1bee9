package scrape

import (
	nurl "net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// extract pulls the title and readable text out of a page's HTML.
func extract(html string, pageURL *nurl.URL) (title, text string, err error) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(article.Title), strings.TrimSpace(article.TextContent), nil
}
