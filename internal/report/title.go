package report

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/0x6d61/rawget/internal/transport"
)

// PageTitle returns the trimmed <title> of an HTML response body. It
// returns "" when the response is not text/html or carries no title.
func PageTitle(resp *transport.Response) string {
	if resp == nil || len(resp.Body) == 0 {
		return ""
	}
	if !strings.Contains(strings.ToLower(resp.Header("content-type")), "text/html") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
