package v4

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/scraper"
)

// The functions in this file hold the actual HTML-interpretation logic
// for the 4.x family, separated from page navigation so they can be
// exercised directly against static HTML fixtures.

func parseLoginError(doc *goquery.Document, sel Selectors) string {
	banner := doc.Find(sel.LoginErrorBanner).First()
	if banner.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(banner.Text())
}

func parseDetectedVersion(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(".versao-sistema").First().Text())
}

func parseProcessRefs(doc *goquery.Document, sel Selectors) []scraper.ProcessRef {
	var refs []scraper.ProcessRef
	doc.Find(sel.ProcessRow).Each(func(_ int, row *goquery.Selection) {
		number := strings.TrimSpace(row.Find(sel.ProcessRowNumber).First().Text())
		linkID, exists := row.Find(sel.ProcessRowLinkID).First().Attr("data-link-id")
		if number == "" || !exists {
			return
		}
		refs = append(refs, scraper.ProcessRef{ProcessNumber: number, LinkID: linkID})
	})
	return refs
}

func parseAccessType(doc *goquery.Document, sel Selectors) models.AccessType {
	if doc.Find(sel.AccessDeniedBanner).Length() > 0 {
		return models.AccessError
	}
	if doc.Find(sel.AccessPartialBanner).Length() > 0 {
		return models.AccessPartial
	}
	return models.AccessIntegral
}

func parseAuthority(doc *goquery.Document, sel Selectors) string {
	return strings.TrimSpace(doc.Find(sel.AuthorityField).First().Text())
}

func parseDocumentRefs(doc *goquery.Document, sel Selectors) []scraper.DocumentRef {
	var refs []scraper.DocumentRef
	doc.Find(sel.DocumentRow).Each(func(_ int, row *goquery.Selection) {
		number := strings.TrimSpace(row.Find(sel.DocumentNumberCell).First().Text())
		if number == "" {
			return
		}
		refs = append(refs, scraper.DocumentRef{
			Number: number,
			Type:   strings.TrimSpace(row.Find(sel.DocumentTypeCell).First().Text()),
			Date:   strings.TrimSpace(row.Find(sel.DocumentDateCell).First().Text()),
			Signer: strings.TrimSpace(row.Find(sel.DocumentSignerCell).First().Text()),
		})
	})
	return refs
}

// parseAccessType420 implements the 4.2.0 override, where the banner
// classes moved onto <body> instead of a dedicated element.
func parseAccessType420(doc *goquery.Document, sel Selectors) (models.AccessType, bool) {
	body := doc.Find("body")
	if body.HasClass("sem-acesso") {
		return models.AccessError, true
	}
	if body.HasClass("acesso-parcial") {
		return models.AccessPartial, true
	}
	if doc.Find(sel.DocumentRow).Length() == 0 {
		return "", false
	}
	return models.AccessIntegral, true
}
