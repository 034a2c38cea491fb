package nfce

import (
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/despensaapp/despensa/internal/receipt"
)

// ErrNoProductRows is returned when the fetched page carries no element
// that looks like a product row. Callers fall back to flat-text extraction.
var ErrNoProductRows = errors.New("no product rows found in document")

// productRowSelector matches the markup variants seen across state SEFAZ
// portals. Most render a plain table, a few use class or id based layouts.
const productRowSelector = "table tr, .produto, .item-produto, " +
	"[class*='produto'], [class*='item'], [id*='produto'], [id*='item'], " +
	".linhaProduto, tr[class*='Item']"

var (
	headerWordRe = regexp.MustCompile(`(?i)descri|produto|valor|total|subtotal|imposto`)
	decimalRe    = regexp.MustCompile(`\d+[.,]\d{2}`)
	syntheticRe  = regexp.MustCompile(`Sintetico|sintético`)
)

// IsSynthetic reports whether the page is a placeholder summary rather
// than a full DANFE. Some portals serve these for recent receipts.
func IsSynthetic(body string) bool {
	return syntheticRe.MatchString(body)
}

// ExtractFromDocument walks every candidate product row of a SEFAZ page
// and builds one product per row that carries a price. Header rows and
// rows with fewer than 3 cells are skipped. Categories are not encoded in
// the portal markup, so every product gets the table default.
func ExtractFromDocument(doc *goquery.Document, opts receipt.Options, category string) ([]receipt.Product, error) {
	rows := doc.Find(productRowSelector)
	if rows.Length() == 0 {
		return nil, ErrNoProductRows
	}

	var products []receipt.Product
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() == 0 {
			// class-based layouts render cells as plain child elements
			cells = row.Children()
		}
		if cells.Length() < 3 {
			return
		}

		// Join cell by cell: goquery's Text() concatenates text nodes
		// with no separator, which would glue "2 un" onto the next cell.
		var parts []string
		cells.Each(func(_ int, cell *goquery.Selection) {
			if part := strings.Join(strings.Fields(cell.Text()), " "); part != "" {
				parts = append(parts, part)
			}
		})
		text := strings.Join(parts, " ")
		if headerWordRe.MatchString(text) && !decimalRe.MatchString(text) {
			return
		}

		price, ok := receipt.ParsePrice(text)
		if !ok || price <= 0 {
			return
		}

		name := receipt.TruncateName(receipt.StripDigits(receipt.StripAmounts(text)), opts.MaxNameLen)
		if len([]rune(name)) <= 2 {
			return
		}

		products = append(products, receipt.Product{
			Name:        name,
			Description: name,
			Price:       price,
			Stock:       receipt.ParseQuantity(text),
			Category:    category,
		})
	})

	if len(products) == 0 {
		return nil, ErrNoProductRows
	}
	return products, nil
}
