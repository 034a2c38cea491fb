// Package nfce consults Brazilian NFCe fiscal receipts: it validates the
// URL encoded in the receipt's QR code, fetches the SEFAZ verification page
// and extracts the purchased line items from it.
package nfce

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/despensaapp/despensa/internal/errors"
)

// URLParams holds the pipe-delimited fields of the NFCe "p" query
// parameter. Raw keeps the full original value so alternate fetch URLs can
// be reconstructed from it.
type URLParams struct {
	AccessKey   string
	Version     string
	Environment string
	Raw         string
}

var schemeRe = regexp.MustCompile(`(?i)^https?://`)

// fiscal verification hosts always carry one of these markers
var fiscalMarkers = []string{"sefaz", "nfce", "nfe"}

// Normalize validates that a scanned string is a plausible fiscal receipt
// URL and returns it with an https scheme. A QR code for anything other
// than a fiscal document, or a truncated scan with no query parameters,
// fails with ErrInvalidReceiptURL.
func Normalize(scanned string) (string, error) {
	scanned = strings.TrimSpace(scanned)
	if scanned == "" {
		return "", errors.Wrap(nil, errors.ErrInvalidReceiptURL.Code, "empty QR code content")
	}

	if !schemeRe.MatchString(scanned) {
		scanned = "https://" + scanned
	}

	u, err := url.Parse(scanned)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidReceiptURL.Code, fmt.Sprintf("unparseable URL %q", scanned))
	}

	target := strings.ToLower(u.Host + u.Path)
	found := false
	for _, marker := range fiscalMarkers {
		if strings.Contains(target, marker) {
			found = true
			break
		}
	}
	if !found {
		return "", errors.Wrap(nil, errors.ErrInvalidReceiptURL.Code,
			fmt.Sprintf("%q does not look like a fiscal receipt URL", scanned))
	}

	if u.RawQuery == "" || len(u.Query()) == 0 {
		return "", errors.Wrap(nil, errors.ErrInvalidReceiptURL.Code,
			fmt.Sprintf("%q has no query parameters; the QR scan is likely incomplete", scanned))
	}

	return u.String(), nil
}

// ParseParams extracts the pipe-delimited fields from the "p" parameter of
// a normalized NFCe URL. Fails when the parameter is absent or carries
// fewer than 4 fields.
func ParseParams(normalized string) (*URLParams, error) {
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidReceiptURL.Code, "unparseable URL")
	}

	p := u.Query().Get("p")
	if p == "" {
		return nil, errors.Wrap(nil, errors.ErrInvalidReceiptURL.Code, "missing 'p' parameter")
	}

	parts := strings.Split(p, "|")
	if len(parts) < 4 {
		return nil, errors.Wrap(nil, errors.ErrInvalidReceiptURL.Code,
			fmt.Sprintf("expected at least 4 pipe-delimited fields, found %d", len(parts)))
	}

	return &URLParams{
		AccessKey:   parts[0],
		Version:     parts[1],
		Environment: parts[2],
		Raw:         p,
	}, nil
}

// NormalizeAndValidate combines Normalize and ParseParams.
func NormalizeAndValidate(scanned string) (string, *URLParams, error) {
	normalized, err := Normalize(scanned)
	if err != nil {
		return "", nil, err
	}

	params, err := ParseParams(normalized)
	if err != nil {
		return "", nil, err
	}

	return normalized, params, nil
}
