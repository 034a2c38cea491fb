package receipt

import (
	"regexp"
	"strings"
)

// Header, footer, total and tax-id lines. A match alone is not conclusive:
// real item rows occasionally carry one of these words.
var denylistRe = regexp.MustCompile(`(?i)total|subtotal|desconto|imposto|cnpj|cpf|nota fiscal|chave`)

// Classify decides what a line is. hasOpen tells the classifier whether an
// open product exists for a continuation to attach to.
//
// A denylist line with no price is always noise. A denylist line that does
// carry a price is still noise when nothing but the keyword remains after
// stripping amounts and digits ("TOTAL R$ 16,50"); if substantive text
// remains, the price wins and the line is a product.
func Classify(line string, hasOpen bool, opts Options) LineClass {
	line = strings.TrimSpace(line)
	if line == "" {
		return LineSkip
	}

	priced := HasPrice(line)

	if denylistRe.MatchString(line) {
		if !priced {
			return LineNoise
		}
		residual := denylistRe.ReplaceAllString(StripDigits(StripAmounts(line)), "")
		residual = strings.Trim(residual, " -:.,")
		if len([]rune(residual)) <= 2 {
			return LineNoise
		}
	}

	if priced {
		return LineProductStart
	}

	if hasOpen && len([]rune(line)) > opts.MinContinuationLen {
		return LineContinuation
	}

	return LineSkip
}
