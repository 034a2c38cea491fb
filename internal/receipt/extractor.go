package receipt

import (
	"strings"

	"go.uber.org/zap"
)

// Extractor folds a noisy line stream into structured products. One
// Extractor is safe for concurrent use; each call carries its own
// accumulator state.
type Extractor struct {
	opts   Options
	table  *CategoryTable
	logger *zap.Logger
}

// NewExtractor creates an extractor. A nil table falls back to the built-in
// category keywords.
func NewExtractor(opts Options, table *CategoryTable, logger *zap.Logger) *Extractor {
	if table == nil {
		table = DefaultCategoryTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		opts:   opts,
		table:  table,
		logger: logger,
	}
}

// ExtractFromText runs the flat-text heuristic pipeline: tokenize, classify,
// assemble. Heuristic misses on individual lines are silently skipped; the
// call itself never fails.
//
// In plain (OCR) mode an empty result degrades to a single placeholder row
// when PlaceholderOnEmpty is set, so the review UI always has something to
// correct.
func (e *Extractor) ExtractFromText(text string, mode Mode) []Product {
	lines := Tokenize(text, mode, e.opts.MinHTMLLineLen)
	products := e.assemble(lines)

	e.logger.Debug("flat-text extraction finished",
		zap.String("mode", string(mode)),
		zap.Int("lines", len(lines)),
		zap.Int("products", len(products)),
	)

	if len(products) == 0 && mode == ModePlain && e.opts.PlaceholderOnEmpty {
		return []Product{{
			Name:        "Produto Extraído 1",
			Description: "Descrição do produto extraído da nota",
			Price:       10.50,
			Stock:       1,
			Category:    e.table.Default,
		}}
	}

	return products
}

// assemble folds the classified line stream into products. The accumulator
// is a single open-product slot plus the positional category state and the
// most recent unattached text line, kept so that receipts printing the item
// name and the price on separate rows still pair up.
func (e *Extractor) assemble(lines []string) []Product {
	var products []Product
	var current *Product
	var orphan string
	var lastAppended string

	cat := e.table.NewState()

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		class := Classify(line, current != nil, e.opts)
		if class == LineNoise {
			continue
		}

		cat.Observe(line)

		switch class {
		case LineProductStart:
			price, ok := ParsePrice(line)
			if !ok || price <= 0 {
				continue
			}

			qty := ParseQuantity(line)
			name := TruncateName(StripAmounts(line), e.opts.MaxNameLen)

			if len([]rune(name)) <= 2 {
				// Price on its own row; the name is the line just above it,
				// which by now sits either unattached or at the tail of the
				// open product's description.
				candidate := orphan
				fromDescription := false
				if current != nil && lastAppended != "" {
					candidate = lastAppended
					fromDescription = true
				}
				if candidate == "" {
					continue
				}

				name = TruncateName(StripAmounts(candidate), e.opts.MaxNameLen)
				if !quantityRe.MatchString(line) {
					qty = ParseQuantity(candidate)
				}
				if fromDescription {
					current.Description = strings.TrimSpace(strings.TrimSuffix(current.Description, candidate))
				}
			}

			if len([]rune(name)) <= 2 {
				continue
			}

			if current != nil {
				products = append(products, *current)
			}
			current = &Product{
				Name:     name,
				Price:    price,
				Stock:    qty,
				Category: cat.Current(),
			}
			orphan = ""
			lastAppended = ""

		case LineContinuation:
			if current.Description != "" {
				current.Description += " "
			}
			current.Description += line
			lastAppended = line

		case LineSkip:
			if line != "" && !HasPrice(line) {
				orphan = line
			}
		}
	}

	if current != nil {
		products = append(products, *current)
	}

	return products
}
