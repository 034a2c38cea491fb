package receipt

// Product is a line item extracted from a fiscal receipt. It is the review
// payload handed back to the caller; nothing here is persisted until the
// user confirms the batch.
type Product struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	Stock          int     `json:"stock"`
	ExpirationDate *string `json:"expiration_date"`
	Category       string  `json:"category"`
}

// Mode selects the tokenizer behavior for a document
type Mode string

const (
	ModeHTML  Mode = "html"
	ModePlain Mode = "plain"
)

// LineClass is the classifier verdict for a single line
type LineClass int

const (
	// LineSkip means the line matched nothing usable
	LineSkip LineClass = iota
	// LineNoise is a header/footer/total/tax line
	LineNoise
	// LineProductStart carries a price and opens a new product
	LineProductStart
	// LineContinuation extends the open product's description
	LineContinuation
)

// Options holds the extraction tunables. Thresholds are heuristics, not
// contracts; DefaultOptions matches observed receipt layouts.
type Options struct {
	MinHTMLLineLen     int
	MinContinuationLen int
	MaxNameLen         int
	PlaceholderOnEmpty bool
}

func DefaultOptions() Options {
	return Options{
		MinHTMLLineLen:     10,
		MinContinuationLen: 5,
		MaxNameLen:         100,
		PlaceholderOnEmpty: true,
	}
}
