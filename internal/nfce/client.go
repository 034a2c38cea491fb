package nfce

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/despensaapp/despensa/internal/config"
	"github.com/despensaapp/despensa/internal/errors"
	"github.com/despensaapp/despensa/internal/metrics"
	"github.com/despensaapp/despensa/internal/receipt"
)

// baDanfeURL serves the full DANFE for Bahia receipts whose primary page
// is only a synthetic summary.
const baDanfeURL = "http://nfe.sefaz.ba.gov.br/servicos/nfce/Modulos/Geral/NFCEC_consulta_danfe.aspx"

const maxBodyBytes = 5 << 20

// Client fetches SEFAZ verification pages directly and extracts products
// from them. Requests are rate limited and guarded by a circuit breaker
// so a flapping portal does not get hammered.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
	extractor *receipt.Extractor
	opts      receipt.Options
	category  string
	userAgent string
	danfeBase string
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewClient builds a direct consultation client from config.
func NewClient(cfg config.SefazConfig, opts receipt.Options, table *receipt.CategoryTable, m *metrics.Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		table = receipt.DefaultCategoryTable()
	}

	threshold := cfg.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "sefaz",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 30
	}

	return &Client{
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		breaker:   breaker,
		extractor: receipt.NewExtractor(opts, table, logger),
		opts:      opts,
		category:  table.Default,
		userAgent: cfg.UserAgent,
		danfeBase: baDanfeURL,
		metrics:   m,
		logger:    logger,
	}
}

// Consult validates the scanned URL, fetches the verification page and
// extracts its products. Extraction itself never fails once the page is
// in hand; a page with nothing recognizable yields an empty list.
func (c *Client) Consult(ctx context.Context, scanned string) ([]receipt.Product, string, error) {
	normalized, params, err := NormalizeAndValidate(scanned)
	if err != nil {
		return nil, "", err
	}

	body, err := c.fetch(ctx, normalized)
	if err != nil {
		return nil, normalized, errors.Wrap(err, errors.ErrRemoteFetchFailed.Code,
			fmt.Sprintf("failed to fetch %s", normalized))
	}

	products := c.extractBody(ctx, normalized, params, string(body))

	outcome := "ok"
	if len(products) == 0 {
		outcome = "empty"
	}
	c.metrics.RecordExtraction("html", outcome, len(products))

	return products, normalized, nil
}

// extractBody picks the extraction path for a fetched page. Synthetic
// summary pages from Bahia trigger one secondary fetch of the full DANFE;
// if that also fails the original body goes through flat-text extraction
// so the call still terminates with whatever could be salvaged.
func (c *Client) extractBody(ctx context.Context, normalized string, params *URLParams, body string) []receipt.Product {
	if IsSynthetic(body) {
		c.logger.Debug("synthetic summary page detected", zap.String("url", normalized))

		if strings.Contains(normalized, "sefaz.ba.gov.br") && params != nil {
			danfe := c.danfeBase + "?p=" + params.Raw
			full, err := c.fetch(ctx, danfe)
			if err == nil && !IsSynthetic(string(full)) {
				return c.parseDocument(string(full))
			}
			if err != nil {
				c.logger.Warn("secondary danfe fetch failed", zap.Error(err))
			}
		}

		return c.extractor.ExtractFromText(body, receipt.ModeHTML)
	}

	return c.parseDocument(body)
}

// parseDocument tries the structural table extractor first and falls back
// to flat-text line extraction when the page has no recognizable rows.
func (c *Client) parseDocument(body string) []receipt.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err == nil {
		products, perr := ExtractFromDocument(doc, c.opts, c.category)
		if perr == nil {
			return products
		}
	}

	return c.extractor.ExtractFromText(body, receipt.ModeHTML)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doFetch(ctx, url)
	})
	c.metrics.ObserveSefazFetch(time.Since(start).Seconds())

	return body, err
}

func (c *Client) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
