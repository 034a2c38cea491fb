package nfce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/errors"
	"github.com/despensaapp/despensa/internal/receipt"
)

// BackendClient delegates receipt consultation to a remote despensa
// backend instead of talking to the tax authority directly. Deployments
// behind restrictive networks use this so only one host fetches from
// SEFAZ.
type BackendClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewBackendClient builds a proxied consultation client. baseURL is the
// backend root without a trailing slash.
func NewBackendClient(baseURL string, timeout time.Duration, logger *zap.Logger) *BackendClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type consultRequest struct {
	QRCodeURL string `json:"qrCodeUrl"`
}

type consultResponse struct {
	Products []receipt.Product `json:"products"`
	Message  string            `json:"message"`
}

// Consult posts the QR code URL to the backend's consult endpoint. A 404
// whose message talks about products means the receipt was read but had
// no extractable items and maps to an empty list; any other 404 means the
// backend route itself is missing and is reported as a fetch failure.
func (b *BackendClient) Consult(ctx context.Context, qrCodeURL, token string) ([]receipt.Product, error) {
	payload, err := json.Marshal(consultRequest{QRCodeURL: qrCodeURL})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to encode consult request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/api/nfce/consult", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to build consult request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRemoteFetchFailed.Code,
			"could not reach the consultation backend")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRemoteFetchFailed.Code,
			"failed to read backend response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var out consultResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, errors.Wrap(err, errors.ErrRemoteFetchFailed.Code,
				"backend returned malformed JSON")
		}
		return out.Products, nil

	case resp.StatusCode == http.StatusNotFound:
		var out consultResponse
		_ = json.Unmarshal(body, &out)
		msg := strings.ToLower(out.Message)
		if strings.Contains(msg, "produto") || strings.Contains(msg, "nenhum") {
			b.logger.Debug("backend found no products", zap.String("message", out.Message))
			return []receipt.Product{}, nil
		}
		return nil, errors.Wrap(nil, errors.ErrRemoteFetchFailed.Code,
			"backend consult endpoint not found; check the backend URL")

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Wrap(nil, errors.ErrRemoteFetchFailed.Code,
			fmt.Sprintf("backend rejected credentials (status %d)", resp.StatusCode))

	default:
		return nil, errors.Wrap(nil, errors.ErrRemoteFetchFailed.Code,
			fmt.Sprintf("backend returned status %d", resp.StatusCode))
	}
}
