package nfce

import (
	"context"

	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/receipt"
)

// Service resolves a scanned QR code to a product list. Exactly one
// strategy runs per call: the proxied backend when one is configured,
// the direct SEFAZ client otherwise. A backend failure is surfaced as
// is, never silently retried against the portal.
type Service struct {
	direct  *Client
	backend *BackendClient
	logger  *zap.Logger
}

// NewService wires the consultation strategies. backend may be nil.
func NewService(direct *Client, backend *BackendClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{direct: direct, backend: backend, logger: logger}
}

// Consult returns the extracted products and the normalized receipt URL.
func (s *Service) Consult(ctx context.Context, scanned, token string) ([]receipt.Product, string, error) {
	if s.backend != nil {
		normalized, _, err := NormalizeAndValidate(scanned)
		if err != nil {
			return nil, "", err
		}
		products, err := s.backend.Consult(ctx, normalized, token)
		return products, normalized, err
	}

	return s.direct.Consult(ctx, scanned)
}
