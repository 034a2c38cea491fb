package api

import (
	"os"
	"path/filepath"
	"time"

	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/errors"
	"github.com/despensaapp/despensa/internal/nfce"
	"github.com/despensaapp/despensa/internal/receipt"
)

// noProductsMessage is what clients match on to distinguish "receipt read
// but empty" from a missing route. Keep the wording stable.
const noProductsMessage = "Nenhum produto encontrado na nota fiscal"

func (s *Server) handleConsult(c *fiber.Ctx) error {
	var req struct {
		QRCodeURL string `json:"qrCodeUrl"`
	}

	if err := c.BodyParser(&req); err != nil || req.QRCodeURL == "" {
		return c.Status(400).JSON(fiber.Map{"error": "qrCodeUrl is required"})
	}

	normalized, params, err := nfce.NormalizeAndValidate(req.QRCodeURL)
	if err != nil {
		return s.respondError(c, err)
	}

	if cached, found, cerr := s.store.GetConsult(params.AccessKey); cerr == nil && found {
		s.metrics.RecordCacheHit()
		s.logger.Debug("consult served from cache", zap.String("access_key", params.AccessKey))
		return s.consultResponse(c, normalized, cached)
	}
	s.metrics.RecordCacheMiss()

	token, _ := c.Locals("token").(string)
	products, normalized, err := s.consult.Consult(c.Context(), req.QRCodeURL, token)
	if err != nil {
		return s.respondError(c, err)
	}

	if len(products) > 0 {
		ttl := time.Duration(s.config.Sefaz.CacheTTLHours) * time.Hour
		if ttl == 0 {
			ttl = 24 * time.Hour
		}
		if cerr := s.store.SetConsult(params.AccessKey, products, ttl); cerr != nil {
			s.logger.Warn("failed to cache consult result", zap.Error(cerr))
		}
	}

	return s.consultResponse(c, normalized, products)
}

func (s *Server) consultResponse(c *fiber.Ctx, normalized string, products []receipt.Product) error {
	if len(products) == 0 {
		return c.Status(404).JSON(fiber.Map{"message": noProductsMessage})
	}
	return c.JSON(fiber.Map{"products": products, "url": normalized})
}

// handleScan receives a receipt photo, decodes its QR code when possible
// and falls back to OCR text extraction otherwise. Nothing is persisted;
// the client reviews the products and posts them back.
func (s *Server) handleScan(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "image file is required"})
	}

	path := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, path); err != nil {
		s.logger.Error("failed to save uploaded image", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to save uploaded image"})
	}
	defer os.Remove(path)

	// QR first: the portal data beats OCR when the code is readable
	if s.decoder != nil {
		content, qerr := s.decoder.DecodeQR(c.Context(), path)
		if qerr == nil {
			token, _ := c.Locals("token").(string)
			products, normalized, cerr := s.consult.Consult(c.Context(), content, token)
			if cerr == nil {
				if len(products) == 0 {
					return c.Status(404).JSON(fiber.Map{"message": noProductsMessage})
				}
				return c.JSON(fiber.Map{"products": products, "url": normalized, "source": "qr"})
			}
			s.logger.Warn("qr consult failed, falling back to ocr", zap.Error(cerr))
		} else if !stderrors.Is(qerr, errors.ErrQRNotFound) {
			s.logger.Warn("qr decode failed", zap.Error(qerr))
		}
	}

	if s.recognizer == nil {
		return c.Status(422).JSON(fiber.Map{"error": "no OCR capability available"})
	}

	text, err := s.recognizer.ExtractText(c.Context(), path)
	if err != nil {
		return s.respondError(c, err)
	}

	products := s.extractor.ExtractFromText(text, receipt.ModePlain)
	s.metrics.RecordExtraction("ocr", extractionOutcome(products), len(products))

	if len(products) == 0 {
		return c.Status(404).JSON(fiber.Map{"message": noProductsMessage})
	}
	return c.JSON(fiber.Map{"products": products, "source": "ocr"})
}

func extractionOutcome(products []receipt.Product) string {
	if len(products) == 0 {
		return "empty"
	}
	return "ok"
}
