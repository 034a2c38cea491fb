package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/store"
)

// productPayload is the write shape for products. Expiration dates arrive
// as "2006-01-02" strings from the mobile client.
type productPayload struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	Stock          int     `json:"stock"`
	ExpirationDate string  `json:"expiration_date"`
	IDCategory     uint    `json:"id_category"`
	Category       string  `json:"category"`
}

func (p *productPayload) toModel() (*store.Product, error) {
	product := &store.Product{
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		IDCategory:  p.IDCategory,
	}

	if p.ExpirationDate != "" {
		t, err := time.Parse("2006-01-02", p.ExpirationDate)
		if err != nil {
			return nil, err
		}
		product.ExpirationDate = &t
	}

	return product, nil
}

// handleCreateProducts accepts a single product object or an array of
// them; receipt scans post the whole extraction as one batch.
func (s *Server) handleCreateProducts(c *fiber.Ctx) error {
	body := c.Body()

	var payloads []productPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		var single productPayload
		if err := json.Unmarshal(body, &single); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}
		payloads = []productPayload{single}
	}

	if len(payloads) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "no products in request"})
	}

	products := make([]store.Product, 0, len(payloads))
	for _, p := range payloads {
		model, err := p.toModel()
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid expiration_date, expected YYYY-MM-DD"})
		}

		// extracted products carry a category name rather than an id
		if model.IDCategory == 0 && p.Category != "" {
			cat, err := s.store.ResolveCategory(p.Category)
			if err != nil {
				return s.respondError(c, err)
			}
			model.IDCategory = cat.ID
		}

		products = append(products, *model)
	}

	created, err := s.store.CreateProducts(products)
	if err != nil {
		return s.respondError(c, err)
	}

	s.logger.Info("products created", zap.Int("count", len(created)))

	if len(created) == 1 {
		return c.Status(201).JSON(created[0])
	}
	return c.Status(201).JSON(created)
}

func (s *Server) handleListProducts(c *fiber.Ctx) error {
	filter := store.ProductFilter{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 50),
		Search: c.Query("search"),
	}

	if raw := c.Query("expiration_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid expiration_date, expected YYYY-MM-DD"})
		}
		filter.ExpirationDate = &t
	}

	// id_category repeats for multi-select filtering
	for _, raw := range strings.Split(c.Query("id_category"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid id_category"})
		}
		filter.CategoryIDs = append(filter.CategoryIDs, uint(id))
	}

	products, total, err := s.store.ListProducts(filter)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"products": products,
		"total":    total,
		"page":     filter.Page,
		"limit":    filter.Limit,
	})
}

func (s *Server) handleGetProduct(c *fiber.Ctx) error {
	product, err := s.store.GetProduct(c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(product)
}

func (s *Server) handleUpdateProduct(c *fiber.Ctx) error {
	existing, err := s.store.GetProduct(c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}

	var payload productPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	model, err := payload.toModel()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid expiration_date, expected YYYY-MM-DD"})
	}

	model.ID = existing.ID
	model.CreatedAt = existing.CreatedAt
	if model.IDCategory == 0 {
		model.IDCategory = existing.IDCategory
	}

	if err := s.store.UpdateProduct(model); err != nil {
		return s.respondError(c, err)
	}

	updated, err := s.store.GetProduct(model.ID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(updated)
}

func (s *Server) handleDeleteProduct(c *fiber.Ctx) error {
	if err := s.store.DeleteProduct(c.Params("id")); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) handleExpiringProducts(c *fiber.Ctx) error {
	days := c.QueryInt("days", s.config.Expiry.DaysAhead)
	if days < 1 {
		days = 7
	}

	products, err := s.store.ExpiringSoon(days)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{"products": products, "days": days})
}

func (s *Server) handleListCategories(c *fiber.Ctx) error {
	categories, err := s.store.ListCategories()
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(categories)
}
