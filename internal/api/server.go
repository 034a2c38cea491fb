// Package api exposes the pantry service over HTTP: product CRUD,
// receipt consultation and scanning, categories, stats and metrics.
package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/config"
	"github.com/despensaapp/despensa/internal/errors"
	"github.com/despensaapp/despensa/internal/metrics"
	"github.com/despensaapp/despensa/internal/nfce"
	"github.com/despensaapp/despensa/internal/ocr"
	"github.com/despensaapp/despensa/internal/receipt"
	"github.com/despensaapp/despensa/internal/store"
)

// Server handles the HTTP API.
type Server struct {
	app        *fiber.App
	config     *config.Config
	store      *store.Store
	consult    *nfce.Service
	extractor  *receipt.Extractor
	recognizer ocr.Recognizer
	decoder    ocr.Decoder
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// Deps carries the wired components the server serves.
type Deps struct {
	Store      *store.Store
	Consult    *nfce.Service
	Extractor  *receipt.Extractor
	Recognizer ocr.Recognizer
	Decoder    ocr.Decoder
	Metrics    *metrics.Metrics
}

// New creates the API server and registers all routes.
func New(cfg *config.Config, deps Deps, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    20 * 1024 * 1024, // receipt photos
	})

	s := &Server{
		app:        app,
		config:     cfg,
		store:      deps.Store,
		consult:    deps.Consult,
		extractor:  deps.Extractor,
		recognizer: deps.Recognizer,
		decoder:    deps.Decoder,
		metrics:    deps.Metrics,
		logger:     log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Server.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	if s.metrics != nil {
		s.app.Use(func(c *fiber.Ctx) error {
			err := c.Next()
			// route pattern, not the raw path, keeps label cardinality bounded
			s.metrics.RecordHTTPRequest(c.Method(), c.Route().Path, strconv.Itoa(c.Response().StatusCode()))
			return err
		})
	}

	s.app.Get("/api/health", s.handleHealth)

	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := s.app.Group("/api")

	api.Post("/auth/login", s.handleLogin)

	protected := api.Use(s.authMiddleware())

	protected.Get("/products", s.handleListProducts)
	protected.Post("/products", s.handleCreateProducts)
	protected.Get("/products/expiring", s.handleExpiringProducts)
	protected.Get("/products/:id", s.handleGetProduct)
	protected.Put("/products/:id", s.handleUpdateProduct)
	protected.Delete("/products/:id", s.handleDeleteProduct)

	protected.Get("/categories", s.handleListCategories)

	protected.Post("/nfce/consult", s.handleConsult)
	protected.Post("/receipts/scan", s.handleScan)

	protected.Get("/stats/spending", s.handleSpending)
}

// Start starts the server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if s.config.Auth.AdminPassword != "" && req.Password != s.config.Auth.AdminPassword {
		return c.Status(401).JSON(fiber.Map{"error": "invalid password"})
	}

	ttl := time.Duration(s.config.Auth.TokenTTLHours) * time.Hour
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Auth.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}

func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(s.config.Auth.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals("token", tokenString)
		return c.Next()
	}
}

// respondError maps application error codes to HTTP statuses.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	code := errors.GetCode(err)

	status := 500
	switch code {
	case errors.ErrInvalidReceiptURL.Code, errors.ErrBadRequest.Code:
		status = 400
	case errors.ErrUnauthorized.Code:
		status = 401
	case errors.ErrForbidden.Code:
		status = 403
	case errors.ErrNotFound.Code:
		status = 404
	case errors.ErrRemoteFetchFailed.Code:
		status = 502
	case errors.ErrImageProcessingFailed.Code, errors.ErrQRNotFound.Code:
		status = 422
	}

	if status == 500 {
		s.logger.Error("request failed", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
