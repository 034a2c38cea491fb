// Package store persists pantry data in SQLite via GORM and caches
// receipt consultations in BadgerDB.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/despensaapp/despensa/internal/config"
	"github.com/despensaapp/despensa/internal/errors"
)

// defaultCategories seeds the fixed category set the extractor guesses
// against. "Outros" is the fallback and must always exist.
var defaultCategories = []string{"Alimentos", "Limpeza", "Higiene", "Outros"}

// Store provides unified access to SQLite and BadgerDB.
type Store struct {
	db     *gorm.DB
	badger *badger.DB
	logger *zap.Logger
}

// New opens both databases, migrates the schema and seeds categories.
func New(cfg *config.StorageConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	sqlitePath := cfg.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.DataDir, "despensa.db")
	}

	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	badgerPath := cfg.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.DataDir, "badger")
	}

	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	s := &Store{db: db, badger: badgerDB, logger: log}
	if err := s.init(); err != nil {
		badgerDB.Close()
		return nil, err
	}

	return s, nil
}

// NewInMemory opens an ephemeral store; used in tests.
func NewInMemory() (*Store, error) {
	sqliteDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// a second pooled connection would see an empty in-memory database
	sqliteDB.SetMaxOpenConns(1)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	badgerDB, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	s := &Store{db: db, badger: badgerDB, logger: zap.NewNop()}
	if err := s.init(); err != nil {
		badgerDB.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	if err := s.db.AutoMigrate(&Category{}, &Product{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return s.seedCategories()
}

// Close closes all database connections.
func (s *Store) Close() error {
	return s.badger.Close()
}

// DB returns the GORM database instance.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) seedCategories() error {
	for _, name := range defaultCategories {
		var count int64
		if err := s.db.Model(&Category{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := s.db.Create(&Category{Name: name}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// ==================== Product Methods ====================

// CreateProduct validates and persists one product.
func (s *Store) CreateProduct(p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.ensureID()
	if p.IDCategory == 0 {
		cat, err := s.ResolveCategory("")
		if err != nil {
			return err
		}
		p.IDCategory = cat.ID
	}
	return s.db.Create(p).Error
}

// CreateProducts persists a batch atomically. Any invalid row aborts the
// whole batch.
func (s *Store) CreateProducts(products []Product) ([]Product, error) {
	for i := range products {
		if err := products[i].Validate(); err != nil {
			return nil, errors.Wrap(err, errors.ErrBadRequest.Code,
				fmt.Sprintf("product %d is invalid", i))
		}
		products[i].ensureID()
	}

	fallback, err := s.ResolveCategory("")
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].IDCategory == 0 {
			products[i].IDCategory = fallback.ID
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&products).Error
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct retrieves a product with its category preloaded.
func (s *Store) GetProduct(id string) (*Product, error) {
	var p Product
	if err := s.db.Preload("Category").First(&p, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.Wrap(err, errors.ErrNotFound.Code, "product not found")
		}
		return nil, err
	}
	return &p, nil
}

// ProductFilter narrows ListProducts results.
type ProductFilter struct {
	Page           int
	Limit          int
	Search         string
	ExpirationDate *time.Time
	CategoryIDs    []uint
}

// ListProducts returns a page of products plus the unpaged total.
func (s *Store) ListProducts(f ProductFilter) ([]Product, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}

	q := s.db.Model(&Product{})

	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.ExpirationDate != nil {
		q = q.Where("expiration_date <= ?", *f.ExpirationDate)
	}
	if len(f.CategoryIDs) > 0 {
		q = q.Where("id_category IN ?", f.CategoryIDs)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []Product
	err := q.Preload("Category").
		Order("created_at DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&products).Error
	return products, total, err
}

// UpdateProduct validates and saves changes to an existing product.
func (s *Store) UpdateProduct(p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var count int64
	if err := s.db.Model(&Product{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errors.Wrap(nil, errors.ErrNotFound.Code, "product not found")
	}
	return s.db.Omit("Category").Save(p).Error
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(id string) error {
	res := s.db.Delete(&Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(nil, errors.ErrNotFound.Code, "product not found")
	}
	return nil
}

// ExpiringSoon returns products whose expiration date falls within the
// next n days, soonest first.
func (s *Store) ExpiringSoon(days int) ([]Product, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, days)

	var products []Product
	err := s.db.Preload("Category").
		Where("expiration_date IS NOT NULL AND expiration_date >= ? AND expiration_date <= ?", now, cutoff).
		Order("expiration_date ASC").
		Find(&products).Error
	return products, err
}

// ==================== Category Methods ====================

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories() ([]Category, error) {
	var cats []Category
	err := s.db.Order("name ASC").Find(&cats).Error
	return cats, err
}

// ResolveCategory finds a category by name, case-insensitively. An empty
// or unknown name resolves to "Outros".
func (s *Store) ResolveCategory(name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name != "" {
		var cat Category
		err := s.db.Where("LOWER(name) = ?", strings.ToLower(name)).First(&cat).Error
		if err == nil {
			return &cat, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	var fallback Category
	if err := s.db.Where("name = ?", "Outros").First(&fallback).Error; err != nil {
		return nil, fmt.Errorf("fallback category missing: %w", err)
	}
	return &fallback, nil
}

// ==================== Stats Methods ====================

// SpendingRow is one category's total in a spending summary.
type SpendingRow struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Items    int     `json:"items"`
}

// SpendingByCategory sums price*stock per category for products created
// inside the window.
func (s *Store) SpendingByCategory(from, to time.Time) ([]SpendingRow, error) {
	var rows []SpendingRow
	err := s.db.Model(&Product{}).
		Select("categories.name AS category, SUM(products.price * products.stock) AS total, COUNT(*) AS items").
		Joins("JOIN categories ON categories.id = products.id_category").
		Where("products.created_at >= ? AND products.created_at <= ?", from, to).
		Group("categories.name").
		Order("total DESC").
		Scan(&rows).Error
	return rows, err
}
