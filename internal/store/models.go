package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/despensaapp/despensa/internal/errors"
)

// Product is an item in the household pantry. Most rows originate from a
// scanned receipt and get corrected by the user afterwards.
type Product struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Price          float64    `json:"price"`
	Stock          int        `json:"stock"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IDCategory     uint       `gorm:"index" json:"id_category"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:IDCategory"`
}

// Category groups products for filtering and spending summaries.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields a product row must carry before persisting.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(nil, errors.ErrBadRequest.Code, "product name is required")
	}
	if p.Price < 0 {
		return errors.Wrap(nil, errors.ErrBadRequest.Code, "product price cannot be negative")
	}
	if p.Stock < 0 {
		return errors.Wrap(nil, errors.ErrBadRequest.Code, "product stock cannot be negative")
	}
	return nil
}

// ensureID assigns a fresh UUID when the row was built client-side.
func (p *Product) ensureID() {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
}
