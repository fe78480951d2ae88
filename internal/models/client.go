package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Client struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;index"`
	Phone     string    `json:"phone"`
	Document  string    `json:"document"`
	Address   string    `json:"address" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// Service is a catalog entry. Its price is the default unit price for new items.
type Service struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(18,6);not null"`
	Unit      string          `json:"unit" gorm:"default:'piece'"`
	CreatedAt time.Time       `json:"created_at"`
}
