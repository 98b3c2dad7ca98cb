package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CREATE TABLE public.products (
//     id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     sku          TEXT NOT NULL,
//     name         TEXT NOT NULL,
//     category     TEXT,
//     price        NUMERIC NOT NULL,
//     retailer_id  TEXT,
//     availability BOOLEAN DEFAULT TRUE,
//     attributes   JSONB,
//     created_at   TIMESTAMPTZ DEFAULT NOW(),
//     updated_at   TIMESTAMPTZ DEFAULT NOW(),
//     UNIQUE (sku, retailer_id)
// );

type Product struct {
	ID           uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU          string            `gorm:"column:sku;not null;index" json:"sku"`
	Name         string            `gorm:"column:name;type:text;not null" json:"name"`
	Category     string            `gorm:"column:category;type:text;index" json:"category"`
	Price        float64           `gorm:"column:price;type:numeric" json:"price"`
	RetailerID   string            `gorm:"column:retailer_id;type:text;index" json:"retailer_id"`
	Availability bool              `gorm:"column:availability;default:true" json:"availability"`
	Attributes   datatypes.JSONMap `gorm:"column:attributes;type:jsonb" json:"attributes"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// Attribute returns the named attribute as a string, or "" when absent.
func (p Product) Attribute(key string) string {
	if p.Attributes == nil {
		return ""
	}
	if v, ok := p.Attributes[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
