package domain

import "time"

// CREATE TABLE public.swap_rules (
//     id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     name              TEXT NOT NULL,
//     description       TEXT,
//     source_product_id BIGINT NOT NULL,
//     target_product_id BIGINT NOT NULL,
//     priority          INT DEFAULT 0,
//     active            BOOLEAN DEFAULT TRUE,
//     created_at        TIMESTAMPTZ DEFAULT NOW(),
//     updated_at        TIMESTAMPTZ DEFAULT NOW()
// );

// SwapRule is an explicit substitution mapping: when the source product is
// unavailable or unsuitable, the target product is a known-good replacement.
type SwapRule struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"column:name;type:text;not null" json:"name"`
	Description     string    `gorm:"column:description;type:text" json:"description"`
	SourceProductID uint64    `gorm:"column:source_product_id;not null;index" json:"source_product_id"`
	TargetProductID uint64    `gorm:"column:target_product_id;not null" json:"target_product_id"`
	Priority        int       `gorm:"column:priority;default:0" json:"priority"`
	Active          bool      `gorm:"column:active;default:true" json:"active"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SwapRule) TableName() string {
	return "swap_rules"
}
