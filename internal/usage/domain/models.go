package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Shop and Product belong to the catalog screens. The usage counter only
// counts them.
type Shop struct {
	ID        int64        `json:"id" gorm:"primaryKey"`
	OwnerID   snowflake.ID `json:"owner_id" gorm:"column:owner_id;not null;index:idx_shops_owner"`
	Name      string       `json:"name" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (Shop) TableName() string { return "shops" }

type Product struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ShopID    int64     `json:"shop_id" gorm:"column:shop_id;not null;index:idx_products_shop"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// Snapshot is an owner's consumption at the moment it was computed. It is
// never stored.
type Snapshot struct {
	ShopsUsed    int64 `json:"shops_used"`
	ProductsUsed int64 `json:"products_used"`
}
