package domain

import "time"

// License is a catalog plan priced monthly in minor units. Quotas are
// advisory: they are reported against usage, never enforced on writes.
type License struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Code         string    `json:"code" gorm:"type:varchar(64);not null;uniqueIndex:ux_licenses_code"`
	Title        string    `json:"title" gorm:"type:varchar(128);not null"`
	Description  string    `json:"description" gorm:"type:text;not null;default:''"`
	PriceCents   int64     `json:"price_cents" gorm:"not null;default:0;check:chk_licenses_price,price_cents >= 0"`
	ShopQuota    int       `json:"shop_quota" gorm:"column:shops;not null;default:0;check:chk_licenses_shops,shops >= 0"`
	ProductQuota int       `json:"product_quota" gorm:"column:products;not null;default:0;check:chk_licenses_products,products >= 0"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
}

func (License) TableName() string { return "licenses" }
