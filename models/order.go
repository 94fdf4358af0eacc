package models

import "time"

// Order is the minimal order surface this pipeline collaborates with.
// Catalog, cart and pricing details live in the storefront and are not
// modelled here; we only read the order and write its payment outcome.
type Order struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	UserID        uint   `gorm:"index;not null"`
	TotalAmount   int64  `gorm:"not null"` // smallest currency unit (paise)
	Status        string `gorm:"size:32;not null;default:created"`
	PaymentStatus string `gorm:"size:32;not null;default:unpaid"`
}
