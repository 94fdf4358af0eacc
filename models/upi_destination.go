package models

import "time"

// UpiDestination is the merchant's receiving UPI identity, shown to the
// customer alongside the upload form. A single row is kept; writes happen
// only through the admin path.
type UpiDestination struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UpiID        string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:255;not null"`
	QRImagePath  string `gorm:"size:512"`
	Instructions string
	UpdatedByID  *uint `gorm:"index"`
}
