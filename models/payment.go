package models

import "time"

// Payment is the payment-verification record for a single order attempt.
// Exactly one active (non-expired, non-rejected) record may exist per order.
type Payment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	OrderID uint  `gorm:"index;not null"`
	UserID  uint  `gorm:"index;not null"`
	Amount  int64 `gorm:"not null"` // smallest currency unit (paise)

	// Evidence from the screenshot pipeline.
	ScreenshotPath     string  `gorm:"size:512;not null"`
	UTRNumber          *string `gorm:"size:32;index"` // extracted reference (nullable)
	ManualReference    *string `gorm:"size:32"`       // customer-entered fallback
	ExtractFormat      string  `gorm:"size:32"`
	OCRConfidence      int     `gorm:"not null;default:0"` // recognition quality, 0-100
	ExtractConfidence  int     `gorm:"not null;default:0"` // reference match quality, 0-100
	DetectionFailedWhy string  `gorm:"size:255"`           // diagnostic when no reference was found

	// Lifecycle bookkeeping.
	Status        string    `gorm:"size:32;not null;index"`
	AttemptCount  int       `gorm:"not null;default:1"`
	SubmittedAt   time.Time `gorm:"not null"`
	LastAttemptAt time.Time `gorm:"not null"`
	ExpiresAt     time.Time `gorm:"index;not null"` // last attempt + expiry window

	// Admin verification audit trail.
	VerifiedBy        *uint `gorm:"index"`
	VerificationNotes string
	VerifiedAt        *time.Time
	AdminDecision     string `gorm:"size:16"` // approved / rejected / empty
}
